// Package services is the client side of the dashboard REST API.
//
// [DashboardClient] wraps a resty client with typed methods per endpoint:
//   - reads: [DashboardClient.Progress], [DashboardClient.Collection], [DashboardClient.SyncState], [DashboardClient.Scheduler]
//   - job control: [DashboardClient.Pause], [DashboardClient.Resume], [DashboardClient.ClearCompleted]
//   - triggers: [DashboardClient.SyncAll], [DashboardClient.RefreshAvatars], [DashboardClient.DownloadUser], [DashboardClient.ExternalDownload]
//
// # Error Handling
//
// Every method maps failures onto the sentinel errors of the shared package:
//   - [shared.ErrServiceUnavailable] : the request never got a response
//   - [shared.ErrAPIRequest] : the server answered a read with an error status
//   - [shared.ErrRateLimited] : the server or the local limiter refused the request
//   - [shared.ErrInvalidInput] : the request was rejected before it was sent
//   - [shared.ErrActionFailed] : a control request was declined, see [ActionError]
//
// [ErrorMessage] turns any of these into the short text shown in a toast.
package services
