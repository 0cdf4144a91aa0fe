package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/shared"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Dashboard API paths.
const (
	pathProgress       = "/api/download_progress/{id}"
	pathCollection     = "/api/downloads/status"
	pathSyncStatus     = "/api/sync_status"
	pathScheduler      = "/api/scheduler/status"
	pathPause          = "/api/downloads/pause/{id}"
	pathResume         = "/api/downloads/resume/{id}"
	pathClearCompleted = "/api/downloads/clear_completed"
	pathSyncAll        = "/api/sync_all"
	pathExternal       = "/api/external_download"
	pathRefreshAvatars = "/api/refresh_all_avatars"
	pathDownloadUser   = "/api/download_user/{id}"
)

// ActionError is a control request the server declined or could not run.
//
// Message holds the server's explanation when one was given.
type ActionError struct {
	Op      string
	Status  int
	Message string
}

func (e *ActionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "no reason given"
	}
	if e.Status >= 400 {
		return fmt.Sprintf("%s: %s (status %d): %s", shared.ErrActionFailed, e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", shared.ErrActionFailed, e.Op, msg)
}

func (e *ActionError) Unwrap() error { return shared.ErrActionFailed }

// ErrorMessage returns the server's message carried by err, or fallback.
//
// Toasts use it so users see "Sync already in progress" rather than a wrapped error chain.
func ErrorMessage(err error, fallback string) string {
	var ae *ActionError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	if errors.Is(err, shared.ErrRateLimited) {
		return "Too many requests, try again shortly"
	}
	if errors.Is(err, shared.ErrInvalidInput) {
		return strings.TrimPrefix(err.Error(), shared.ErrInvalidInput.Error()+": ")
	}
	return fallback
}

// ClientOpts configures a [DashboardClient].
type ClientOpts struct {
	BaseURL       string
	Timeout       time.Duration
	RetryCount    int     // retries for failed reads
	RatePerSecond float64 // control requests per second, 0 for unlimited
	Burst         int
	Logger        *log.Logger
	Transport     http.RoundTripper // optional, for tests
}

// DashboardClient is a typed client for the dashboard REST API.
//
// Reads (progress, collection, sync and scheduler status) are retried on
// network errors and 5xx responses. Control requests are never retried and
// pass through a token bucket so repeated key presses cannot flood the server.
type DashboardClient struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewDashboardClient creates a client for the dashboard at opts.BaseURL.
func NewDashboardClient(opts ClientOpts) *DashboardClient {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "dashboard")

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return r.StatusCode() >= 500
		})

	if opts.Transport != nil {
		client.SetTransport(opts.Transport)
	}

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug("http request", "method", req.Method, "url", req.URL)
		return nil
	})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &DashboardClient{client: client, limiter: limiter, logger: logger}
}

// Progress fetches the detail snapshot of job id. An unknown job yields an empty status.
func (c *DashboardClient) Progress(ctx context.Context, id string) (models.Progress, error) {
	var p models.Progress
	err := c.get(ctx, pathProgress, map[string]string{"id": id}, &p)
	return p, err
}

// Collection fetches every job with the server's rollups.
func (c *DashboardClient) Collection(ctx context.Context) (models.Collection, error) {
	var col models.Collection
	err := c.get(ctx, pathCollection, nil, &col)
	return col, err
}

// SyncState fetches the global sync state.
func (c *DashboardClient) SyncState(ctx context.Context) (models.SyncState, error) {
	var s models.SyncState
	err := c.get(ctx, pathSyncStatus, nil, &s)
	return s, err
}

// Scheduler fetches the schedule of automatic syncs.
func (c *DashboardClient) Scheduler(ctx context.Context) (models.SchedulerStatus, error) {
	var s models.SchedulerStatus
	err := c.get(ctx, pathScheduler, nil, &s)
	return s, err
}

// Snapshot is what the status indicator needs from one tick.
type Snapshot struct {
	Collection models.Collection
	Sync       models.SyncState
}

// Snapshot fetches the collection and sync state for the indicator.
func (c *DashboardClient) Snapshot(ctx context.Context) (Snapshot, error) {
	col, err := c.Collection(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	s, err := c.SyncState(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Collection: col, Sync: s}, nil
}

// Pause asks the server to pause job id.
func (c *DashboardClient) Pause(ctx context.Context, id string) (models.ActionResult, error) {
	return c.act(ctx, "pause", pathPause, map[string]string{"id": id}, nil)
}

// Resume asks the server to resume job id.
func (c *DashboardClient) Resume(ctx context.Context, id string) (models.ActionResult, error) {
	return c.act(ctx, "resume", pathResume, map[string]string{"id": id}, nil)
}

// ClearCompleted removes finished jobs from the collection.
func (c *DashboardClient) ClearCompleted(ctx context.Context) (models.ActionResult, error) {
	return c.act(ctx, "clear completed", pathClearCompleted, nil, nil)
}

// SyncAll starts a sync of every account.
func (c *DashboardClient) SyncAll(ctx context.Context) (models.ActionResult, error) {
	return c.act(ctx, "sync all", pathSyncAll, nil, nil)
}

// RefreshAvatars starts the bulk avatar refresh job.
func (c *DashboardClient) RefreshAvatars(ctx context.Context) (models.ActionResult, error) {
	return c.act(ctx, "refresh avatars", pathRefreshAvatars, nil, nil)
}

// DownloadUser starts a download job for account id.
func (c *DashboardClient) DownloadUser(ctx context.Context, id string) (models.ActionResult, error) {
	if strings.TrimSpace(id) == "" {
		return models.ActionResult{}, fmt.Errorf("%w: account is required", shared.ErrInvalidInput)
	}
	return c.act(ctx, "download", pathDownloadUser, map[string]string{"id": id}, nil)
}

// ExternalDownloadRequest is the body of an external download.
type ExternalDownloadRequest struct {
	URL         string `json:"url"`
	Destination string `json:"destination,omitempty"`
}

// ExternalDownload starts a download from an external link. The URL must be http or https.
func (c *DashboardClient) ExternalDownload(ctx context.Context, rawURL, destination string) (models.ActionResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := ValidateDownloadURL(rawURL); err != nil {
		return models.ActionResult{}, err
	}
	body := ExternalDownloadRequest{URL: rawURL, Destination: strings.TrimSpace(destination)}
	return c.act(ctx, "external download", pathExternal, nil, body)
}

// ValidateDownloadURL applies the server's first check to an external download URL.
func ValidateDownloadURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: URL is required", shared.ErrInvalidInput)
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: Invalid URL format", shared.ErrInvalidInput)
	}
	return nil
}

func (c *DashboardClient) get(ctx context.Context, path string, params map[string]string, out any) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(params).
		ForceContentType("application/json").
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", shared.ErrServiceUnavailable, path, err)
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: GET %s", shared.ErrRateLimited, path)
	case status >= 400:
		return fmt.Errorf("%w: GET %s: status %d", shared.ErrAPIRequest, path, status)
	}
	return nil
}

func (c *DashboardClient) act(ctx context.Context, op, path string, params map[string]string, body any) (models.ActionResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.ActionResult{}, fmt.Errorf("%w: %s: %v", shared.ErrRateLimited, op, err)
	}

	var result models.ActionResult
	req := c.client.R().
		SetContext(ctx).
		SetPathParams(params).
		ForceContentType("application/json").
		SetResult(&result).
		SetError(&result)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Post(path)
	if err != nil {
		return result, fmt.Errorf("%w: %s: %w", shared.ErrServiceUnavailable, op, err)
	}

	status := resp.StatusCode()
	if status == http.StatusTooManyRequests {
		return result, fmt.Errorf("%w: %s", shared.ErrRateLimited, op)
	}
	if status >= 400 || !result.Success {
		c.logger.Warn("action declined", "op", op, "status", status, "error", result.Error)
		return result, &ActionError{Op: op, Status: status, Message: result.Error}
	}

	c.logger.Info("action accepted", "op", op, "message", result.Message)
	return result, nil
}
