// Package server provides HTTP routing, middleware, and a simulated dashboard API.
//
// # Routing
//
// [Dashboard.Register] mounts its handlers through the [Router] interface. [APIRouter] is the only
// implementation: each route becomes a "METHOD /path" pattern on an [http.ServeMux], so paths carry
// wildcards such as /api/downloads/pause/{id} and a wrong method gets 405. [Middleware] set with Use
// wraps every route registered after it, outermost first.
//
// # Mock Dashboard
//
// [Dashboard] answers every endpoint the client uses with the same payload shapes and messages as the real
// dashboard. Jobs only move when [Dashboard.Step] runs: `trackui mock` steps on a ticker, tests step by hand.
//
// Simulated behavior:
//   - downloads that report a total, hide it until done, or fail half way
//   - sync runs that walk every account, time out on some and record them as timeout users
//   - the "Refresh Avatars" job with status running and one step per account
//   - external downloads with the server's URL and service checks
//   - the status endpoint trimming old finished jobs and hiding the synthetic sync entry
package server
