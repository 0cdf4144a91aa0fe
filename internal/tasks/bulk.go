package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/trackui/internal/shared"
	"golang.org/x/time/rate"
)

// JobAction performs one control request against one job.
type JobAction func(ctx context.Context, id string) error

// BulkOpts contains configuration for bulk job control.
type BulkOpts struct {
	Workers   int     // Concurrent workers (default: 4, max: 8)
	RateLimit float64 // Requests per second (default: 5)
}

// JobResult is the outcome of one job within a bulk operation.
type JobResult struct {
	JobID string
	Err   error
}

// BulkResult summarizes a bulk operation.
type BulkResult struct {
	Phase     Phase
	Total     int
	Succeeded int
	Failed    int
	Results   []JobResult // completion order
}

// RunBulk applies action to every id of a selection with a rate-limited worker pool.
//
// Duplicate ids are sent once. Individual failures are collected in the result
// and do not abort the rest of the batch; cancelling ctx does.
func RunBulk(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	phase Phase,
	ids []string,
	action JobAction,
	opts BulkOpts,
) (*BulkResult, error) {
	if action == nil {
		return nil, fmt.Errorf("%w: no action for %s", shared.ErrServiceUnavailable, phase)
	}

	ids = unique(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no jobs selected", shared.ErrInvalidInput)
	}

	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Workers > 8 {
		opts.Workers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan string, len(ids))
	results := make(chan JobResult, len(ids))

	var wg sync.WaitGroup
	for range opts.Workers {
		wg.Add(1)
		go bulkWorker(ctx, &wg, limiter, action, jobs, results)
	}

	sendProgress(prog, queuedUpdate(phase, len(ids)))
	for _, id := range ids {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	result := &BulkResult{Phase: phase, Total: len(ids), Results: make([]JobResult, 0, len(ids))}
	for res := range results {
		result.Results = append(result.Results, res)
		step := len(result.Results)
		if res.Err != nil {
			result.Failed++
			sendProgress(prog, jobFailedUpdate(phase, step, len(ids), res.JobID, res.Err))
		} else {
			result.Succeeded++
			sendProgress(prog, jobDoneUpdate(phase, step, len(ids), res.JobID))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("bulk %s interrupted: %w", phase, err)
	}
	return result, nil
}

func bulkWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	action JobAction,
	jobs <-chan string,
	results chan<- JobResult,
) {
	defer wg.Done()

	for id := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- JobResult{JobID: id, Err: err}
			continue
		}
		results <- JobResult{JobID: id, Err: action(ctx, id)}
	}
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
