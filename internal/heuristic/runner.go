package heuristic

import (
	"context"
	"sync"

	"bidsify/internal/logging"
	"bidsify/internal/seqinfo"
	"bidsify/internal/services"
)

// Job is one study to process.
type Job struct {
	Source string
	Batch  seqinfo.Batch
}

// JobResult pairs a job with its outcome. Exactly one of Outcome and Err is set.
type JobResult struct {
	Source  string
	Outcome *Outcome
	Err     error
}

// ProcessAll processes jobs concurrently and returns results in job order.
// One failing study does not stop the others. Jobs not started before ctx is
// canceled report the context error.
func (p *Processor) ProcessAll(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, len(jobs))
	workers := p.opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, job := range jobs {
		results[i].Source = job.Source
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			defer func() { <-sem }()
			jobCtx := services.WithSource(ctx, job.Source)
			outcome, err := p.Process(jobCtx, job.Batch)
			if err != nil {
				logging.ErrorWithContext(logging.WithContext(jobCtx, p.logger), "study failed", "study_failed",
					logging.Error(err),
					logging.String("error_kind", services.Kind(err)),
				)
				results[i].Err = err
				return
			}
			results[i].Outcome = outcome
		}(i, job)
	}
	wg.Wait()
	return results
}
