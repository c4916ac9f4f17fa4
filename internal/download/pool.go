package download

import (
	"context"
	"iter"
	"sync"

	"github.com/jmagar/bookbeat-cli/internal/model"
)

// itemDownloader is the per-job pipeline the pool drives.
type itemDownloader interface {
	Download(ctx context.Context, job Job) Result
}

// Summary counts the outcomes of a pool run.
type Summary struct {
	Completed int
	Skipped   int
	Failed    int
	Bytes     int64
}

func (s *Summary) add(r Result) {
	switch {
	case r.Err != nil:
		s.Failed++
	case r.Skipped:
		s.Skipped++
	default:
		s.Completed++
		s.Bytes += r.Bytes
	}
}

// Pool runs jobs on a bounded number of workers. Each job succeeds or fails
// on its own; results are delivered one at a time.
type Pool struct {
	downloader itemDownloader
	workers    int
}

// NewPool returns a pool of workers goroutines. Values below one mean one.
func NewPool(d itemDownloader, workers int) *Pool {
	if workers < 1 {
		workers = model.DefaultWorkers
	}
	return &Pool{downloader: d, workers: workers}
}

// Run pulls jobs until the sequence ends, ctx is cancelled, or the sequence
// yields an error. In-flight jobs always finish before Run returns. With one
// worker, results arrive in job order. The returned error is the sequence's
// error or ctx.Err(); item failures only show up in results and the summary.
func (p *Pool) Run(ctx context.Context, jobs iter.Seq2[Job, error], onResult func(Result)) (Summary, error) {
	var (
		summary Summary
		mu      sync.Mutex
		wg      sync.WaitGroup
		runErr  error
	)
	sem := make(chan struct{}, p.workers)

	deliver := func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		summary.add(r)
		if onResult != nil {
			onResult(r)
		}
	}

	for job, err := range jobs {
		if err != nil {
			runErr = err
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			defer func() { <-sem }()
			deliver(p.downloader.Download(ctx, job))
		}(job)
	}
	wg.Wait()

	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	return summary, runErr
}
