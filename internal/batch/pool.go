// Package batch runs a byte transform over many files with a bounded number
// of workers.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var (
	// ErrOutputExists indicates a job would overwrite an existing file.
	ErrOutputExists = errors.New("output file already exists")
	// ErrDuplicateOutput indicates two jobs in one run target the same file.
	ErrDuplicateOutput = errors.New("output file targeted by more than one job")
)

// Transform turns one whole file into another. Each call receives its own
// input slice and must return a slice it owns.
type Transform func(ctx context.Context, data []byte) ([]byte, error)

// Job describes one file to transform.
type Job struct {
	ID     int
	Input  string
	Output string
}

// Result reports how a Job finished.
type Result struct {
	JobID  int
	Input  string
	Output string
	Bytes  int
	Err    error
}

// Pool manages parallel file transforms with a fixed number of workers.
type Pool struct {
	workers   int
	overwrite bool
	transform Transform
	jobs      chan Job
	results   chan Result
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// Option configures a Pool.
type Option func(*Pool)

// WithOverwrite lets jobs replace existing output files.
func WithOverwrite(overwrite bool) Option {
	return func(p *Pool) {
		p.overwrite = overwrite
	}
}

// NewPool creates a pool bound to ctx. workers below one are treated as one.
func NewPool(ctx context.Context, workers int, transform Transform, opts ...Option) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		workers:   workers,
		transform: transform,
		jobs:      make(chan Job, workers*2),
		results:   make(chan Result, workers*2),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			n, err := p.process(job)
			select {
			case p.results <- Result{JobID: job.ID, Input: job.Input, Output: job.Output, Bytes: n, Err: err}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

func (p *Pool) process(job Job) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	if !p.overwrite {
		if _, err := os.Stat(job.Output); err == nil {
			return 0, fmt.Errorf("%w: %s", ErrOutputExists, job.Output)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("stat output: %w", err)
		}
	}

	data, err := os.ReadFile(job.Input)
	if err != nil {
		return 0, fmt.Errorf("read input: %w", err)
	}
	out, err := p.transform(p.ctx, data)
	if err != nil {
		return 0, err
	}
	if err := writeFile(job.Output, out, p.overwrite); err != nil {
		return 0, err
	}
	return len(out), nil
}

// Submit queues a job, blocking while the queue is full.
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobs <- job:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Results returns the results channel. It is closed by Stop.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Stop waits for queued jobs to finish and closes Results.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	p.cancel()
}

// Cancel abandons queued jobs and waits for the workers to exit.
func (p *Pool) Cancel() {
	p.cancel()
	p.wg.Wait()
}

// Run pushes every job through a fresh pool and returns the results ordered
// by JobID. A job whose output an earlier job already claims is not run and
// reports ErrDuplicateOutput. Jobs never queued because ctx ended report
// ctx.Err().
func Run(ctx context.Context, workers int, jobs []Job, transform Transform, opts ...Option) []Result {
	queued, rejected := claimOutputs(jobs)

	p := NewPool(ctx, workers, transform, opts...)
	p.Start()

	go func() {
		defer p.Stop()
		for _, job := range queued {
			if err := p.Submit(job); err != nil {
				return
			}
		}
	}()

	seen := make(map[int]bool, len(jobs))
	results := make([]Result, 0, len(jobs))
	for _, res := range rejected {
		seen[res.JobID] = true
		results = append(results, res)
	}
	for res := range p.Results() {
		seen[res.JobID] = true
		results = append(results, res)
	}
	for _, job := range jobs {
		if seen[job.ID] {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		results = append(results, Result{JobID: job.ID, Input: job.Input, Output: job.Output, Err: err})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].JobID < results[j].JobID
	})
	return results
}

// claimOutputs keeps the first job for each output path and rejects the rest.
func claimOutputs(jobs []Job) ([]Job, []Result) {
	owners := make(map[string]int, len(jobs))
	queued := make([]Job, 0, len(jobs))
	var rejected []Result
	for _, job := range jobs {
		key := outputKey(job.Output)
		if owner, taken := owners[key]; taken {
			rejected = append(rejected, Result{
				JobID:  job.ID,
				Input:  job.Input,
				Output: job.Output,
				Err:    fmt.Errorf("%w: %s (job %d)", ErrDuplicateOutput, job.Output, owner),
			})
			continue
		}
		owners[key] = job.ID
		queued = append(queued, job)
	}
	return queued, rejected
}

func outputKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// writeFile stages data in a temp file next to path and then publishes it.
// Without overwrite the publish step is a hard link, which fails if path
// appeared after the early existence check.
func writeFile(path string, data []byte, overwrite bool) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	if overwrite {
		if err := os.Rename(tmpName, path); err != nil {
			return fmt.Errorf("replace output: %w", err)
		}
		return nil
	}
	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
		return createExclusive(path, data)
	}
	return nil
}

// createExclusive is the fallback for filesystems without hard links.
func createExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
