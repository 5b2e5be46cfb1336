// Package worker provides an asynchronous worker pool for indexing uploaded
// documents off the HTTP request path.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/askbase/pkg/ingest"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Indexer embeds and stores a validated upload under a pre-assigned ID.
type Indexer interface {
	Index(ctx context.Context, id string, u ingest.Upload) error
}

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	// ID is the document ID already returned to the caller.
	ID     string
	Upload ingest.Upload

	// Done, when set, is called with the indexing result.
	Done func(err error)
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Indexer stores uploaded documents.
	Indexer Indexer

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes indexing jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Indexer == nil {
		return nil, fmt.Errorf("indexer is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("indexing job queued",
			"id", job.ID,
			"title", job.Upload.Title,
		)
		return true
	default:
		p.logger.Error("indexing job not queued, queue full, job dropped",
			"id", job.ID,
			"title", job.Upload.Title,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("indexing worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) {
	err := p.config.Indexer.Index(context.Background(), job.ID, job.Upload)
	if err != nil {
		p.logger.Error("async indexing failed",
			"id", job.ID,
			"title", job.Upload.Title,
			"error", err,
		)
	}

	if job.Done != nil {
		job.Done(err)
	}
}
