// Package replay moves dead-lettered jobs back into the queues they failed in.
//
// A run walks the given dead-letter queues one at a time. For each it fetches
// one batch of jobs that no consumer has picked up yet, re-publishes every
// well-formed entry into its original queue under a fresh identifier and only
// then removes it from the dead-letter queue. Replay is at-least-once and not
// atomic: a failure stops the run, and jobs moved before it stay moved.
package replay

import (
	"context"
	"fmt"
	"sync"

	uniqw "github.com/UniQw/uniqw-dlq"
)

// DefaultBatchSize is used when Config.BatchSize is not positive.
const DefaultBatchSize = 100

// DefaultDLQNames are the dead-letter queues scanned, in order, when no queue is requested.
var DefaultDLQNames = []string{"stripe-events-dlq", "usage-rollups-dlq", "maintenance-jobs-dlq"}

// DLQNames returns the dead-letter queues to scan: the one belonging to
// requested, or DefaultDLQNames when requested is empty.
func DLQNames(requested string) []string {
	if requested == "" {
		return append([]string(nil), DefaultDLQNames...)
	}
	return []string{uniqw.DLQName(requested)}
}

// Config tunes an Engine.
type Config struct {
	// BatchSize caps the jobs drained per dead-letter queue per run.
	BatchSize int
	Logger    uniqw.Logger
	Metrics   *uniqw.Metrics
	// IDs overrides the identifier generator.
	IDs *IDGenerator
}

// Report summarises a successful run.
type Report struct {
	Replayed int      `json:"replayed"`
	DLQNames []string `json:"dlqNames"`
}

// Engine replays dead-lettered jobs through a Backend.
type Engine struct {
	backend uniqw.Backend
	batch   int
	log     uniqw.Logger
	metrics *uniqw.Metrics
	ids     *IDGenerator
}

// New creates an Engine.
func New(backend uniqw.Backend, cfg Config) *Engine {
	e := &Engine{
		backend: backend,
		batch:   cfg.BatchSize,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		ids:     cfg.IDs,
	}
	if e.batch < 1 {
		e.batch = DefaultBatchSize
	}
	if e.log == nil {
		e.log = nopLogger{}
	}
	if e.ids == nil {
		e.ids = NewIDGenerator()
	}
	return e
}

// Run drains one batch from each of dlqNames in order. Every target queue
// opened during the run is closed exactly once before Run returns, whatever
// the outcome. On error nothing after the failing job is attempted.
func (e *Engine) Run(ctx context.Context, dlqNames []string) (Report, error) {
	targets := make(map[string]uniqw.Queue)
	defer e.closeTargets(context.WithoutCancel(ctx), targets)

	replayed := 0
	for _, name := range dlqNames {
		n, err := e.drain(ctx, name, targets)
		replayed += n
		if err != nil {
			return Report{}, err
		}
	}
	return Report{Replayed: replayed, DLQNames: dlqNames}, nil
}

// drain replays one batch from the dead-letter queue name and reports how many jobs it moved.
func (e *Engine) drain(ctx context.Context, name string, targets map[string]uniqw.Queue) (n int, err error) {
	dlq, err := e.backend.Open(name)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() {
		if cerr := dlq.Close(ctx); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", name, cerr)
		}
	}()

	jobs, err := dlq.Fetch(ctx, uniqw.ReplayableStates, 0, e.batch)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", name, err)
	}
	e.log.Debugf("dlq replay: dlq=%s fetched=%d", name, len(jobs))

	for _, job := range jobs {
		p, err := uniqw.ParseDeadLetter(job.Payload)
		if err != nil {
			e.log.Debugf("dlq replay: skipping id=%s dlq=%s: %v", job.ID, name, err)
			continue
		}

		target, err := e.target(p.OriginalQueue, targets)
		if err != nil {
			return n, err
		}

		id := e.ids.Next(p.OriginalJobID)
		var opts []uniqw.Option
		if p.OriginalOptions != nil {
			opts = append(opts, uniqw.WithJobOptions(*p.OriginalOptions))
		}
		opts = append(opts, uniqw.TaskID(id))

		if _, err := target.Enqueue(ctx, p.OriginalJobName, p.OriginalData, opts...); err != nil {
			return n, fmt.Errorf("replay %s from %s into %s: %w", job.ID, name, p.OriginalQueue, err)
		}
		if err := dlq.Remove(ctx, job); err != nil {
			return n, fmt.Errorf("remove %s from %s: %w", job.ID, name, err)
		}
		n++
		e.metrics.Replayed(name, p.OriginalQueue)
		e.log.Debugf("dlq replay: id=%s dlq=%s queue=%s new_id=%s", job.ID, name, p.OriginalQueue, id)
	}
	return n, nil
}

// target returns the cached handle for queue, opening it on first use.
func (e *Engine) target(queue string, targets map[string]uniqw.Queue) (uniqw.Queue, error) {
	if q, ok := targets[queue]; ok {
		return q, nil
	}
	q, err := e.backend.Open(queue)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", queue, err)
	}
	targets[queue] = q
	return q, nil
}

// closeTargets closes every handle concurrently. Close failures are logged, never returned.
func (e *Engine) closeTargets(ctx context.Context, targets map[string]uniqw.Queue) {
	var wg sync.WaitGroup
	for name, q := range targets {
		wg.Go(func() {
			if err := q.Close(ctx); err != nil {
				e.log.Warnf("dlq replay: close queue=%s err=%v", name, err)
			}
		})
	}
	wg.Wait()
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
