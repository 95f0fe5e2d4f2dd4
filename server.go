package uniqw

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	rtm "github.com/UniQw/uniqw-dlq/internal/runtime"
	"github.com/redis/go-redis/v9"
)

// ServerConfig defines the configuration for a UniQw server.
type ServerConfig struct {
	// Queues defines the queues to process and their relative weights.
	Queues map[string]int
	// Concurrency is the number of worker goroutines.
	Concurrency int
	// VisibilityTTL is the duration for which a task is leased by a worker.
	// If the worker fails or crashes, the task will be reclaimed after this TTL.
	VisibilityTTL time.Duration
	// Logger is the logger used for server events.
	Logger Logger
	// DeadLetterSuffix, when set, routes every task that failed for good into
	// the queue named <queue><suffix> as a DeadLetterPayload. Use DLQSuffix for
	// queues drained by the replay tool.
	DeadLetterSuffix string
	// Metrics receives processing counters. Nil disables them.
	Metrics *Metrics
}

// Server processes tasks from Redis queues using workers.
type Server struct {
	rt      *rtm.Runtime
	mux     *Mux
	client  *Client
	suffix  string
	metrics *Metrics
	mu      sync.Mutex
	started bool
	log     Logger
}

// NewServer creates a new UniQw server.
func NewServer(rdb redis.UniversalClient, cfg ServerConfig, mux *Mux) *Server {
	l := cfg.Logger
	if l == nil {
		l = NewFmtLogger()
	}
	client := NewClient(rdb)
	client.metrics = cfg.Metrics
	s := &Server{
		mux:     mux,
		client:  client,
		suffix:  cfg.DeadLetterSuffix,
		metrics: cfg.Metrics,
		log:     l,
	}

	rtc := rtm.Config{
		Queues:        cfg.Queues,
		Concurrency:   cfg.Concurrency,
		VisibilityTTL: cfg.VisibilityTTL,
		Logger:        rtLogger{Logger: l},
		Observe: func(queue string, o rtm.Outcome) {
			s.metrics.processed(queue, string(o))
		},
	}
	if s.suffix != "" {
		rtc.OnFailed = s.deadLetter
	}
	s.rt = rtm.New(rdb, rtc, s.exec)
	return s
}

func (s *Server) exec(ctx context.Context, jobName string, record []byte) error {
	h, ok := s.mux.lookup(jobName)
	if !ok {
		return rtm.ErrNoHandler
	}
	var t Task
	if err := s.mux.encoder.Decode(record, &t); err != nil {
		return fmt.Errorf("decode task: %w", err)
	}
	return h(ctx, t.Payload)
}

// deadLetter enqueues the final record of a failed task into its dead-letter queue.
// Tasks already in a dead-letter queue are not routed again.
func (s *Server) deadLetter(ctx context.Context, queue string, record []byte) error {
	if strings.HasSuffix(queue, s.suffix) {
		return nil
	}
	var t Task
	if err := s.mux.encoder.Decode(record, &t); err != nil {
		return fmt.Errorf("decode failed task: %w", err)
	}
	dlq := queue + s.suffix
	if _, err := s.client.Enqueue(ctx, dlq, t.Type, NewDeadLetter(&t)); err != nil {
		return fmt.Errorf("enqueue into %s: %w", dlq, err)
	}
	s.metrics.deadLettered(queue)
	s.log.Infof("dead-lettered: id=%s type=%s queue=%s dlq=%s", t.ID, t.Type, queue, dlq)
	return nil
}

// Start launches the server workers and background maintenance routines.
// It is idempotent and non-blocking.
func (s *Server) Start() {
	s.mu.Lock()
	if s.started {
		s.log.Warnf("server already started; ignoring Start()")
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()
	s.log.Infof("starting server: concurrency=%d queues=%d", s.rt.CfgConcurrency(), len(s.rt.CfgQueues()))
	s.rt.Start()
}

// Stop gracefully shuts down the server, waiting for workers to finish current tasks.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.started {
		s.log.Warnf("server not started; ignoring Stop()")
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()
	s.log.Infof("stopping server")
	s.rt.Stop()
}

// rtLogger adapts the public Logger to the internal runtime logger interface.
type rtLogger struct{ Logger }
