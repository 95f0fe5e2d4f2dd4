package runtime

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	ikeys "github.com/UniQw/uniqw-dlq/internal/keys"
	"github.com/UniQw/uniqw-dlq/internal/worker"
	"github.com/redis/go-redis/v9"
)

// ErrNoHandler indicates there is no handler for the task type; the runtime will fail the task without retry.
var ErrNoHandler = errors.New("no handler")

// Logger is a minimal logging interface used internally by the runtime.
// It mirrors the public logger in the root package to avoid an import cycle.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

// Outcome classifies what happened to a processed task.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeRetried   Outcome = "retried"
	OutcomeFailed    Outcome = "failed"
)

type Config struct {
	Queues        map[string]int
	Concurrency   int
	VisibilityTTL time.Duration
	Logger        Logger
	// OnFailed receives the final record of a task that will not be retried again.
	OnFailed func(ctx context.Context, queue string, record []byte) error
	// Observe receives one outcome per processed task.
	Observe func(queue string, outcome Outcome)
}

// Executor executes a task. record is the raw task JSON as it was dequeued.
type Executor func(ctx context.Context, taskType string, record []byte) error

type Runtime struct {
	rdb       redis.UniversalClient
	cfg       Config
	exec      Executor
	wg        sync.WaitGroup
	mu        sync.Mutex
	started   bool
	ctx       context.Context
	cancel    context.CancelFunc
	queueList []string
	qmap      map[string]ikeys.Queue
	log       Logger
}

// scheduleOneScript atomically moves one due item from delayed ZSET to pending LIST.
// It returns the moved member on success, or false/nil if none moved.
var scheduleOneScript = redis.NewScript(`
local dkey = KEYS[1]
local pkey = KEYS[2]
local now  = ARGV[1]
local items = redis.call('ZRANGEBYSCORE', dkey, '-inf', now, 'LIMIT', 0, 1)
if #items == 0 then return false end
local m = items[1]
local rem = redis.call('ZREM', dkey, m)
if rem == 1 then
  redis.call('LPUSH', pkey, m)
  return m
end
return false
`)

// reclaimOneScript atomically reclaims one expired active item back to pending.
var reclaimOneScript = redis.NewScript(`
local akey = KEYS[1]
local pkey = KEYS[2]
local now  = ARGV[1]
local items = redis.call('ZRANGEBYSCORE', akey, '-inf', now, 'LIMIT', 0, 1)
if #items == 0 then return false end
local m = items[1]
local rem = redis.call('ZREM', akey, m)
if rem == 1 then
  redis.call('LPUSH', pkey, m)
  return m
end
return false
`)

// New creates a new background runtime that manages workers and maintenance routines.
func New(rdb redis.UniversalClient, cfg Config, exec Executor) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	qmap := make(map[string]ikeys.Queue, len(cfg.Queues))
	for q := range cfg.Queues {
		qmap[q] = ikeys.For(q)
	}
	lg := cfg.Logger
	if lg == nil {
		lg = noopLogger{}
	}
	return &Runtime{
		rdb:       rdb,
		cfg:       cfg,
		exec:      exec,
		ctx:       ctx,
		cancel:    cancel,
		queueList: expandQueues(cfg.Queues),
		qmap:      qmap,
		log:       lg,
	}
}

// Start launches workers and background maintenance goroutines.
func (rt *Runtime) Start() {
	rt.mu.Lock()
	if rt.started {
		rt.log.Warnf("runtime already started; ignoring Start()")
		rt.mu.Unlock()
		return
	}
	rt.started = true
	rt.mu.Unlock()
	rt.log.Infof("runtime starting: concurrency=%d queues=%d", rt.cfg.Concurrency, len(rt.cfg.Queues))

	// workers
	for i := 0; i < rt.cfg.Concurrency; i++ {
		rt.wg.Add(1)
		seed := time.Now().UnixNano() + int64(i)
		rng := rand.New(rand.NewSource(seed))
		go func(r *rand.Rand) {
			defer rt.wg.Done()
			rt.workerLoop(r)
		}(rng)
	}

	for q := range rt.cfg.Queues {
		kset := rt.qmap[q]
		// Delayed scheduler: move due tasks from delayed → pending atomically
		rt.wg.Add(1)
		go func(queue string) {
			defer rt.wg.Done()
			rt.drainLoop(queue, "scheduler", 100*time.Millisecond, scheduleOneScript, kset.Delayed, kset.Pending)
		}(q)

		// Visibility reclaimer: move expired active back to pending atomically (attempts are not counted here)
		rt.wg.Add(1)
		go func(queue string) {
			defer rt.wg.Done()
			rt.drainLoop(queue, "reclaimer", 200*time.Millisecond, reclaimOneScript, kset.Active, kset.Pending)
		}(q)
	}
}

// drainLoop runs script on every tick until it stops moving members or the runtime stops.
func (rt *Runtime) drainLoop(queue, name string, every time.Duration, script *redis.Script, from, to string) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rt.ctx.Done():
			return
		case <-ticker.C:
			now := strconv.FormatInt(time.Now().UnixMilli(), 10)
			// drain up to N per tick to avoid long loops
			for i := 0; i < 256; i++ {
				res, err := script.Run(rt.ctx, rt.rdb, []string{from, to}, now).Result()
				if err == redis.Nil || res == nil || res == false {
					break
				}
				if err != nil {
					rt.log.Warnf("%s: script failed queue=%s err=%v", name, queue, err)
					break
				}
			}
		}
	}
}

// Stop cancels the internal context and waits for all goroutines to exit.
func (rt *Runtime) Stop() {
	rt.mu.Lock()
	if !rt.started {
		rt.log.Warnf("runtime not started; ignoring Stop()")
		rt.mu.Unlock()
		return
	}
	rt.started = false
	rt.mu.Unlock()
	rt.log.Infof("runtime stopping")

	rt.cancel()
	rt.wg.Wait()
}

func (rt *Runtime) workerLoop(rng *rand.Rand) {
	ql := rt.queueList
	if len(ql) == 0 {
		return
	}
	for {
		select {
		case <-rt.ctx.Done():
			return
		default:
		}

		queue := ql[rng.Intn(len(ql))]
		kset := rt.qmap[queue]
		taskObj, raw := worker.DequeueTask(rt.ctx, rt.rdb, kset, rt.cfg.VisibilityTTL)
		if taskObj == nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}

		taskObj.StartedAt = time.Now().UnixMilli()
		if err := rt.exec(rt.ctx, taskObj.Type, raw); err != nil {
			if errors.Is(err, ErrNoHandler) {
				if e := worker.Fail(rt.ctx, rt.rdb, kset, taskObj, raw, "no handler"); e != nil {
					rt.log.Errorf("fail transition failed: id=%s type=%s queue=%s err=%v", taskObj.ID, taskObj.Type, queue, e)
				} else {
					rt.failed(queue, taskObj.ID, worker.Encode(taskObj))
				}
				rt.log.Warnf("no handler for task: id=%s type=%s queue=%s", taskObj.ID, taskObj.Type, queue)
			} else {
				failed, e := worker.RetryOrFail(rt.ctx, rt.rdb, kset, taskObj, raw, err.Error())
				switch {
				case e != nil:
					rt.log.Errorf("retry/fail transition failed: id=%s type=%s queue=%s err=%v", taskObj.ID, taskObj.Type, queue, e)
				case failed:
					rt.log.Warnf("attempts exhausted: id=%s type=%s queue=%s attempts=%d err=%v", taskObj.ID, taskObj.Type, queue, taskObj.AttemptsMade, err)
					rt.failed(queue, taskObj.ID, worker.Encode(taskObj))
				default:
					rt.log.Warnf("handler error: id=%s type=%s queue=%s attempt=%d err=%v", taskObj.ID, taskObj.Type, queue, taskObj.AttemptsMade, err)
					rt.observe(queue, OutcomeRetried)
				}
			}
			worker.Recycle(taskObj)
			continue
		}

		if e := worker.Complete(rt.ctx, rt.rdb, kset, taskObj, raw); e != nil {
			rt.log.Errorf("complete failed: id=%s type=%s queue=%s err=%v", taskObj.ID, taskObj.Type, queue, e)
		} else {
			rt.log.Debugf("processed: id=%s type=%s queue=%s", taskObj.ID, taskObj.Type, queue)
			rt.observe(queue, OutcomeSucceeded)
		}
		worker.Recycle(taskObj)
	}
}

// failed reports a final failure and hands the record to the OnFailed hook.
func (rt *Runtime) failed(queue, id string, record []byte) {
	rt.observe(queue, OutcomeFailed)
	if rt.cfg.OnFailed == nil {
		return
	}
	if err := rt.cfg.OnFailed(rt.ctx, queue, record); err != nil {
		rt.log.Errorf("on-failed hook: id=%s queue=%s err=%v", id, queue, err)
	}
}

func (rt *Runtime) observe(queue string, o Outcome) {
	if rt.cfg.Observe != nil {
		rt.cfg.Observe(queue, o)
	}
}

// CfgConcurrency exposes configured worker concurrency.
func (rt *Runtime) CfgConcurrency() int { return rt.cfg.Concurrency }

// CfgQueues exposes configured queues mapping.
func (rt *Runtime) CfgQueues() map[string]int { return rt.cfg.Queues }

func expandQueues(q map[string]int) []string {
	// Rough preallocation
	n := 0
	for _, w := range q {
		n += w
	}
	out := make([]string, 0, n)
	for name, weight := range q {
		for i := 0; i < weight; i++ {
			out = append(out, name)
		}
	}
	return out
}
