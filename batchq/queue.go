// Package batchq is an in-memory, time-windowed batching queue.
//
// Entries accumulate in a pending list. The first Enqueue that arrives while no
// timer is outstanding arms a single timer for window + random(-jitter/2, +jitter/2).
// When the timer fires, all pending entries are cut atomically into one batch and
// handed to the FlushFunc in a separate goroutine. Entries that arrive after the
// cut belong to the next batch and arm a fresh timer.
//
// Usage:
// 1. Create a queue instance with `New`, passing a FlushFunc.
// 2. Push entries with `Enqueue`.
// 3. Call `Close` on shutdown to stop the timer and wait for in-flight flushes.
//
// The jitter desynchronizes timers of independent processes so they don't all
// hit the remote endpoint at the same instant.
//
// NOTE: the queue is purely in-memory. Pending entries are lost on process
// restart, callers must treat a restart as "submission lost, resubmit".
package batchq

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrDuplicateKey = errors.New("key already has a pending submission")
	ErrQueueFull    = errors.New("queue is full")
	ErrClosed       = errors.New("queue is closed")
)

const (
	DefaultWindow     = 200 * time.Millisecond
	DefaultJitter     = 60 * time.Millisecond
	DefaultMaxPending = 2048
)

// Entry is one pending submission. It is immutable once enqueued and consumed
// exactly once by the flush.
type Entry struct {
	Key        string
	Payload    []byte
	EnqueuedAt time.Time
}

// FlushFunc receives one cut batch. It must not panic; entries handed to it are
// no longer tracked by the queue once it returns.
type FlushFunc func(ctx context.Context, batch []Entry)

type Config struct {
	Window     time.Duration
	Jitter     time.Duration
	MaxPending int
}

var DefaultConfig = Config{
	Window:     DefaultWindow,
	Jitter:     DefaultJitter,
	MaxPending: DefaultMaxPending,
}

type Queue struct {
	log   *zap.Logger
	flush FlushFunc
	cfg   Config

	mu       sync.Mutex
	pending  []Entry
	keys     map[string]struct{}
	inflight map[string]struct{}
	armed    bool
	timer    *time.Timer
	closed   bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(log *zap.Logger, cfg Config, flush FlushFunc) *Queue {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		log:      log.Named("batchq"),
		flush:    flush,
		cfg:      cfg,
		keys:     make(map[string]struct{}),
		inflight: make(map[string]struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Enqueue appends one entry to the current window. It never blocks on IO and
// returns ErrDuplicateKey while the same key is pending or being submitted.
func (q *Queue) Enqueue(key string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if _, ok := q.keys[key]; ok {
		return ErrDuplicateKey
	}
	if _, ok := q.inflight[key]; ok {
		return ErrDuplicateKey
	}
	if q.cfg.MaxPending > 0 && len(q.pending) >= q.cfg.MaxPending {
		return ErrQueueFull
	}

	q.pending = append(q.pending, Entry{Key: key, Payload: payload, EnqueuedAt: time.Now()})
	q.keys[key] = struct{}{}

	if !q.armed {
		q.armed = true
		window := q.window()
		q.timer = time.AfterFunc(window, q.fire)
		q.log.Debug("armed batch timer", zap.Duration("window", window))
	}
	return nil
}

// window returns the base window adjusted by up to +-jitter/2.
func (q *Queue) window() time.Duration {
	w := q.cfg.Window
	if q.cfg.Jitter > 0 {
		w += time.Duration(rand.Int63n(int64(q.cfg.Jitter))) - q.cfg.Jitter/2 //nolint:gosec
	}
	if w < time.Millisecond {
		w = time.Millisecond
	}
	return w
}

// Armed reports whether a flush timer is currently outstanding.
func (q *Queue) Armed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.armed
}

// PendingLen returns the number of entries waiting in the current window.
func (q *Queue) PendingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// cutLocked removes all pending entries, disarms the timer and marks the cut
// keys in-flight. Caller must hold q.mu.
func (q *Queue) cutLocked() []Entry {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.armed = false
	batch := q.pending
	q.pending = nil
	for _, e := range batch {
		delete(q.keys, e.Key)
		q.inflight[e.Key] = struct{}{}
	}
	return batch
}

// CutBatch atomically removes and returns all currently pending entries.
// Entries enqueued after the cut start the next batch.
func (q *Queue) CutBatch() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cutLocked()
}

func (q *Queue) fire() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	batch := q.cutLocked()
	if len(batch) == 0 {
		q.mu.Unlock()
		return
	}
	q.wg.Add(1)
	q.mu.Unlock()

	q.log.Debug("cut batch", zap.Int("entries", len(batch)))
	go func() {
		defer q.wg.Done()
		q.flush(q.baseCtx, batch)
		q.release(batch)
	}()
}

// release clears the in-flight marks once a batch is fully processed. From this
// point a key is either terminal in the outcome store or free to reuse.
func (q *Queue) release(batch []Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range batch {
		delete(q.inflight, e.Key)
	}
}

// Close stops the timer and waits for in-flight flushes to finish. Pending
// entries that were never cut are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.armed = false
	dropped := len(q.pending)
	q.pending = nil
	q.mu.Unlock()

	if dropped > 0 {
		q.log.Warn("dropping pending entries on shutdown", zap.Int("entries", dropped))
	}
	q.wg.Wait()
	q.cancel()
}
