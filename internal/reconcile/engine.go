package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jask/vareditor/internal/variables"
)

const (
	DefaultInterval = 200 * time.Millisecond
	DefaultBackoff  = time.Second
)

// Status is the engine's lifecycle state.
type Status int

const (
	Idle Status = iota
	Polling
)

func (s Status) String() string {
	if s == Polling {
		return "polling"
	}
	return "idle"
}

// Target receives the engine's decisions. Both methods are called with the
// UI lock held and must not take it again.
type Target interface {
	// PatchValues updates displayed values of existing rows in place.
	PatchValues(scope variables.Scope, values map[string]string)
	// RebuildScope recreates every row of scope. An error means the rows
	// still show the previous state.
	RebuildScope(scope variables.Scope) error
}

// Options tune an Engine. Zero values select the defaults.
type Options struct {
	Interval time.Duration
	Backoff  time.Duration
	// UI is held for the whole of every tick. Callers that mutate rows or
	// collections share it with the engine.
	UI     sync.Locker
	Logger *zap.Logger
}

// Engine runs the polling loop for one panel.
type Engine struct {
	store    *variables.Store
	target   Target
	ui       sync.Locker
	interval time.Duration
	backoff  time.Duration
	log      *zap.Logger

	// mu guards the fields below. Lock order: ui, then mu.
	mu     sync.Mutex
	status Status
	gen    uint64
	cancel context.CancelFunc
	snap   Snapshot

	wg sync.WaitGroup
}

func New(store *variables.Store, target Target, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.UI == nil {
		opts.UI = &sync.Mutex{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		store:    store,
		target:   target,
		ui:       opts.UI,
		interval: opts.Interval,
		backoff:  opts.Backoff,
		log:      opts.Logger,
	}
}

// Start begins polling. It does nothing while already polling. A failed
// initial capture leaves an empty snapshot, so the first good tick rebuilds
// every scope.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == Polling {
		return
	}
	snap, err := e.capture()
	if err != nil {
		e.log.Warn("initial snapshot failed", zap.Error(err))
		snap = Snapshot{}
	}
	e.snap = snap
	e.status = Polling
	e.gen++
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.wg.Add(1)
	go e.run(ctx, e.gen)
	e.log.Debug("reconcile loop started", zap.Uint64("gen", e.gen))
}

// Stop ends polling before the next tick. A tick already running finishes.
// Stopping an idle engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == Idle {
		return
	}
	e.status = Idle
	e.cancel()
	e.cancel = nil
	e.log.Debug("reconcile loop stopped", zap.Uint64("gen", e.gen))
}

// Wait blocks until every loop goroutine started so far has exited.
func (e *Engine) Wait() { e.wg.Wait() }

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Snapshot returns the state the engine currently compares against.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Resync captures the live state as the new snapshot. The panel calls it,
// with the UI lock held, right after applying its own change so the next
// tick does not act on it a second time. Scopes marked stale stay marked.
func (e *Engine) Resync() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap, err := e.capture()
	if err != nil {
		return err
	}
	for _, scope := range variables.Scopes {
		if e.snap.Stale(scope) {
			snap.invalidate(scope)
		}
	}
	e.snap = snap
	return nil
}

// Invalidate makes the next tick rebuild scope even when its contents did
// not change. The panel calls it when rows could not be built.
func (e *Engine) Invalidate(scope variables.Scope) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap.invalidate(scope)
}

// Tick runs one reconciliation pass now. It must not be called with the UI
// lock held. An idle engine does nothing.
func (e *Engine) Tick() error {
	e.mu.Lock()
	gen := e.gen
	e.mu.Unlock()
	return e.tick(gen)
}

func (e *Engine) run(ctx context.Context, gen uint64) {
	defer e.wg.Done()
	timer := time.NewTimer(e.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		delay := e.interval
		if err := e.tick(gen); err != nil {
			e.log.Warn("reconcile tick failed", zap.Error(err), zap.Duration("retry_in", e.backoff))
			delay = e.backoff
		}
		timer.Reset(delay)
	}
}

func (e *Engine) tick(gen uint64) (err error) {
	e.ui.Lock()
	defer e.ui.Unlock()

	changes, err := e.detect(gen)
	if err != nil || len(changes) == 0 {
		return err
	}
	applied := 0
	defer func() {
		if r := recover(); r != nil {
			for _, c := range changes[applied:] {
				e.Invalidate(c.Scope)
			}
			err = fmt.Errorf("apply changes: %v", r)
		}
	}()
	var errs []error
	for _, c := range changes {
		if c.Structural {
			e.log.Debug("key set changed", zap.Stringer("scope", c.Scope))
			if rerr := e.target.RebuildScope(c.Scope); rerr != nil {
				e.Invalidate(c.Scope)
				errs = append(errs, fmt.Errorf("rebuild %s: %w", c.Scope, rerr))
			}
		} else {
			e.target.PatchValues(c.Scope, c.Values)
		}
		applied++
	}
	return errors.Join(errs...)
}

// detect compares live state with the snapshot and swaps in the new
// snapshot when they differ. A stale generation observes nothing.
func (e *Engine) detect(gen uint64) (changes []ScopeChange, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != Polling || e.gen != gen {
		return nil, nil
	}
	next, err := e.capture()
	if err != nil {
		return nil, err
	}
	changes = Diff(e.snap, next)
	if len(changes) > 0 {
		e.snap = next
	}
	return changes, nil
}

// capture reads both scopes. Host accessors may panic while their state is
// inconsistent; that is reported as an error like any other read failure.
func (e *Engine) capture() (snap Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read variables: %v", r)
		}
	}()
	local, err := e.store.All(variables.Local)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read local variables: %w", err)
	}
	global, err := e.store.All(variables.Global)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read global variables: %w", err)
	}
	return Capture(local, global)
}
