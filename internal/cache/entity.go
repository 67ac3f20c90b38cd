// Package cache holds the client-side snapshots of server-owned entities.
// Every cache is a small state machine: idle, loading, then succeeded or
// failed, and back to loading on the next fetch.
package cache

import (
	"context"
	"errors"
	"sync"

	"storefront/internal/util"

	"go.uber.org/zap"
)

// Status is the lifecycle state of a cache
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrSuperseded is returned by Fetch when a newer fetch or a direct Set
// replaced the request before its response arrived. The response is dropped.
var ErrSuperseded = errors.New("superseded by a newer request")

// State is a point-in-time copy of an Entity.
type State[T any] struct {
	Status Status `json:"status"`
	Err    string `json:"error,omitempty"`
	Value  T      `json:"value"`
}

// Entity caches a single server snapshot. Only the most recently issued
// request may settle it; older in-flight requests are cancelled and their
// responses discarded.
type Entity[T any] struct {
	name   string
	logger *zap.Logger

	mu     sync.Mutex
	status Status
	err    string
	value  T
	ticket uint64
	cancel context.CancelFunc
	clone  func(T) T
}

// NewEntity creates an idle cache. name labels logs and metrics.
func NewEntity[T any](name string) *Entity[T] {
	return &Entity[T]{
		name:   name,
		status: StatusIdle,
		logger: util.Component("cache").With(zap.String("cache", name)),
	}
}

// WithClone installs a copy function applied to values entering and
// leaving the cache, so callers never alias the stored snapshot.
func (e *Entity[T]) WithClone(fn func(T) T) *Entity[T] {
	e.clone = fn
	return e
}

func (e *Entity[T]) copyOf(v T) T {
	if e.clone == nil {
		return v
	}
	return e.clone(v)
}

func (e *Entity[T]) Name() string {
	return e.name
}

// Snapshot returns the current state.
func (e *Entity[T]) Snapshot() State[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State[T]{Status: e.status, Err: e.err, Value: e.copyOf(e.value)}
}

func (e *Entity[T]) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Entity[T]) Value() T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyOf(e.value)
}

// Fetch runs fn and stores its result. It moves the cache to loading,
// cancels any fetch still in flight and settles to succeeded or failed
// unless a newer request has been issued in the meantime.
func (e *Entity[T]) Fetch(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.ticket++
	ticket := e.ticket
	if e.cancel != nil {
		e.cancel()
	}
	e.cancel = cancel
	e.status = StatusLoading
	e.err = ""
	e.mu.Unlock()

	value, err := fn(fetchCtx)

	e.mu.Lock()
	defer e.mu.Unlock()

	if ticket != e.ticket {
		util.CacheStaleResponsesTotal.WithLabelValues(e.name).Inc()
		e.logger.Debug("Discarding stale response", zap.Uint64("ticket", ticket), zap.Uint64("current", e.ticket))
		var zero T
		return zero, ErrSuperseded
	}
	e.cancel = nil

	if err != nil {
		e.status = StatusFailed
		e.err = err.Error()
		util.CacheFetchTotal.WithLabelValues(e.name, string(StatusFailed)).Inc()
		e.logger.Warn("Fetch failed", zap.Error(err))
		var zero T
		return zero, err
	}

	e.status = StatusSucceeded
	e.err = ""
	e.value = e.copyOf(value)
	util.CacheFetchTotal.WithLabelValues(e.name, string(StatusSucceeded)).Inc()
	return e.copyOf(e.value), nil
}

// Set stores a snapshot confirmed by a mutation. It counts as the newest
// request, so any fetch in flight is cancelled and its response dropped.
func (e *Entity[T]) Set(v T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.supersede()
	e.status = StatusSucceeded
	e.err = ""
	e.value = e.copyOf(v)
}

// Fail records a failure that did not come from Fetch, e.g. a rejected
// mutation. Like Set it supersedes any fetch in flight.
func (e *Entity[T]) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.supersede()
	e.status = StatusFailed
	e.err = err.Error()
}

// Update applies a confirmed mutation to the stored value. A fetch in flight
// was issued before the mutation, so it is superseded; a cache left loading
// by it settles to succeeded.
func (e *Entity[T]) Update(fn func(T) T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.supersede()
	if e.status == StatusLoading {
		e.status = StatusSucceeded
		e.err = ""
	}
	e.value = fn(e.value)
}

// Reset drops the snapshot and returns the cache to idle.
func (e *Entity[T]) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.supersede()
	var zero T
	e.value = zero
	e.status = StatusIdle
	e.err = ""
}

func (e *Entity[T]) supersede() {
	e.ticket++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}
