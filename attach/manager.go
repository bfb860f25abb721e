// Package attach counts nested attachments per goroutine so that only the
// outermost Acquire attaches and only the matching Release detaches.
package attach

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/petermattis/goid"
	"go.uber.org/zap"

	"github.com/wippyai/honeycomb/engine"
	"github.com/wippyai/honeycomb/errors"
)

// Attacher physically attaches and detaches the calling goroutine.
// *engine.VM implements it.
type Attacher interface {
	Attach(ctx context.Context) (*engine.Env, error)
	Detach(ctx context.Context, env *engine.Env) error
}

var attachFailed = &errors.Error{Phase: errors.PhaseAttach, Kind: errors.KindAttachFailed}

type attachment struct {
	env   *engine.Env
	count int
}

// Manager tracks the attachment count of every goroutine. Each goroutine
// only ever touches its own entry; the mutex guards the map itself.
type Manager struct {
	attacher Attacher
	logger   *zap.Logger
	threads  map[int64]*attachment
	mu       sync.Mutex
}

// NewManager creates a manager attaching through a.
func NewManager(a Attacher, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		attacher: a,
		logger:   logger,
		threads:  make(map[int64]*attachment),
	}
}

func (m *Manager) lookup(id int64) *attachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threads[id]
}

// Acquire returns the calling goroutine's Env, attaching it first when it
// holds no attachment yet. Every successful Acquire must be paired with a
// Release on the same goroutine.
func (m *Manager) Acquire(ctx context.Context) (*engine.Env, error) {
	id := goid.Get()
	if a := m.lookup(id); a != nil {
		a.count++
		return a.env, nil
	}

	env, err := m.attacher.Attach(ctx)
	if err != nil {
		if stderrors.Is(err, attachFailed) {
			return nil, err
		}
		return nil, errors.AttachFailed(err)
	}

	m.mu.Lock()
	m.threads[id] = &attachment{env: env, count: 1}
	m.mu.Unlock()
	m.logger.Debug("goroutine attached", zap.Int64("goroutine", id))
	return env, nil
}

// Release drops one attachment of the calling goroutine and detaches it
// when none remain. Releasing without an attachment is a no-op.
func (m *Manager) Release(ctx context.Context) error {
	id := goid.Get()
	a := m.lookup(id)
	if a == nil {
		return nil
	}
	a.count--
	if a.count > 0 {
		return nil
	}

	m.mu.Lock()
	delete(m.threads, id)
	m.mu.Unlock()
	m.logger.Debug("goroutine detached", zap.Int64("goroutine", id))
	return m.attacher.Detach(ctx, a.env)
}

// Do runs fn between Acquire and Release. The attachment is released on
// every path, including a panic in fn.
func (m *Manager) Do(ctx context.Context, fn func(env *engine.Env) error) (err error) {
	env, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := m.Release(ctx); err == nil {
			err = rerr
		}
	}()
	return fn(env)
}

// Count returns the calling goroutine's attachment count.
func (m *Manager) Count() int {
	if a := m.lookup(goid.Get()); a != nil {
		return a.count
	}
	return 0
}

// Attached returns the number of goroutines currently attached.
func (m *Manager) Attached() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.threads)
}
