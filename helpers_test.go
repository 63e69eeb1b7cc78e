package indirectx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testDatabase struct {
	name   string
	closed atomic.Bool
}

func (d *testDatabase) Close() error {
	d.closed.Store(true)
	return nil
}

type testRepository struct {
	db *testDatabase
}

type testService struct {
	name string
}

type testDisposer struct {
	disposed atomic.Int32
}

func (d *testDisposer) Dispose(ctx context.Context) error {
	d.disposed.Add(1)
	return nil
}

// recorder collects teardown events in the order they happen.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) handler(event string) DisposeHandler {
	return func(ctx context.Context, object any) error {
		r.add(event)
		return nil
	}
}

func databaseFactory(name string) Factory {
	return func(ctx context.Context, r *Resolver) (any, error) {
		return &testDatabase{name: name}, nil
	}
}

func repositoryFactory(ctx context.Context, r *Resolver) (any, error) {
	db, err := Require[*testDatabase](ctx, r)
	if err != nil {
		return nil, err
	}
	return &testRepository{db: db}, nil
}

// countingFactory returns a factory that counts its calls and builds a new
// testService each time.
func countingFactory(calls *atomic.Int32) Factory {
	return func(ctx context.Context, r *Resolver) (any, error) {
		n := calls.Add(1)
		return &testService{name: fmt.Sprintf("service-%d", n)}, nil
	}
}

var errTestFactory = errors.New("factory failure")

func mustHost(t testing.TB, cfg HostConfig, opts ...HostOption) *Host {
	t.Helper()
	h, err := NewHost(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.Close(ctx)
	})
	return h
}

func mustResolve(t testing.TB, h *Host, from *Instance, id Identifier) *Lock {
	t.Helper()
	lock, err := h.Resolve(context.Background(), from, id)
	require.NoError(t, err)
	require.NotNil(t, lock)
	return lock
}

// mustScope materializes the named scope below from and returns its
// instance. The lock on the scope is released right away; the scope stays
// alive in its parent's slot.
func mustScope(t testing.TB, h *Host, from *Instance, name string) *Instance {
	t.Helper()
	lock := mustResolve(t, h, from, ScopeID(name))
	defer lock.Release()
	inst, ok := lock.Object().(*Instance)
	require.True(t, ok)
	return inst
}

func waitDisposed(t testing.TB, d *Disposal) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := d.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return err
}

func isDone(d *Disposal, within time.Duration) bool {
	select {
	case <-d.Done():
		return true
	case <-time.After(within):
		return false
	}
}
