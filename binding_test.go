package indirectx

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boundService(binding ScopeBinding, calls *atomic.Int32) NodeConfig {
	cfg := Singleton[*testService](countingFactory(calls))
	cfg.ScopeBinding = binding
	return cfg
}

type servicePair struct {
	first, second *testService
}

// pairFactory resolves *testService twice within one construction.
func pairFactory(ctx context.Context, r *Resolver) (any, error) {
	first, err := Require[*testService](ctx, r)
	if err != nil {
		return nil, err
	}
	second, err := Require[*testService](ctx, r)
	if err != nil {
		return nil, err
	}
	return &servicePair{first: first, second: second}, nil
}

func TestBinding_Registration(t *testing.T) {
	var calls atomic.Int32
	h := mustHost(t, HostConfig{Nodes: []NodeConfig{
		boundService(Registration, &calls),
		Scope("a"),
		Scope("b"),
	}})

	a := mustScope(t, h, nil, "a")
	b := mustScope(t, h, nil, "b")

	l1 := mustResolve(t, h, a, IdentifierOf[*testService]())
	defer l1.Release()
	l2 := mustResolve(t, h, b, IdentifierOf[*testService]())
	defer l2.Release()

	assert.Equal(t, int32(1), calls.Load())
	assert.Same(t, l1.Instance(), l2.Instance())
	assert.Same(t, h.RootInstance(), l1.Instance().Parent())
}

func TestBinding_ResolveOrigin(t *testing.T) {
	var calls atomic.Int32
	h := mustHost(t, HostConfig{Nodes: []NodeConfig{
		boundService(ResolveOrigin, &calls),
		Scope("a"),
		Scope("b"),
	}})

	a := mustScope(t, h, nil, "a")
	b := mustScope(t, h, nil, "b")

	la1 := mustResolve(t, h, a, IdentifierOf[*testService]())
	defer la1.Release()
	la2 := mustResolve(t, h, a, IdentifierOf[*testService]())
	defer la2.Release()
	lb := mustResolve(t, h, b, IdentifierOf[*testService]())
	defer lb.Release()

	assert.Equal(t, int32(2), calls.Load())
	assert.Same(t, la1.Instance(), la2.Instance())
	assert.NotSame(t, la1.Instance(), lb.Instance())
	assert.Same(t, a, la1.Instance().Parent())
	assert.Same(t, b, lb.Instance().Parent())
}

func TestBinding_ResolveOriginDiesWithOrigin(t *testing.T) {
	var calls atomic.Int32
	h := mustHost(t, HostConfig{Nodes: []NodeConfig{
		boundService(ResolveOrigin, &calls),
		Scope("a"),
	}})

	a := mustScope(t, h, nil, "a")
	lock := mustResolve(t, h, a, IdentifierOf[*testService]())
	svc := lock.Instance()
	lock.Release()

	require.NoError(t, waitDisposed(t, a.Dispose()))
	assert.True(t, svc.IsDisposed())

	// The registration scope is unaffected.
	assert.False(t, h.RootInstance().IsDisposing())
}

func TestBinding_ResolveOriginFactoryResolvesFromRegistration(t *testing.T) {
	seen := make(chan *Instance, 2)
	svc := Singleton[*testService](func(ctx context.Context, r *Resolver) (any, error) {
		seen <- r.Parent()
		db, err := Require[*testDatabase](ctx, r)
		if err != nil {
			return nil, err
		}
		return &testService{name: db.name}, nil
	})
	svc.ScopeBinding = ResolveOrigin
	scoped := Scope("s", Singleton[*testDatabase](databaseFactory("scoped")), svc)
	scoped.ExportToParentFilter = Allow(IdentifierOf[*testService]())
	h := mustHost(t, HostConfig{Nodes: []NodeConfig{scoped}})

	// The database is only visible inside s, so resolving from the root
	// works only if the factory looks from the registration scope.
	fromRoot, rootLock, err := Resolve[*testService](context.Background(), h, nil)
	require.NoError(t, err)
	defer rootLock.Release()

	s := mustScope(t, h, nil, "s")
	fromScope, scopeLock, err := Resolve[*testService](context.Background(), h, s)
	require.NoError(t, err)
	defer scopeLock.Release()

	assert.Equal(t, "scoped", fromRoot.name)
	assert.Equal(t, "scoped", fromScope.name)
	assert.NotSame(t, rootLock.Instance(), scopeLock.Instance())
	assert.Same(t, h.RootInstance(), rootLock.Instance().Parent())
	assert.Same(t, s, scopeLock.Instance().Parent())
	assert.Same(t, s, <-seen)
	assert.Same(t, s, <-seen)
}

func TestBinding_PerResolve(t *testing.T) {
	var calls atomic.Int32
	h := mustHost(t, HostConfig{Nodes: []NodeConfig{
		boundService(PerResolve, &calls),
		Transient[*servicePair](pairFactory),
	}})

	pair, lock, err := Resolve[*servicePair](context.Background(), h, nil)
	require.NoError(t, err)
	defer lock.Release()

	assert.Same(t, pair.first, pair.second)
	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, lock.Instance().OwnedLocks(), 2)

	// Separate top-level resolutions do not share.
	l1 := mustResolve(t, h, nil, IdentifierOf[*testService]())
	defer l1.Release()
	l2 := mustResolve(t, h, nil, IdentifierOf[*testService]())
	defer l2.Release()
	assert.NotSame(t, l1.Instance(), l2.Instance())
	assert.Equal(t, int32(3), calls.Load())
	assert.Same(t, h.RootInstance(), l1.Instance().Parent())
}

func TestBinding_PerQuery(t *testing.T) {
	var calls atomic.Int32
	h := mustHost(t, HostConfig{Nodes: []NodeConfig{
		boundService(PerQuery, &calls),
		Transient[*servicePair](pairFactory),
	}})

	pair, lock, err := Resolve[*servicePair](context.Background(), h, nil)
	require.NoError(t, err)
	defer lock.Release()

	assert.NotSame(t, pair.first, pair.second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestBinding_String(t *testing.T) {
	assert.Equal(t, "registration", Registration.String())
	assert.Equal(t, "resolve-origin", ResolveOrigin.String())
	assert.Equal(t, "per-resolve", PerResolve.String())
	assert.Equal(t, "per-query", PerQuery.String())
	assert.Equal(t, "unknown", ScopeBinding(42).String())

	assert.Equal(t, "scope", KindScope.String())
	assert.Equal(t, "singleton", KindSingleton.String())
	assert.Equal(t, "transient", KindTransient.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
