package indirectx

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_RootInstanceIsIdempotent(t *testing.T) {
	h := mustHost(t, HostConfig{})

	const callers = 20
	instances := make([]*Instance, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			instances[i] = h.RootInstance()
		}(i)
	}
	wg.Wait()

	for _, inst := range instances {
		assert.Same(t, instances[0], inst)
	}
	assert.Nil(t, instances[0].Parent())
	assert.Same(t, h.Root(), instances[0].ProviderNode())

	viaNode, err := h.Root().GetRootInstance()
	require.NoError(t, err)
	assert.Same(t, instances[0], viaNode)
	assert.Equal(t, 1, h.InstanceCount())
}

func TestScope_GetRootInstanceOnNestedScope(t *testing.T) {
	h := mustHost(t, HostConfig{Nodes: []NodeConfig{
		Scope("request"),
	}})

	inst, err := h.Root().Nodes()[0].GetRootInstance()
	assert.Nil(t, inst)
	assert.ErrorIs(t, err, ErrNotRootScope)
}

func TestScope_ExactlyOncePerParent(t *testing.T) {
	h := mustHost(t, HostConfig{Nodes: []NodeConfig{
		Scope("request"),
	}})

	const resolvers = 20
	locks := make([]*Lock, resolvers)
	var wg sync.WaitGroup
	for i := 0; i < resolvers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lock, err := h.Resolve(context.Background(), nil, ScopeID("request"))
			assert.NoError(t, err)
			locks[i] = lock
		}(i)
	}
	wg.Wait()

	for _, lock := range locks {
		require.NotNil(t, lock)
		assert.Same(t, locks[0].Instance(), lock.Instance())
		lock.Release()
	}

	scope := locks[0].Instance()
	assert.Same(t, scope, scope.Object())
	assert.Same(t, h.RootInstance(), scope.Parent())
	assert.Equal(t, KindScope, scope.ProviderNode().Kind())
	assert.Equal(t, 2, h.InstanceCount())
}

func TestScope_SingletonPerScopeInstance(t *testing.T) {
	h := mustHost(t, HostConfig{Nodes: []NodeConfig{
		Scope("a", Singleton[*testDatabase](databaseFactory("a"))),
		Scope("b", Singleton[*testDatabase](databaseFactory("b"))),
	}})

	a := mustScope(t, h, nil, "a")
	b := mustScope(t, h, nil, "b")

	dbA, l1, err := Resolve[*testDatabase](context.Background(), h, a)
	require.NoError(t, err)
	defer l1.Release()
	dbB, l2, err := Resolve[*testDatabase](context.Background(), h, b)
	require.NoError(t, err)
	defer l2.Release()

	assert.Equal(t, "a", dbA.name)
	assert.Equal(t, "b", dbB.name)
	assert.Same(t, a, l1.Instance().Parent())
	assert.Same(t, b, l2.Instance().Parent())
}

func TestScope_RecreatedAfterDispose(t *testing.T) {
	h := mustHost(t, HostConfig{Nodes: []NodeConfig{
		Scope("request"),
	}})

	first := mustScope(t, h, nil, "request")
	require.NoError(t, waitDisposed(t, first.Dispose()))
	assert.True(t, first.IsDisposed())
	assert.Nil(t, h.lookup(first.ID()))

	second := mustScope(t, h, nil, "request")
	assert.NotEqual(t, first.ID(), second.ID())
	assert.False(t, second.IsDisposing())
}
