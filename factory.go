package indirectx

import (
	"context"
	"sync"
)

// Resolver is handed to a factory while its instance is being built. It
// resolves contracts as seen from the instance of the node's parent node;
// every lock it takes becomes an owned lock of the new instance, so
// dependencies stay alive exactly as long as their dependent.
type Resolver struct {
	host   *Host
	node   *ProviderNode
	parent *Instance

	mu     sync.Mutex
	locks  []*Lock
	closed bool
}

// Parent returns the instance of the node's parent node the construction
// resolves from. This is also the parent of the new instance, except for
// ResolveOrigin singletons, which are parented to the resolve origin.
func (r *Resolver) Parent() *Instance {
	return r.parent
}

// Node returns the provider node being built.
func (r *Resolver) Node() *ProviderNode {
	return r.node
}

// Resolve resolves id from the parent instance and returns the object. Pass
// the context the factory received.
func (r *Resolver) Resolve(ctx context.Context, id Identifier) (any, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, &IxError{Kind: ErrDisposing, Message: "resolver used after construction finished", Identifier: id}
	}

	lock, err := r.host.resolve(ctx, r.parent, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		lock.Release()
		return nil, &IxError{Kind: ErrDisposing, Message: "resolver used after construction finished", Identifier: id}
	}
	r.locks = append(r.locks, lock)
	return lock.Object(), nil
}

// close stops the resolver and hands over the locks it collected.
func (r *Resolver) close() []*Lock {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	locks := r.locks
	r.locks = nil
	return locks
}
