package indirectx

import (
	"context"

	"go.uber.org/zap"
)

// singletonInstance picks the slot the singleton is shared through according
// to the node's scope binding and returns a lock on the shared instance.
func singletonInstance(ctx context.Context, n *ProviderNode, parent *Instance) (*Lock, error) {
	switch n.binding {
	case ResolveOrigin:
		owner := originFrom(ctx)
		if owner == nil {
			owner = parent
		}
		return n.host.sharedInstance(ctx, n, owner, parent, nil)
	case PerResolve:
		frame := frameFrom(ctx)
		if frame == nil {
			// Without a surrounding Resolve call the query is its own resolve.
			ctx = withFrame(ctx)
			frame = frameFrom(ctx)
		}
		return n.host.sharedInstance(ctx, n, parent, parent, frame)
	case PerQuery:
		return n.host.freshInstance(ctx, n, parent)
	default:
		return n.host.sharedInstance(ctx, n, parent, parent, nil)
	}
}

// sharedInstance is the exactly-once construction protocol. The slot for n
// lives in owner's slot table, or in frame when one is given, and the new
// instance becomes a child of owner. The factory always resolves from base,
// the instance of n's parent node, so what it can see does not depend on
// where the resolution started. For any given slot at most one construction
// runs at a time; every resolver that arrives while it runs waits for the
// same outcome.
//
//  1. Take the host tree lock, then the frame lock (if any), then the owner's
//     data mutex.
//  2. Ready slot: lock the cached instance and return without waiting.
//     Building slot: wait on it. Empty slot: store a building cell, start the
//     construction in its own goroutine and wait on the cell.
//  3. All locks are released before waiting.
func (h *Host) sharedInstance(ctx context.Context, n *ProviderNode, owner, base *Instance, frame *resolveFrame) (*Lock, error) {
	ctx, err := enterConstruction(ctx, n, owner)
	if err != nil {
		h.metrics.resolveFailed(err)
		return nil, err
	}

	h.treeMu.Lock()
	if frame != nil {
		frame.mu.Lock()
	}
	owner.mu.Lock()

	unlock := func() {
		owner.mu.Unlock()
		if frame != nil {
			frame.mu.Unlock()
		}
		h.treeMu.Unlock()
	}

	if owner.state != stateLive {
		unlock()
		err := disposingError(owner)
		h.metrics.resolveFailed(err)
		return nil, err
	}

	cells := owner.slots
	if frame != nil {
		cells = frame.table(owner)
	}

	c, found := cells[n]
	switch {
	case found && c.state == cellReady:
		inst := c.instance
		unlock()
		return inst.acquireLock(nil)
	case found:
		unlock()
		h.metrics.coalesced()
	default:
		// owner.state was checked above, so this cannot fail.
		_ = owner.beginBuildLocked()
		c = newBuildingCell()
		cells[n] = c
		unlock()
		go h.build(ctx, n, owner, base, frame, c)
	}

	inst, err := c.wait(ctx)
	if err != nil {
		h.metrics.resolveFailed(err)
		return nil, err
	}
	return inst.acquireLock(nil)
}

// build runs the factory for a shared slot of owner and publishes the
// outcome in c.
func (h *Host) build(ctx context.Context, n *ProviderNode, owner, base *Instance, frame *resolveFrame, c *cell) {
	defer owner.building.Done()

	object, locks, err := h.construct(ctx, n, base)

	var inst *Instance
	h.treeMu.Lock()
	if frame != nil {
		frame.mu.Lock()
	}
	owner.mu.Lock()
	cells := owner.slots
	if frame != nil {
		cells = frame.table(owner)
	}
	if err != nil {
		delete(cells, n)
		c.err = err
	} else {
		inst = newInstance(h, n, owner, object)
		h.attachLocked(inst, owner)
		c.instance = inst
		c.state = cellReady
	}
	owner.mu.Unlock()
	if frame != nil {
		frame.mu.Unlock()
	}
	h.treeMu.Unlock()

	if err == nil {
		h.published(inst, locks)
	}
	close(c.done)
}

// freshInstance builds an unshared instance under parent in the caller's
// goroutine. It follows the construction and error rules of shared
// instances but never touches a slot.
func (h *Host) freshInstance(ctx context.Context, n *ProviderNode, parent *Instance) (*Lock, error) {
	ctx, err := enterConstruction(ctx, n, parent)
	if err != nil {
		h.metrics.resolveFailed(err)
		return nil, err
	}

	parent.mu.Lock()
	err = parent.beginBuildLocked()
	parent.mu.Unlock()
	if err != nil {
		h.metrics.resolveFailed(err)
		return nil, err
	}
	defer parent.building.Done()

	object, locks, err := h.construct(ctx, n, parent)
	if err != nil {
		h.metrics.resolveFailed(err)
		return nil, err
	}

	inst := newInstance(h, n, parent, object)
	h.treeMu.Lock()
	h.attachLocked(inst, parent)
	h.treeMu.Unlock()
	h.published(inst, locks)

	return inst.acquireLock(nil)
}

// published finishes the bookkeeping of a new instance once it is in the
// tree: the locks its factory took become owned locks, and immediate
// children are started.
func (h *Host) published(inst *Instance, locks []*Lock) {
	for _, l := range locks {
		if l.IsReleased() {
			continue
		}
		if err := l.Own(inst); err != nil {
			l.Release()
		}
	}
	h.metrics.instanceCreated()
	h.logger.Debug("instance created",
		zap.String("node", inst.node.path),
		zap.Stringer("instance", inst.id),
		zap.Int("owned_locks", len(locks)))
	h.startImmediate(inst)
}
