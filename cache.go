package indirectx

import (
	"context"
	"sync"
)

// cellState is the state of a single data slot of an instance (or of a
// per-resolve cache).
type cellState int

const (
	// cellEmpty is never stored; an absent map entry is the empty state.
	cellEmpty cellState = iota
	cellBuilding
	cellReady
)

// cell holds the outcome of one shared construction. While building, done is
// open and every resolver asking for the same slot waits on it. It is closed
// exactly once, after instance or err has been set.
//
// A failed construction removes its cell from the slot table before done is
// closed, so waiters that already joined observe the error and the next
// resolver starts a fresh construction.
type cell struct {
	state    cellState
	done     chan struct{}
	instance *Instance
	err      error
}

func newBuildingCell() *cell {
	return &cell{
		state: cellBuilding,
		done:  make(chan struct{}),
	}
}

// wait blocks until the construction finishes or ctx is done. Abandoning the
// wait does not cancel the construction.
func (c *cell) wait(ctx context.Context) (*Instance, error) {
	select {
	case <-c.done:
		return c.instance, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolveFrame carries the state shared by one top-level Resolve call and
// every nested resolution its factories perform. mu is taken after the host
// tree lock and before any instance data mutex.
type resolveFrame struct {
	mu     sync.Mutex
	tables map[InstanceID]map[*ProviderNode]*cell
}

// table returns the slot table the frame keeps for parent. Must be called
// with f.mu held.
func (f *resolveFrame) table(parent *Instance) map[*ProviderNode]*cell {
	t, ok := f.tables[parent.id]
	if !ok {
		t = map[*ProviderNode]*cell{}
		f.tables[parent.id] = t
	}
	return t
}

type frameKeyType int

const (
	frameKey frameKeyType = iota
	originKey
)

func frameFrom(ctx context.Context) *resolveFrame {
	f, _ := ctx.Value(frameKey).(*resolveFrame)
	return f
}

// withFrame makes sure ctx carries a resolve frame, starting a new one for a
// top-level call.
func withFrame(ctx context.Context) context.Context {
	if frameFrom(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, frameKey, &resolveFrame{tables: map[InstanceID]map[*ProviderNode]*cell{}})
}

func withOrigin(ctx context.Context, origin *Instance) context.Context {
	return context.WithValue(ctx, originKey, origin)
}

func originFrom(ctx context.Context) *Instance {
	o, _ := ctx.Value(originKey).(*Instance)
	return o
}
