package indirectx

import (
	"context"
)

// transientInstance builds a new instance on every call. Transients are
// parented like singletons, so they are disposed with their parent, but they
// are never cached in a slot.
func transientInstance(ctx context.Context, n *ProviderNode, parent *Instance) (*Lock, error) {
	return n.host.freshInstance(ctx, n, parent)
}
