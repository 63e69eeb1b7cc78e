package indirectx

import (
	"context"
)

// scopeInstance materializes a nested scope under parent. A scope exists at
// most once per parent instance and follows the same exactly-once protocol
// as a registration-bound singleton; it has no factory and its object is the
// scope instance itself.
func scopeInstance(ctx context.Context, n *ProviderNode, parent *Instance) (*Lock, error) {
	return n.host.sharedInstance(ctx, n, parent, parent, nil)
}
