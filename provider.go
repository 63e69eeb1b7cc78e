package indirectx

import (
	"context"
	"fmt"
)

// ProviderNode is the immutable description of how instances of one contract
// are produced and which contracts cross its edges. Nodes are created by
// NewHost and never change afterwards.
type ProviderNode struct {
	host           *Host
	parent         *ProviderNode
	nodes          []*ProviderNode
	id             Identifier
	kind           Kind
	binding        ScopeBinding
	factory        Factory
	disposeHandler DisposeHandler
	export         VisibilityFilter
	exportToParent VisibilityFilter
	imp            VisibilityFilter
	immediate      bool
	path           string
}

// instanceStrategy produces a lock on an instance of n for the given parent.
// parent is always an instance of n's parent node.
type instanceStrategy func(ctx context.Context, n *ProviderNode, parent *Instance) (*Lock, error)

// strategies is indexed by Kind.
var strategies [KindTransient + 1]instanceStrategy

func init() {
	strategies[KindScope] = scopeInstance
	strategies[KindSingleton] = singletonInstance
	strategies[KindTransient] = transientInstance
}

func newProviderNode(h *Host, parent *ProviderNode, cfg NodeConfig) *ProviderNode {
	n := &ProviderNode{
		host:           h,
		parent:         parent,
		id:             cfg.Identifier,
		kind:           cfg.Kind,
		binding:        cfg.ScopeBinding,
		factory:        cfg.Factory,
		disposeHandler: cfg.DisposeHandler,
		export:         filterOrDefault(cfg.ExportFilter, AllowAll),
		exportToParent: filterOrDefault(cfg.ExportToParentFilter, AllowNone),
		imp:            filterOrDefault(cfg.ImportFilter, AllowAll),
		immediate:      cfg.Immediate,
		path:           parent.path + "/" + cfg.Identifier.String(),
	}
	for _, child := range cfg.Nodes {
		n.nodes = append(n.nodes, newProviderNode(h, n, child))
	}
	return n
}

func newRootNode(h *Host, cfg HostConfig) *ProviderNode {
	n := &ProviderNode{
		host:           h,
		id:             IdentifierOf[*Host](),
		kind:           KindScope,
		disposeHandler: cfg.DisposeHandler,
		export:         filterOrDefault(cfg.ExportFilter, AllowAll),
		exportToParent: AllowNone,
		imp:            filterOrDefault(cfg.ImportFilter, AllowAll),
		path:           "host",
	}
	for _, child := range cfg.Nodes {
		n.nodes = append(n.nodes, newProviderNode(h, n, child))
	}
	return n
}

// Identifier returns the contract the node provides.
func (n *ProviderNode) Identifier() Identifier { return n.id }

// Kind returns the multiplicity policy of the node.
func (n *ProviderNode) Kind() Kind { return n.kind }

// ScopeBinding returns the scope binding policy of the node.
func (n *ProviderNode) ScopeBinding() ScopeBinding { return n.binding }

// Parent returns the parent node, or nil for the root scope.
func (n *ProviderNode) Parent() *ProviderNode { return n.parent }

// Nodes returns the child nodes in declaration order.
func (n *ProviderNode) Nodes() []*ProviderNode {
	return append([]*ProviderNode(nil), n.nodes...)
}

// Path returns a readable path from the root to the node.
func (n *ProviderNode) Path() string { return n.path }

// Exports reports whether the node's export filter lets id through.
func (n *ProviderNode) Exports(id Identifier) bool { return n.export(id) }

// ExportsToParent reports whether contracts exported into the node by its
// children may travel further up.
func (n *ProviderNode) ExportsToParent(id Identifier) bool { return n.exportToParent(id) }

// Imports reports whether the node may look up id outside of itself.
func (n *ProviderNode) Imports(id Identifier) bool { return n.imp(id) }

func (n *ProviderNode) String() string { return n.path }

// GetInstance returns a lock on an instance of the node under parent, which
// must be an instance of the node's parent node. Depending on the node's kind
// this returns a shared instance or builds a new one.
func (n *ProviderNode) GetInstance(ctx context.Context, parent *Instance) (*Lock, error) {
	if parent == nil {
		panic(fmt.Sprintf("parent instance required for %v", n))
	}
	if parent.node != n.parent {
		panic(fmt.Sprintf("instance of %v cannot parent %v", parent.node, n))
	}
	if originFrom(ctx) == nil {
		ctx = withOrigin(ctx, parent)
	}
	return strategies[n.kind](ctx, n, parent)
}

// GetRootInstance returns the parentless instance of the root scope, creating
// it on first use. Every caller gets the same instance.
func (n *ProviderNode) GetRootInstance() (*Instance, error) {
	if n.parent != nil {
		return nil, &IxError{Kind: ErrNotRootScope, Identifier: n.id}
	}
	return n.host.rootInstanceFor(n), nil
}

// candidates lists the provider paths below n that make id visible at n's
// level, depth first in declaration order. Each path starts with a child of
// n and ends with the matching node.
func (n *ProviderNode) candidates(id Identifier) [][]*ProviderNode {
	var result [][]*ProviderNode
	for _, child := range n.nodes {
		if child.export(id) {
			result = child.collect(id, []*ProviderNode{child}, result)
		}
	}
	return result
}

func (n *ProviderNode) collect(id Identifier, path []*ProviderNode, result [][]*ProviderNode) [][]*ProviderNode {
	if n.id == id {
		result = append(result, append([]*ProviderNode(nil), path...))
	}
	if !n.exportToParent(id) {
		return result
	}
	for _, child := range n.nodes {
		if child.export(id) {
			result = child.collect(id, append(path, child), result)
		}
	}
	return result
}
