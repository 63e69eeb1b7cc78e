package indirectx

import (
	"context"
)

// Kind is the multiplicity policy of a provider node.
type Kind int

const (
	// KindScope nodes are nested lifetime and visibility boundaries. A scope
	// is materialized at most once per parent instance.
	KindScope Kind = iota + 1

	// KindSingleton nodes produce at most one live instance per owning
	// instance. The owner is picked by the node's ScopeBinding.
	KindSingleton

	// KindTransient nodes produce a fresh instance for every resolution.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindScope:
		return "scope"
	case KindSingleton:
		return "singleton"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// ScopeBinding selects which instance's cache slot a singleton is shared
// through.
type ScopeBinding int

const (
	// Registration shares the singleton through the instance of the scope
	// it was registered in. This is the default.
	Registration ScopeBinding = iota

	// ResolveOrigin shares the singleton through the instance the
	// resolution started from. The singleton becomes a child of that
	// instance and is disposed with it.
	ResolveOrigin

	// PerResolve shares the singleton only within one top-level Resolve call,
	// including the nested resolutions made by factories during that call.
	PerResolve

	// PerQuery never shares; every query builds a new instance.
	PerQuery
)

func (b ScopeBinding) String() string {
	switch b {
	case Registration:
		return "registration"
	case ResolveOrigin:
		return "resolve-origin"
	case PerResolve:
		return "per-resolve"
	case PerQuery:
		return "per-query"
	default:
		return "unknown"
	}
}

// Factory builds the raw object for a provider node. The Resolver gives access
// to the parent instance and to other contracts; locks taken through it are
// owned by the new instance once it exists.
//
// The context passed in carries the values of the resolving caller. It must be
// handed on to nested Resolver calls so cyclic dependencies are detected.
type Factory func(ctx context.Context, r *Resolver) (any, error)

// DisposeHandler tears down the object of an instance. When a node has none,
// objects implementing Disposer or io.Closer are torn down through those.
type DisposeHandler func(ctx context.Context, object any) error

// Disposer can be implemented by constructed objects that need asynchronous
// teardown.
type Disposer interface {
	Dispose(ctx context.Context) error
}

// NodeConfig describes one provider node of the tree handed to NewHost.
type NodeConfig struct {
	// Identifier is the contract the node provides. Scopes are usually
	// identified with ScopeID.
	Identifier Identifier `validate:"-"`

	Kind Kind `validate:"oneof=1 2 3"`

	// Factory is required for singletons and transients and not allowed on
	// scopes.
	Factory Factory

	DisposeHandler DisposeHandler

	ScopeBinding ScopeBinding `validate:"min=0,max=3"`

	// ExportFilter defaults to AllowAll, ExportToParentFilter to AllowNone
	// and ImportFilter to AllowAll.
	ExportFilter         VisibilityFilter
	ExportToParentFilter VisibilityFilter
	ImportFilter         VisibilityFilter

	// Immediate starts construction of a singleton as soon as its owning
	// instance exists instead of on first resolution.
	Immediate bool

	Nodes []NodeConfig `validate:"dive"`
}

// HostConfig describes the root scope of a host.
type HostConfig struct {
	// ExportFilter and ImportFilter of the root scope. Both default to
	// AllowAll; the root has no parent, so they only matter for diagnostics
	// and for symmetry with nested scopes.
	ExportFilter VisibilityFilter
	ImportFilter VisibilityFilter

	// DisposeHandler runs when the root scope instance is disposed.
	DisposeHandler DisposeHandler

	Nodes []NodeConfig `validate:"dive"`
}

// ScopeID returns the identifier conventionally used for a named scope.
// Resolving it yields the scope instance itself.
func ScopeID(name string) Identifier {
	return IdentifierOf[*Instance](name)
}

// Scope is a convenience constructor for a scope node configuration.
func Scope(name string, nodes ...NodeConfig) NodeConfig {
	return NodeConfig{
		Identifier: ScopeID(name),
		Kind:       KindScope,
		Nodes:      nodes,
	}
}

// Singleton is a convenience constructor for a singleton node configuration
// providing T.
func Singleton[T any](factory Factory, name ...string) NodeConfig {
	return NodeConfig{
		Identifier: IdentifierOf[T](name...),
		Kind:       KindSingleton,
		Factory:    factory,
	}
}

// Transient is a convenience constructor for a transient node configuration
// providing T.
func Transient[T any](factory Factory, name ...string) NodeConfig {
	return NodeConfig{
		Identifier: IdentifierOf[T](name...),
		Kind:       KindTransient,
		Factory:    factory,
	}
}
