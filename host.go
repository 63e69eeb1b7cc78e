package indirectx

import (
	"context"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Host owns a provider tree and the instance tree built from it. All
// resolution and disposal goes through a host.
//
// treeMu is the structural lock of the instance tree: it guards the arena,
// the children sets and the creation of the root instance. It is always
// taken before any instance's data mutex.
type Host struct {
	root *ProviderNode

	treeMu       sync.Mutex
	instances    map[InstanceID]*Instance
	rootInstance *Instance

	logger  *zap.Logger
	metrics *Metrics
	timing  bool

	registerer       prometheus.Registerer
	metricsNamespace string

	// lifetime is the context constructions run under once detached from
	// their callers. It ends when the host is closed.
	lifetime context.Context
	cancel   context.CancelFunc
}

// HostOption is a functional option for configuring a Host.
type HostOption func(*Host)

// WithLogger sets the logger the host reports construction and disposal
// events to. The default discards everything.
func WithLogger(logger *zap.Logger) HostOption {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics registers the host's Prometheus metrics with reg under the
// given namespace.
func WithMetrics(reg prometheus.Registerer, namespace string) HostOption {
	return func(h *Host) {
		h.registerer = reg
		h.metricsNamespace = namespace
	}
}

// WithTiming records a go-timing span for every construction, nested under
// whatever timing context the resolving caller carries.
func WithTiming() HostOption {
	return func(h *Host) {
		h.timing = true
	}
}

// NewHost validates cfg, builds the immutable provider tree and returns the
// host. Configuration problems are reported as a *ConfigError.
func NewHost(cfg HostConfig, opts ...HostOption) (*Host, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	h := &Host{
		instances: map[InstanceID]*Instance{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.registerer != nil {
		m, err := NewMetrics(h.registerer, h.metricsNamespace)
		if err != nil {
			return nil, err
		}
		h.metrics = m
	}

	h.lifetime, h.cancel = context.WithCancel(context.Background())
	h.root = newRootNode(h, cfg)
	return h, nil
}

// Root returns the root scope node of the provider tree.
func (h *Host) Root() *ProviderNode {
	return h.root
}

// Metrics returns the host's metrics, or nil when WithMetrics was not used.
func (h *Host) Metrics() *Metrics {
	return h.metrics
}

// RootInstance returns the instance of the root scope, creating it on first
// use.
func (h *Host) RootInstance() *Instance {
	return h.rootInstanceFor(h.root)
}

func (h *Host) rootInstanceFor(n *ProviderNode) *Instance {
	h.treeMu.Lock()
	inst := h.rootInstance
	created := false
	if inst == nil {
		inst = newInstance(h, n, nil, nil)
		h.rootInstance = inst
		h.instances[inst.id] = inst
		created = true
	}
	h.treeMu.Unlock()

	if created {
		h.metrics.instanceCreated()
		h.logger.Debug("root instance created", zap.Stringer("instance", inst.id))
		h.startImmediate(inst)
	}
	return inst
}

// Dispose starts disposing inst and its subtree. It is the same as
// inst.Dispose().
func (h *Host) Dispose(inst *Instance) *Disposal {
	return inst.Dispose()
}

// Close disposes the root instance, waits for the whole tree to finish and
// ends the host's lifetime. Cancelling ctx abandons the wait only.
func (h *Host) Close(ctx context.Context) error {
	h.treeMu.Lock()
	root := h.rootInstance
	h.treeMu.Unlock()

	if root == nil {
		h.cancel()
		return nil
	}

	err := root.Dispose().Wait(ctx)
	if err == nil || root.IsDisposed() {
		h.cancel()
	}
	return err
}

// lookup resolves an arena handle. It returns nil for instances that have
// finished disposing.
func (h *Host) lookup(id InstanceID) *Instance {
	h.treeMu.Lock()
	defer h.treeMu.Unlock()
	return h.instances[id]
}

// InstanceCount returns the number of instances currently in the arena.
func (h *Host) InstanceCount() int {
	h.treeMu.Lock()
	defer h.treeMu.Unlock()
	return len(h.instances)
}

// childrenLocked returns the children of inst ordered by node path. Must be
// called with treeMu held.
func (h *Host) childrenLocked(inst *Instance) []*Instance {
	result := make([]*Instance, 0, len(inst.children))
	for id := range inst.children {
		if child, ok := h.instances[id]; ok {
			result = append(result, child)
		}
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].node.path < result[b].node.path
	})
	return result
}

// attachLocked inserts a freshly constructed instance into the arena under
// parent. Must be called with treeMu held.
func (h *Host) attachLocked(inst *Instance, parent *Instance) {
	h.instances[inst.id] = inst
	parent.children[inst.id] = struct{}{}
}

// detach removes a disposed instance from the arena and from its parent's
// children. A disposed singleton keeps its slot, so its parent never builds
// a second one and later resolutions fail with ErrDisposing. Only a scope
// frees its slot and can be materialized again under the same parent.
func (h *Host) detach(inst *Instance) {
	h.treeMu.Lock()
	defer h.treeMu.Unlock()

	delete(h.instances, inst.id)
	if h.rootInstance == inst {
		return
	}
	parent, ok := h.instances[inst.parentID]
	if !ok {
		return
	}
	delete(parent.children, inst.id)
	if inst.node.kind != KindScope {
		return
	}

	parent.mu.Lock()
	if c, ok := parent.slots[inst.node]; ok && c.instance == inst {
		delete(parent.slots, inst.node)
	}
	parent.mu.Unlock()
}
