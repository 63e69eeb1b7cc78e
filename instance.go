package indirectx

import (
	"sync"

	"github.com/google/uuid"
)

// InstanceID is the opaque handle of an instance inside its host's arena.
// The arena is the only owner of instance records; parents, children and
// lock tokens refer to each other through these handles.
type InstanceID uuid.UUID

func newInstanceID() InstanceID {
	return InstanceID(uuid.New())
}

func (id InstanceID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the handle refers to nothing.
func (id InstanceID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

type instanceState int

const (
	stateLive instanceState = iota
	stateDisposing
	stateDisposed
)

func (s instanceState) String() string {
	switch s {
	case stateLive:
		return "live"
	case stateDisposing:
		return "disposing"
	case stateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Instance is a run-time node of the instance tree: one constructed object
// together with its lifetime bookkeeping.
//
// Lock order: the host tree lock is always taken before an instance's data
// mutex, and no two instance mutexes are ever held at the same time.
type Instance struct {
	id       InstanceID
	host     *Host
	node     *ProviderNode
	parentID InstanceID
	object   any

	// guarded by host.treeMu
	children map[InstanceID]struct{}

	// data mutex
	mu         sync.Mutex
	state      instanceState
	slots      map[*ProviderNode]*cell
	ownedLocks map[*Lock]struct{}
	locks      map[*Lock]struct{}
	drained    chan struct{}

	// in-flight constructions whose result will be parented to this instance
	building sync.WaitGroup

	disposeOnce sync.Once
	disposal    *Disposal
}

func newInstance(h *Host, n *ProviderNode, parent *Instance, object any) *Instance {
	inst := &Instance{
		id:         newInstanceID(),
		host:       h,
		node:       n,
		object:     object,
		children:   map[InstanceID]struct{}{},
		slots:      map[*ProviderNode]*cell{},
		ownedLocks: map[*Lock]struct{}{},
		locks:      map[*Lock]struct{}{},
	}
	if parent != nil {
		inst.parentID = parent.id
	}
	if n.kind == KindScope {
		inst.object = inst
	}
	return inst
}

// ID returns the arena handle of the instance.
func (i *Instance) ID() InstanceID {
	return i.id
}

// Host returns the host that owns the instance.
func (i *Instance) Host() *Host {
	return i.host
}

// ProviderNode returns the node that produced the instance.
func (i *Instance) ProviderNode() *ProviderNode {
	return i.node
}

// Object returns the constructed object. For scope instances this is the
// instance itself.
func (i *Instance) Object() any {
	return i.object
}

// Parent returns the parent instance, or nil for the root scope instance and
// for instances whose parent has already left the arena.
func (i *Instance) Parent() *Instance {
	if i.parentID.IsZero() {
		return nil
	}
	return i.host.lookup(i.parentID)
}

// IsDisposing reports whether disposal of the instance has started.
func (i *Instance) IsDisposing() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state != stateLive
}

// IsDisposed reports whether disposal of the instance has completed.
func (i *Instance) IsDisposed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state == stateDisposed
}

// Locks returns the lock tokens currently held against the instance.
func (i *Instance) Locks() []*Lock {
	i.mu.Lock()
	defer i.mu.Unlock()
	return lockSlice(i.locks)
}

// OwnedLocks returns the lock tokens the instance holds on other instances.
// They are released when the instance is disposed.
func (i *Instance) OwnedLocks() []*Lock {
	i.mu.Lock()
	defer i.mu.Unlock()
	return lockSlice(i.ownedLocks)
}

// Children returns the live instances parented to this one.
func (i *Instance) Children() []*Instance {
	h := i.host
	h.treeMu.Lock()
	defer h.treeMu.Unlock()
	return h.childrenLocked(i)
}

// acquireLock issues a new lock token against the instance. holder is nil for
// temporary locks.
func (i *Instance) acquireLock(holder *Instance) (*Lock, error) {
	l := &Lock{host: i.host, target: i.id}
	i.mu.Lock()
	if i.state != stateLive {
		i.mu.Unlock()
		return nil, disposingError(i)
	}
	i.locks[l] = struct{}{}
	i.mu.Unlock()

	if holder != nil {
		if err := holder.addOwnedLock(l); err != nil {
			i.removeLock(l)
			return nil, err
		}
	}
	return l, nil
}

func (i *Instance) removeLock(l *Lock) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.locks, l)
	if len(i.locks) == 0 && i.drained != nil {
		close(i.drained)
		i.drained = nil
	}
}

func (i *Instance) addOwnedLock(l *Lock) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != stateLive {
		return disposingError(i)
	}
	id := i.id
	if !l.holder.CompareAndSwap(nil, &id) {
		return &IxError{Kind: ErrDisposing, Message: "lock already owned by " + l.holder.Load().String()}
	}
	i.ownedLocks[l] = struct{}{}
	// Release sets released before it looks at the holder, so a release
	// racing with Own is seen by one side or the other.
	if l.released.Load() {
		delete(i.ownedLocks, l)
		return errLockReleased
	}
	return nil
}

func (i *Instance) removeOwnedLock(l *Lock) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.ownedLocks, l)
}

// beginBuildLocked registers an in-flight construction whose result will become a
// child of the instance. It fails once the instance is disposing. Must be
// called with i.mu held.
func (i *Instance) beginBuildLocked() error {
	if i.state != stateLive {
		return disposingError(i)
	}
	i.building.Add(1)
	return nil
}

func lockSlice(m map[*Lock]struct{}) []*Lock {
	result := make([]*Lock, 0, len(m))
	for l := range m {
		result = append(result, l)
	}
	return result
}

func disposingError(i *Instance) error {
	return &IxError{
		Kind:       ErrDisposing,
		Message:    "instance " + i.id.String(),
		Identifier: i.node.id,
	}
}
