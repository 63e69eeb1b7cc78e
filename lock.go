package indirectx

import (
	"sync/atomic"
)

var errLockReleased = &IxError{Kind: ErrDisposing, Message: "lock already released"}

// Lock is a token that keeps one instance alive while it is held. An
// instance cannot finish disposing while lock tokens against it are still
// outstanding.
//
// A temporary lock is released by whoever received it. An owned lock is
// registered in the owned locks of a holder instance and is released
// automatically when that holder is disposed.
type Lock struct {
	host     *Host
	target   InstanceID
	holder   atomic.Pointer[InstanceID]
	released atomic.Bool
}

// Instance returns the locked instance. It returns nil once the lock has been
// released and the instance has left the arena.
func (l *Lock) Instance() *Instance {
	return l.host.lookup(l.target)
}

// Object is a shortcut for l.Instance().Object().
func (l *Lock) Object() any {
	inst := l.Instance()
	if inst == nil {
		return nil
	}
	return inst.object
}

// IsOwned reports whether the lock is held by an instance rather than by the
// caller.
func (l *Lock) IsOwned() bool {
	return l.holder.Load() != nil
}

// IsReleased reports whether Release has been called.
func (l *Lock) IsReleased() bool {
	return l.released.Load()
}

// Own turns a temporary lock into a lock owned by holder. The lock is then
// released when holder is disposed. It fails if holder is already disposing
// or the lock was already released or owned.
func (l *Lock) Own(holder *Instance) error {
	if holder == nil {
		panic("holder instance required")
	}
	if l.released.Load() {
		return errLockReleased
	}
	return holder.addOwnedLock(l)
}

// Release gives the lock back. It never blocks and calling it more than once
// is harmless. Releasing the last lock against a disposing instance lets its
// disposal complete.
func (l *Lock) Release() {
	if !l.released.CompareAndSwap(false, true) {
		return
	}
	if target := l.host.lookup(l.target); target != nil {
		target.removeLock(l)
	}
	if id := l.holder.Load(); id != nil {
		if holder := l.host.lookup(*id); holder != nil {
			holder.removeOwnedLock(l)
		}
	}
}
