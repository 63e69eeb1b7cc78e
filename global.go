package indirectx

import (
	"context"
	"fmt"
)

// Resolve resolves the contract T (optionally named) from the instance from
// and returns the typed object together with the lock keeping it alive.
// Release the lock when the object is no longer needed.
//
//	db, lock, err := indirectx.Resolve[*Database](ctx, host, nil)
//	if err != nil {
//	    return err
//	}
//	defer lock.Release()
func Resolve[T any](ctx context.Context, h *Host, from *Instance, name ...string) (T, *Lock, error) {
	var zero T
	id := IdentifierOf[T](name...)
	lock, err := h.Resolve(ctx, from, id)
	if err != nil {
		return zero, nil, err
	}
	value, err := typedObject[T](lock.Object(), id)
	if err != nil {
		lock.Release()
		return zero, nil, err
	}
	return value, lock, nil
}

// MustResolve behaves like Resolve but panics if the contract cannot be
// resolved.
func MustResolve[T any](ctx context.Context, h *Host, from *Instance, name ...string) (T, *Lock) {
	value, lock, err := Resolve[T](ctx, h, from, name...)
	if err != nil {
		panic(err)
	}
	return value, lock
}

// ResolveOptional behaves like Resolve but reports failure through the
// boolean instead of an error.
func ResolveOptional[T any](ctx context.Context, h *Host, from *Instance, name ...string) (T, *Lock, bool) {
	value, lock, err := Resolve[T](ctx, h, from, name...)
	if err != nil {
		return value, nil, false
	}
	return value, lock, true
}

// Require resolves the contract T from inside a factory. The lock is owned by
// the instance being built, so there is nothing to release.
//
//	func newRepository(ctx context.Context, r *indirectx.Resolver) (any, error) {
//	    db, err := indirectx.Require[*Database](ctx, r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Repository{db: db}, nil
//	}
func Require[T any](ctx context.Context, r *Resolver, name ...string) (T, error) {
	var zero T
	id := IdentifierOf[T](name...)
	object, err := r.Resolve(ctx, id)
	if err != nil {
		return zero, err
	}
	return typedObject[T](object, id)
}

func typedObject[T any](object any, id Identifier) (T, error) {
	var zero T
	if object == nil {
		return zero, nil
	}
	value, ok := object.(T)
	if !ok {
		return zero, wrongTypeError(id, object)
	}
	return value, nil
}

func wrongTypeError(id Identifier, object any) error {
	return &IxError{
		Kind:        ErrConstruction,
		Message:     "object has the wrong type",
		Identifier:  id,
		SourceError: fmt.Errorf("got %T", object),
	}
}
