package indirectx

import (
	"context"
	"errors"
)

// Optional is a dependency that may be absent. A constructor passed to Adapt
// can take an Optional[T] parameter to receive T when it is visible and the
// zero Optional otherwise.
//
//	func newCache(db *Database, metrics indirectx.Optional[*Metrics]) *Cache {
//	    c := &Cache{db: db}
//	    if metrics.Present {
//	        c.metrics = metrics.Value
//	    }
//	    return c
//	}
type Optional[T any] struct {
	Value   T
	Present bool
}

// optionalParam lets the constructor analysis recognize Optional[T] for any T.
type optionalParam interface {
	identifier() Identifier
	set(object any) error
}

func (o *Optional[T]) identifier() Identifier {
	return IdentifierOf[T]()
}

func (o *Optional[T]) set(object any) error {
	value, err := typedObject[T](object, o.identifier())
	if err != nil {
		return err
	}
	o.Value = value
	o.Present = true
	return nil
}

// RequireOptional resolves T from inside a factory like Require, but a
// contract that is not visible yields an empty Optional instead of an error.
// Every other failure is still reported.
func RequireOptional[T any](ctx context.Context, r *Resolver, name ...string) (Optional[T], error) {
	var o Optional[T]
	err := resolveOptional(ctx, r, IdentifierOf[T](name...), &o)
	return o, err
}

func resolveOptional(ctx context.Context, r *Resolver, id Identifier, o optionalParam) error {
	object, err := r.Resolve(ctx, id)
	// Only the contract itself being absent counts; a visible contract whose
	// own dependencies are missing is still an error.
	var ixErr *IxError
	if errors.As(err, &ixErr) && ixErr.Kind == ErrNotVisible {
		return nil
	}
	if err != nil {
		return err
	}
	return o.set(object)
}
