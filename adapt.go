package indirectx

import (
	"context"
	"fmt"
	"reflect"
)

// Adapt turns a plain constructor function into a Factory. Each parameter of
// fn is filled when the factory runs:
//
//   - context.Context receives the construction context.
//   - *Resolver receives the resolver of the construction.
//   - Optional[T] receives T if it is visible and is left empty otherwise.
//   - Any other type T is resolved as the unnamed contract T.
//
// fn must return the object, optionally followed by an error. Adapt panics
// if fn does not have that shape, so mistakes show up when the tree is
// declared rather than on first resolution.
//
//	indirectx.NodeConfig{
//	    Identifier: indirectx.IdentifierOf[*Repository](),
//	    Kind:       indirectx.KindSingleton,
//	    Factory:    indirectx.Adapt(NewRepository), // func(*Database) (*Repository, error)
//	}
func Adapt(fn any) Factory {
	fnValue := reflect.ValueOf(fn)
	if !fnValue.IsValid() {
		panic("constructor must be a function, got <nil>")
	}
	info := getFuncInfo(fnValue.Type())
	if fnValue.IsNil() {
		panic(fmt.Sprintf("constructor must be a function, got nil %v", fnValue.Type()))
	}

	return func(ctx context.Context, r *Resolver) (any, error) {
		args := make([]reflect.Value, len(info.params))
		for i, p := range info.params {
			switch p.source {
			case paramContext:
				args[i] = reflect.ValueOf(&ctx).Elem()
			case paramResolver:
				args[i] = reflect.ValueOf(r)
			case paramOptional:
				ptr := reflect.New(p.typ)
				o := ptr.Interface().(optionalParam)
				if err := resolveOptional(ctx, r, o.identifier(), o); err != nil {
					return nil, err
				}
				args[i] = ptr.Elem()
			default:
				object, err := r.Resolve(ctx, Identifier{Type: p.typ})
				if err != nil {
					return nil, err
				}
				if object == nil {
					args[i] = reflect.Zero(p.typ)
					continue
				}
				args[i] = reflect.ValueOf(object)
				if !args[i].Type().AssignableTo(p.typ) {
					return nil, wrongTypeError(Identifier{Type: p.typ}, object)
				}
			}
		}

		results := fnValue.Call(args)
		if info.hasError && !results[1].IsNil() {
			return nil, results[1].Interface().(error)
		}
		return results[0].Interface(), nil
	}
}
