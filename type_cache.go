package indirectx

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

var (
	contextType  = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	resolverType = reflect.TypeOf((*Resolver)(nil))
	optionalType = reflect.TypeOf((*optionalParam)(nil)).Elem()
)

type paramSource int

const (
	paramContext paramSource = iota
	paramResolver
	paramOptional
	paramRequired
)

type paramInfo struct {
	source paramSource
	typ    reflect.Type
}

// funcInfo caches the reflection analysis of a constructor function.
type funcInfo struct {
	params   []paramInfo
	hasError bool
}

// Global cache so the same constructor used by several nodes, or by several
// hosts, is only analyzed once.
var globalFuncCache sync.Map // map[reflect.Type]*funcInfo

// getFuncInfo returns the cached analysis of the constructor type t. It
// panics when t cannot be used as a constructor.
func getFuncInfo(t reflect.Type) *funcInfo {
	if cached, ok := globalFuncCache.Load(t); ok {
		return cached.(*funcInfo)
	}

	if t.Kind() != reflect.Func {
		panic(fmt.Sprintf("constructor must be a function, got %v", t))
	}

	info := &funcInfo{}
	switch t.NumOut() {
	case 1:
		if t.Out(0) == errorType {
			panic(fmt.Sprintf("constructor %v returns only an error", t))
		}
	case 2:
		if t.Out(1) != errorType {
			panic(fmt.Sprintf("second result of constructor %v must be an error", t))
		}
		info.hasError = true
	default:
		panic(fmt.Sprintf("constructor %v must return an object and an optional error", t))
	}

	if t.IsVariadic() {
		panic(fmt.Sprintf("constructor %v cannot be variadic", t))
	}

	info.params = make([]paramInfo, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		in := t.In(i)
		switch {
		case in == contextType:
			info.params[i] = paramInfo{source: paramContext, typ: in}
		case in == resolverType:
			info.params[i] = paramInfo{source: paramResolver, typ: in}
		case reflect.PointerTo(in).Implements(optionalType):
			info.params[i] = paramInfo{source: paramOptional, typ: in}
		default:
			info.params[i] = paramInfo{source: paramRequired, typ: in}
		}
	}

	actual, _ := globalFuncCache.LoadOrStore(t, info)
	return actual.(*funcInfo)
}
