package indirectx

import (
	"fmt"
	"reflect"
)

// Identifier is the identity of a contract. Two identifiers are equal when
// both the type and the name match; the empty name is the default contract
// for the type.
type Identifier struct {
	Type reflect.Type
	Name string
}

// IdentifierOf returns the identifier for the type T with an optional name.
//
//	IdentifierOf[*Database]()
//	IdentifierOf[*Database]("replica")
func IdentifierOf[T any](name ...string) Identifier {
	id := Identifier{Type: reflect.TypeOf((*T)(nil)).Elem()}
	if len(name) > 0 {
		id.Name = name[0]
	}
	return id
}

func (i Identifier) String() string {
	if i.Type == nil {
		return "<nil>"
	}
	if i.Name == "" {
		return i.Type.String()
	}
	return fmt.Sprintf("%v|%s", i.Type, i.Name)
}

// IsValid reports whether the identifier has a type.
func (i Identifier) IsValid() bool {
	return i.Type != nil
}
