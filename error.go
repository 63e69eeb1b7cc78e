package indirectx

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotVisible is returned when no provider node exports the requested
	// contract to the edge the resolution started from.
	ErrNotVisible = errors.New("contract not visible")

	// ErrAmbiguous is returned when more than one provider node matches the
	// requested contract at the same visibility level.
	ErrAmbiguous = errors.New("ambiguous contract")

	// ErrDisposing is returned when a resolution or lock targets an instance
	// that has started disposing.
	ErrDisposing = errors.New("instance is disposing")

	// ErrConfiguration is returned by NewHost when the provider tree is invalid.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrCycle is returned when a factory, directly or through other factories,
	// asks for the instance it is building.
	ErrCycle = errors.New("cyclic dependency")

	// ErrConstruction wraps the error returned (or the panic raised) by a factory.
	ErrConstruction = errors.New("construction failed")

	// ErrNotRootScope is returned when a root instance is requested from a
	// scope that has a parent.
	ErrNotRootScope = errors.New("only the root scope can produce a root instance")
)

// IxError is the error type returned by resolution. Kind is one of the
// sentinel errors above so callers can use errors.Is.
type IxError struct {
	Kind        error
	Message     string
	Identifier  Identifier
	Status      string
	SourceError error
}

func (e *IxError) Error() string {
	b := strings.Builder{}
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Identifier.Type != nil {
		b.WriteString(": ")
		b.WriteString(e.Identifier.String())
	}
	if e.SourceError != nil {
		fmt.Fprintf(&b, " (%v)", e.SourceError)
	}
	return b.String()
}

func (e *IxError) Unwrap() error {
	return e.SourceError
}

func (e *IxError) Is(target error) bool {
	return target == e.Kind
}

// ConfigError reports every problem found while validating a HostConfig.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s", ErrConfiguration, strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// DisposeError is reported by a Disposal when the teardown of an instance
// failed. The instance still reaches the disposed state.
type DisposeError struct {
	Identifier  Identifier
	InstanceID  InstanceID
	SourceError error
}

func (e *DisposeError) Error() string {
	return fmt.Sprintf("dispose failed: %v [%v] (%v)", e.Identifier, e.InstanceID, e.SourceError)
}

func (e *DisposeError) Unwrap() error {
	return e.SourceError
}

func notVisibleError(id Identifier, message string) error {
	return &IxError{Kind: ErrNotVisible, Message: message, Identifier: id}
}
