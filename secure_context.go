package indirectx

import (
	"context"
	"time"
)

// detachedContext takes its values from the resolving caller and its
// deadline and cancellation from the host lifetime. Constructions run under
// it so that a caller abandoning its wait does not abort a construction
// other resolvers may be waiting on.
type detachedContext struct {
	valueContext    context.Context
	lifetimeContext context.Context
}

func (d *detachedContext) Deadline() (deadline time.Time, ok bool) {
	return d.lifetimeContext.Deadline()
}

func (d *detachedContext) Done() <-chan struct{} {
	return d.lifetimeContext.Done()
}

func (d *detachedContext) Err() error {
	return d.lifetimeContext.Err()
}

func (d *detachedContext) Value(key any) any {
	return d.valueContext.Value(key)
}
