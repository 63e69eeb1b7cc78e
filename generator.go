package indirectx

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/gburgyan/go-timing"
	"go.uber.org/zap"
)

// construct runs the factory of n with a Resolver based on parent, the
// instance of n's parent node. It returns the raw object and the locks the
// factory took through its Resolver. On failure those locks are already released.
//
// The factory runs on a detached context: values come from the caller, but
// the caller giving up on the wait does not stop the construction.
func (h *Host) construct(ctx context.Context, n *ProviderNode, parent *Instance) (any, []*Lock, error) {
	if n.kind == KindScope {
		h.metrics.constructed(n.kind, nil)
		return nil, nil, nil
	}

	var buildCtx context.Context = &detachedContext{valueContext: ctx, lifetimeContext: h.lifetime}
	if h.timing {
		timingCtx, complete := timing.Start(buildCtx, "ix:"+n.id.String())
		defer complete()
		buildCtx = timingCtx
	}

	r := &Resolver{host: h, node: n, parent: parent}
	start := time.Now()
	object, err := invokeFactory(buildCtx, n, r)
	locks := r.close()

	h.metrics.constructed(n.kind, err)
	if err != nil {
		for _, l := range locks {
			l.Release()
		}
		h.logger.Debug("construction failed",
			zap.String("node", n.path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, nil, err
	}

	h.logger.Debug("constructed",
		zap.String("node", n.path),
		zap.Duration("elapsed", time.Since(start)))
	return object, locks, nil
}

// invokeFactory calls the factory and turns both returned errors and panics
// into construction errors.
func invokeFactory(ctx context.Context, n *ProviderNode, r *Resolver) (object any, err error) {
	defer func() {
		if p := recover(); p != nil {
			buf := make([]byte, 1<<14)
			stackSize := runtime.Stack(buf, false)
			err = &IxError{
				Kind:        ErrConstruction,
				Message:     "factory panicked",
				Identifier:  n.id,
				SourceError: fmt.Errorf("%v\n%s", p, buf[:stackSize]),
			}
		}
	}()

	object, err = n.factory(ctx, r)
	if err != nil {
		return nil, &IxError{
			Kind:        ErrConstruction,
			Identifier:  n.id,
			SourceError: err,
		}
	}
	return object, nil
}
