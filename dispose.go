package indirectx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Disposal is the completion signal of an instance's disposal. The same
// Disposal is returned by every call to Instance.Dispose.
type Disposal struct {
	done chan struct{}
	err  error
}

// Done is closed once the instance and its whole subtree are disposed.
func (d *Disposal) Done() <-chan struct{} {
	return d.done
}

// Err returns the teardown failures of the instance and its subtree. It is
// only meaningful after Done is closed.
func (d *Disposal) Err() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}

// Wait blocks until the disposal completes or ctx is done. Giving up on the
// wait does not stop the disposal.
func (d *Disposal) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispose starts disposing the instance and returns its completion signal.
// From this point on no lock can be taken on the instance and nothing new
// can be built under it; constructions already running are allowed to
// finish.
//
// The disposal completes after every child has completed its own disposal
// and every lock against the instance has been released. Then the object is
// torn down, the instance's own locks on other instances are released and
// the instance leaves the tree. Siblings dispose concurrently.
func (i *Instance) Dispose() *Disposal {
	i.disposeOnce.Do(func() {
		i.disposal = &Disposal{done: make(chan struct{})}
		i.mu.Lock()
		i.state = stateDisposing
		i.mu.Unlock()
		i.host.logger.Debug("disposing", zap.String("node", i.node.path), zap.Stringer("instance", i.id))
		go i.runDisposal()
	})
	return i.disposal
}

func (i *Instance) runDisposal() {
	h := i.host
	d := i.disposal

	// Constructions that were running when disposal started may still add
	// children.
	i.building.Wait()

	childErr := i.disposeChildren()

	i.mu.Lock()
	var drained chan struct{}
	if len(i.locks) > 0 {
		drained = make(chan struct{})
		i.drained = drained
	}
	i.mu.Unlock()
	if drained != nil {
		<-drained
	}

	teardownErr := i.teardown(h.lifetime)
	if teardownErr != nil {
		h.logger.Error("teardown failed",
			zap.String("node", i.node.path),
			zap.Stringer("instance", i.id),
			zap.Error(teardownErr))
	}

	for _, l := range i.OwnedLocks() {
		l.Release()
	}

	h.detach(i)
	i.mu.Lock()
	i.state = stateDisposed
	i.mu.Unlock()

	d.err = errors.Join(childErr, teardownErr)
	h.metrics.disposed(d.err)
	close(d.done)
}

// disposeChildren disposes the current children concurrently and waits for
// all of them. Every child's failure is part of the result.
func (i *Instance) disposeChildren() error {
	children := i.Children()
	errs := make([]error, len(children))

	var g errgroup.Group
	for idx, child := range children {
		idx, child := idx, child
		g.Go(func() error {
			d := child.Dispose()
			<-d.Done()
			errs[idx] = d.Err()
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// teardown releases the object of the instance. A failing or panicking
// teardown is reported but never stops the disposal.
func (i *Instance) teardown(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			buf := make([]byte, 1<<14)
			stackSize := runtime.Stack(buf, false)
			err = fmt.Errorf("teardown panicked: %v\n%s", p, buf[:stackSize])
		}
		if err != nil {
			err = &DisposeError{Identifier: i.node.id, InstanceID: i.id, SourceError: err}
		}
	}()

	if i.node.disposeHandler != nil {
		return i.node.disposeHandler(ctx, i.object)
	}
	if i.node.kind == KindScope {
		return nil
	}
	switch obj := i.object.(type) {
	case Disposer:
		return obj.Dispose(ctx)
	case io.Closer:
		return obj.Close()
	}
	return nil
}
