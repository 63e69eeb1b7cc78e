package indirectx

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Resolve finds the provider node that makes id visible from the instance
// from and returns a lock on an instance of it. A nil from starts at the
// root scope instance. The caller must release the lock when done.
//
// Lookup starts at from's provider node and moves outwards one level at a
// time; the first level with a match wins. Within a level the candidates are
// the node's children in declaration order, plus whatever those children
// re-export from below. Two candidates on the same level are ambiguous.
// Before moving up a level the node's import filter must let id through.
//
// Resolution never changes the provider tree. No instance is created when
// the contract turns out not to be visible.
func (h *Host) Resolve(ctx context.Context, from *Instance, id Identifier) (*Lock, error) {
	if !id.IsValid() {
		panic("identifier without type")
	}
	if from == nil {
		from = h.RootInstance()
	} else if from.host != h {
		panic("instance belongs to another host")
	}
	return h.resolve(withFrame(ctx), from, id)
}

func (h *Host) resolve(ctx context.Context, from *Instance, id Identifier) (*Lock, error) {
	if from.IsDisposing() {
		err := disposingError(from)
		h.metrics.resolveFailed(err)
		return nil, err
	}

	path, level, err := h.locate(from, id)
	if err != nil {
		h.metrics.resolveFailed(err)
		h.logger.Debug("resolve failed",
			zap.Stringer("contract", id),
			zap.String("from", from.node.path),
			zap.Error(err))
		return nil, err
	}
	return h.materialize(withOrigin(ctx, from), level, path)
}

// locate walks up from the origin instance and returns the candidate path and
// the ancestor instance of the level it was found on.
func (h *Host) locate(from *Instance, id Identifier) ([]*ProviderNode, *Instance, error) {
	node := from.node
	level := from
	for {
		candidates := node.candidates(id)
		switch len(candidates) {
		case 0:
		case 1:
			return candidates[0], level, nil
		default:
			return nil, nil, ambiguousError(id, node, candidates)
		}

		if !node.imp(id) {
			return nil, nil, notVisibleError(id, "import blocked at "+node.path)
		}
		if node.parent == nil {
			return nil, nil, notVisibleError(id, "no provider exports it")
		}

		level = ancestorOf(level, node.parent)
		if level == nil {
			return nil, nil, notVisibleError(id, "no live instance of "+node.parent.path)
		}
		node = node.parent
	}
}

// ancestorOf walks the parents of inst to the nearest instance of node.
func ancestorOf(inst *Instance, node *ProviderNode) *Instance {
	for p := inst.Parent(); p != nil; p = p.Parent() {
		if p.node == node {
			return p
		}
	}
	return nil
}

// materialize gets instances along path starting under level. Locks on the
// intermediate instances are only held until the final one is locked.
func (h *Host) materialize(ctx context.Context, level *Instance, path []*ProviderNode) (*Lock, error) {
	var intermediate []*Lock
	defer func() {
		for _, l := range intermediate {
			l.Release()
		}
	}()

	parent := level
	for i, node := range path {
		lock, err := strategies[node.kind](ctx, node, parent)
		if err != nil {
			return nil, err
		}
		if i == len(path)-1 {
			return lock, nil
		}
		intermediate = append(intermediate, lock)
		parent = lock.Instance()
	}
	// path is never empty
	return nil, nil
}

func ambiguousError(id Identifier, level *ProviderNode, candidates [][]*ProviderNode) error {
	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c[len(c)-1].path
	}
	return &IxError{
		Kind:       ErrAmbiguous,
		Message:    fmt.Sprintf("%d candidates at %s: %s", len(candidates), level.path, strings.Join(paths, ", ")),
		Identifier: id,
	}
}
