package indirectx

import (
	"context"
	"strings"
)

type cycle int

const cycleKey cycle = 0

// constructionPath is the chain of constructions a context is nested in.
// Each entry is immutable, so concurrent nested resolutions started by one
// factory each see only their own branch.
type constructionPath struct {
	node  *ProviderNode
	owner InstanceID
	prev  *constructionPath
}

// enterConstruction records that n is being built under owner. It fails with
// ErrCycle if the same construction is already in progress further up the
// chain; joining that construction would wait forever.
func enterConstruction(ctx context.Context, n *ProviderNode, owner *Instance) (context.Context, error) {
	prev, _ := ctx.Value(cycleKey).(*constructionPath)
	for p := prev; p != nil; p = p.prev {
		if p.node == n && p.owner == owner.id {
			return nil, &IxError{
				Kind:       ErrCycle,
				Message:    prev.chain(n),
				Identifier: n.id,
			}
		}
	}
	return context.WithValue(ctx, cycleKey, &constructionPath{node: n, owner: owner.id, prev: prev}), nil
}

func (p *constructionPath) chain(closing *ProviderNode) string {
	var names []string
	for e := p; e != nil; e = e.prev {
		names = append(names, e.node.id.String())
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	names = append(names, closing.id.String())
	return strings.Join(names, " -> ")
}
