package indirectx

import (
	"fmt"
	"sort"
	"strings"
)

// Status is a diagnostic tool that returns a string describing the live
// instance tree: one line per instance with its provider node, its state and
// its lock counts. Lines are sorted so the output is stable for a given tree.
func (h *Host) Status() string {
	h.treeMu.Lock()
	instances := make([]*Instance, 0, len(h.instances))
	for _, inst := range h.instances {
		instances = append(instances, inst)
	}
	h.treeMu.Unlock()

	lines := make([]string, 0, len(instances))
	for _, inst := range instances {
		inst.mu.Lock()
		line := fmt.Sprintf("%s - %s - %v - locks: %d - owned: %d",
			inst.node.path, inst.node.kind, inst.state, len(inst.locks), len(inst.ownedLocks))
		inst.mu.Unlock()
		lines = append(lines, line)
	}

	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// Describe returns a string describing the provider tree below n, one node per
// line, indented by depth.
func (n *ProviderNode) Describe() string {
	b := strings.Builder{}
	n.describe(&b, 0)
	return strings.TrimRight(b.String(), "\n")
}

func (n *ProviderNode) describe(b *strings.Builder, depth int) {
	fmt.Fprintf(b, "%s%v (%s", strings.Repeat("  ", depth), n.id, n.kind)
	if n.kind == KindSingleton {
		fmt.Fprintf(b, ", %s", n.binding)
	}
	if n.immediate {
		b.WriteString(", immediate")
	}
	b.WriteString(")\n")
	for _, child := range n.nodes {
		child.describe(b, depth+1)
	}
}
