package indirectx

// VisibilityFilter decides whether a contract may cross a tree edge. Each
// provider node has three of them:
//
//   - Export: may a contract provided by the node (or exported up into it)
//     be seen by the node's parent and siblings.
//   - ExportToParent: may a contract exported into the node by one of its
//     children travel one level further up.
//   - Import: may the node look up a contract outside of itself, at its
//     parent's level and above.
type VisibilityFilter func(id Identifier) bool

// AllowAll lets every contract through.
func AllowAll(Identifier) bool { return true }

// AllowNone blocks every contract.
func AllowNone(Identifier) bool { return false }

// Allow lets only the listed contracts through.
func Allow(ids ...Identifier) VisibilityFilter {
	set := identifierSet(ids)
	return func(id Identifier) bool {
		_, ok := set[id]
		return ok
	}
}

// Deny lets everything but the listed contracts through.
func Deny(ids ...Identifier) VisibilityFilter {
	set := identifierSet(ids)
	return func(id Identifier) bool {
		_, ok := set[id]
		return !ok
	}
}

// And combines filters; a contract passes only when every filter lets it through.
func And(filters ...VisibilityFilter) VisibilityFilter {
	return func(id Identifier) bool {
		for _, f := range filters {
			if f != nil && !f(id) {
				return false
			}
		}
		return true
	}
}

func identifierSet(ids []Identifier) map[Identifier]struct{} {
	set := make(map[Identifier]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func filterOrDefault(f VisibilityFilter, def VisibilityFilter) VisibilityFilter {
	if f == nil {
		return def
	}
	return f
}
