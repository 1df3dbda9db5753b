package filetree

import (
	"maps"
	"slices"

	"github.com/sakif/code-compass/internal/model"
)

// Expansion is the set of folder IDs a viewer has expanded.
type Expansion map[string]struct{}

// NewExpansion builds a set from the given IDs.
func NewExpansion(ids ...string) Expansion {
	e := make(Expansion, len(ids))
	for _, id := range ids {
		e[id] = struct{}{}
	}
	return e
}

// Toggle returns a copy of state with nodeID flipped: removed if it was
// expanded, added otherwise. state itself is left unchanged.
func Toggle(state Expansion, nodeID string) Expansion {
	next := maps.Clone(state)
	if next == nil {
		next = make(Expansion, 1)
	}
	if _, ok := next[nodeID]; ok {
		delete(next, nodeID)
	} else {
		next[nodeID] = struct{}{}
	}
	return next
}

// IsExpanded reports whether nodeID is in the set.
func (e Expansion) IsExpanded(nodeID string) bool {
	_, ok := e[nodeID]
	return ok
}

// IDs returns the expanded IDs sorted, for stable serialisation.
func (e Expansion) IDs() []string {
	return slices.Sorted(maps.Keys(e))
}

// ExpandAll returns a set containing every folder of the tree.
func ExpandAll(root *model.FileNode) Expansion {
	e := make(Expansion)
	for node := range Filter(root, (*model.FileNode).IsFolder) {
		e[node.ID] = struct{}{}
	}
	return e
}
