package filetree

import (
	"fmt"
	"math"

	"github.com/sakif/code-compass/internal/model"
)

// CompletionStats summarises how many of a tree's files are marked done.
type CompletionStats struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Percent   float64 `json:"percent"`
}

// Completion counts the files of root whose IDs appear in completed.
// IDs that do not name a file in the tree are ignored.
func Completion(root *model.FileNode, completed []string) CompletionStats {
	done := make(map[string]struct{}, len(completed))
	for _, id := range completed {
		done[id] = struct{}{}
	}

	var stats CompletionStats
	for node := range Files(root) {
		stats.Total++
		if _, ok := done[node.ID]; ok {
			stats.Completed++
		}
	}
	if stats.Total > 0 {
		stats.Percent = math.Round(float64(stats.Completed)/float64(stats.Total)*1000) / 10
	}
	return stats
}

// Validate checks an authored tree: every node needs an id, a name and a
// known type, and ids must be unique. A nil root is valid (empty tree).
func Validate(root *model.FileNode) error {
	seen := make(map[string]string)
	for node := range Walk(root) {
		switch {
		case node.ID == "":
			return fmt.Errorf("node %q has no id", node.Path)
		case node.Name == "":
			return fmt.Errorf("node %q has no name", node.ID)
		case node.Type != model.NodeFile && node.Type != model.NodeFolder:
			return fmt.Errorf("node %q has unknown type %q", node.ID, node.Type)
		}
		if prev, dup := seen[node.ID]; dup {
			return fmt.Errorf("node id %q used by both %q and %q", node.ID, prev, node.Path)
		}
		seen[node.ID] = node.Path
	}
	return nil
}
