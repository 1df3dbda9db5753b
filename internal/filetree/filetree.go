// Package filetree implements the read-side operations on a template's
// file structure: counting, traversal, ordering and completion tracking.
//
// Every function here is pure. Trees are never mutated; operations that
// reorder or filter return new slices that share the original nodes.
package filetree

import (
	"cmp"
	"iter"
	"slices"

	"github.com/sakif/code-compass/internal/model"
)

// CountFiles returns the number of file nodes in the subtree rooted at
// root. Folders are not counted. A nil root has no files.
func CountFiles(root *model.FileNode) int {
	if root == nil {
		return 0
	}
	if root.IsFile() {
		return 1
	}
	n := 0
	for _, child := range root.ChildNodes() {
		n += CountFiles(child)
	}
	return n
}

// CountFolders returns the number of folder nodes in the subtree,
// root included.
func CountFolders(root *model.FileNode) int {
	n := 0
	for node := range Walk(root) {
		if node.IsFolder() {
			n++
		}
	}
	return n
}

// Walk yields every node of the tree in pre-order: a folder before its
// children, siblings in stored order. The sequence is lazy and can be
// ranged over any number of times.
func Walk(root *model.FileNode) iter.Seq[*model.FileNode] {
	return func(yield func(*model.FileNode) bool) {
		walk(root, yield)
	}
}

func walk(node *model.FileNode, yield func(*model.FileNode) bool) bool {
	if node == nil {
		return true
	}
	if !yield(node) {
		return false
	}
	for _, child := range node.ChildNodes() {
		if !walk(child, yield) {
			return false
		}
	}
	return true
}

// Flatten collects Walk into a slice.
func Flatten(root *model.FileNode) []*model.FileNode {
	return slices.Collect(Walk(root))
}

// Filter yields the pre-order nodes for which keep returns true.
func Filter(root *model.FileNode, keep func(*model.FileNode) bool) iter.Seq[*model.FileNode] {
	return func(yield func(*model.FileNode) bool) {
		for node := range Walk(root) {
			if keep(node) && !yield(node) {
				return
			}
		}
	}
}

// Files yields only the file nodes, in pre-order.
func Files(root *model.FileNode) iter.Seq[*model.FileNode] {
	return Filter(root, (*model.FileNode).IsFile)
}

// Find returns the node with the given id, or nil.
func Find(root *model.FileNode, id string) *model.FileNode {
	for node := range Walk(root) {
		if node.ID == id {
			return node
		}
	}
	return nil
}

// Paths returns the set of paths present in the tree.
func Paths(root *model.FileNode) map[string]struct{} {
	paths := make(map[string]struct{})
	for node := range Walk(root) {
		if node.Path != "" {
			paths[node.Path] = struct{}{}
		}
	}
	return paths
}

// SortByOrder returns the siblings sorted by Order ascending. Equal orders
// keep their original relative position. The input slice is not modified.
func SortByOrder(siblings []*model.FileNode) []*model.FileNode {
	sorted := slices.Clone(siblings)
	slices.SortStableFunc(sorted, func(a, b *model.FileNode) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return sorted
}
