// Package depgraph answers questions about a template's dependency edges:
// who depends on what, which edges point outside the file tree, and in
// what order the files can be built.
package depgraph

import (
	"cmp"
	"slices"

	"github.com/sakif/code-compass/internal/filetree"
	"github.com/sakif/code-compass/internal/model"
)

// Graph indexes dependency edges by endpoint. From depends on To.
type Graph struct {
	edges      []model.Dependency
	dependsOn  map[string][]string
	dependents map[string][]string
}

func New(deps []model.Dependency) *Graph {
	g := &Graph{
		edges:      deps,
		dependsOn:  make(map[string][]string),
		dependents: make(map[string][]string),
	}
	for _, d := range deps {
		g.dependsOn[d.From] = append(g.dependsOn[d.From], d.To)
		g.dependents[d.To] = append(g.dependents[d.To], d.From)
	}
	return g
}

// DependsOn returns the paths that path depends on, in edge order.
func (g *Graph) DependsOn(path string) []string { return g.dependsOn[path] }

// Dependents returns the paths that depend on path, in edge order.
func (g *Graph) Dependents(path string) []string { return g.dependents[path] }

// Dangling returns the edges with an endpoint missing from paths.
func (g *Graph) Dangling(paths map[string]struct{}) []model.Dependency {
	var out []model.Dependency
	for _, d := range g.edges {
		_, okFrom := paths[d.From]
		_, okTo := paths[d.To]
		if !okFrom || !okTo {
			out = append(out, d)
		}
	}
	return out
}

// BuildOrder returns the file paths of root so that every file comes after
// the files it depends on. Among files that are ready at the same time the
// lower FileNode order goes first, then the path. Files that are not
// orderable, those on a cycle and those depending on one directly or
// transitively, are appended by order and also returned as cyclic. Edges
// to paths outside the tree are ignored.
func BuildOrder(root *model.FileNode, deps []model.Dependency) (order []string, cyclic []string) {
	nodes := make(map[string]*model.FileNode)
	for n := range filetree.Files(root) {
		if n.Path != "" {
			nodes[n.Path] = n
		}
	}

	indegree := make(map[string]int, len(nodes))
	next := make(map[string][]string)
	for p := range nodes {
		indegree[p] = 0
	}
	seen := make(map[[2]string]bool)
	for _, d := range deps {
		if _, ok := nodes[d.From]; !ok {
			continue
		}
		if _, ok := nodes[d.To]; !ok || d.From == d.To {
			continue
		}
		key := [2]string{d.From, d.To}
		if seen[key] {
			continue
		}
		seen[key] = true
		indegree[d.From]++
		next[d.To] = append(next[d.To], d.From)
	}

	less := func(a, b string) int {
		if c := cmp.Compare(nodes[a].Order, nodes[b].Order); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	}

	var ready []string
	for p, deg := range indegree {
		if deg == 0 {
			ready = append(ready, p)
		}
	}

	for len(ready) > 0 {
		slices.SortFunc(ready, less)
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)
		for _, dep := range next[cur] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) < len(nodes) {
		for p, deg := range indegree {
			if deg > 0 {
				cyclic = append(cyclic, p)
			}
		}
		slices.SortFunc(cyclic, less)
		order = append(order, cyclic...)
	}
	return order, cyclic
}
