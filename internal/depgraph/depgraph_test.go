package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/code-compass/internal/filetree"
	"github.com/sakif/code-compass/internal/model"
)

func file(id, path string, order int) *model.FileNode {
	return &model.FileNode{ID: id, Name: id, Type: model.NodeFile, Path: path, Order: order}
}

func tree() *model.FileNode {
	return &model.FileNode{
		ID: "root", Name: "app", Type: model.NodeFolder, Path: "/",
		Children: []*model.FileNode{
			file("index", "/src/index.js", 1),
			file("app", "/src/App.js", 2),
			file("nav", "/src/Navbar.js", 3),
			file("api", "/src/api.js", 4),
		},
	}
}

func edge(from, to string) model.Dependency {
	return model.Dependency{From: from, To: to, Type: model.DependencyImport}
}

func TestBuildOrder_DependenciesFirst(t *testing.T) {
	deps := []model.Dependency{
		edge("/src/index.js", "/src/App.js"),
		edge("/src/App.js", "/src/Navbar.js"),
		edge("/src/App.js", "/src/api.js"),
	}

	order, cyclic := BuildOrder(tree(), deps)

	assert.Empty(t, cyclic)
	assert.Equal(t, []string{"/src/Navbar.js", "/src/api.js", "/src/App.js", "/src/index.js"}, order)
}

func TestBuildOrder_NoEdgesFollowsNodeOrder(t *testing.T) {
	order, _ := BuildOrder(tree(), nil)
	assert.Equal(t, []string{"/src/index.js", "/src/App.js", "/src/Navbar.js", "/src/api.js"}, order)
}

func TestBuildOrder_CycleReported(t *testing.T) {
	deps := []model.Dependency{
		edge("/src/App.js", "/src/Navbar.js"),
		edge("/src/Navbar.js", "/src/App.js"),
		edge("/src/index.js", "/src/missing.js"),
	}

	order, cyclic := BuildOrder(tree(), deps)

	assert.Equal(t, []string{"/src/App.js", "/src/Navbar.js"}, cyclic)
	assert.Len(t, order, 4)
	assert.Equal(t, []string{"/src/index.js", "/src/api.js", "/src/App.js", "/src/Navbar.js"}, order)
}

func TestBuildOrder_DependentOfCycleNotOrderable(t *testing.T) {
	deps := []model.Dependency{
		edge("/src/index.js", "/src/App.js"),
		edge("/src/App.js", "/src/Navbar.js"),
		edge("/src/Navbar.js", "/src/App.js"),
	}

	order, cyclic := BuildOrder(tree(), deps)

	assert.Equal(t, []string{"/src/index.js", "/src/App.js", "/src/Navbar.js"}, cyclic)
	assert.Equal(t, []string{"/src/api.js", "/src/index.js", "/src/App.js", "/src/Navbar.js"}, order)
}

func TestDanglingAndNeighbours(t *testing.T) {
	deps := []model.Dependency{
		edge("/src/index.js", "/src/App.js"),
		edge("/src/App.js", "/server/routes.js"),
	}
	g := New(deps)

	dangling := g.Dangling(filetree.Paths(tree()))
	assert.Equal(t, []model.Dependency{deps[1]}, dangling)

	assert.Equal(t, []string{"/src/App.js"}, g.DependsOn("/src/index.js"))
	assert.Equal(t, []string{"/src/index.js"}, g.Dependents("/src/App.js"))
	assert.Nil(t, g.Dependents("/src/index.js"))
}
