package filetree

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/code-compass/internal/model"
)

func TestCompletion(t *testing.T) {
	tests := []struct {
		name      string
		completed []string
		want      CompletionStats
	}{
		{name: "nothing done", completed: nil, want: CompletionStats{Total: 2}},
		{name: "half done", completed: []string{"pkg"}, want: CompletionStats{Total: 2, Completed: 1, Percent: 50}},
		{name: "folders and unknown ids ignored", completed: []string{"client", "ghost", "app"}, want: CompletionStats{Total: 2, Completed: 1, Percent: 50}},
		{name: "all done", completed: []string{"pkg", "app", "app"}, want: CompletionStats{Total: 2, Completed: 2, Percent: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Completion(mernTree(t), tt.completed))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(mernTree(t)))
	assert.NoError(t, Validate(nil))

	dup := mernTree(t)
	dup.Children[0].Children[1].Children[0].ID = "pkg"
	assert.ErrorContains(t, Validate(dup), `"pkg"`)

	noType := &model.FileNode{ID: "x", Name: "x", Type: "symlink"}
	assert.ErrorContains(t, Validate(noType), "unknown type")

	noID := &model.FileNode{Name: "x", Type: model.NodeFile, Path: "/x"}
	assert.ErrorContains(t, Validate(noID), "no id")
}
