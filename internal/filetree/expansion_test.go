package filetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggle(t *testing.T) {
	start := NewExpansion("root")

	opened := Toggle(start, "client")
	assert.True(t, opened.IsExpanded("client"))
	assert.False(t, start.IsExpanded("client"), "original state must not change")

	closed := Toggle(opened, "client")
	assert.False(t, closed.IsExpanded("client"))
	assert.Equal(t, []string{"root"}, closed.IDs())
}

func TestToggle_NilState(t *testing.T) {
	got := Toggle(nil, "src")
	assert.Equal(t, []string{"src"}, got.IDs())
}

func TestExpandAll(t *testing.T) {
	got := ExpandAll(mernTree(t))
	assert.Equal(t, []string{"client", "root", "src"}, got.IDs())
}
