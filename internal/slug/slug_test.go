package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "MERN Stack", want: "mern-stack"},
		{in: "  React + Redux  Starter ", want: "react-redux-starter"},
		{in: "--already-slugged--", want: "already-slugged"},
		{in: "Node.js_API v2", want: "node-js-api-v2"},
		{in: "Café Ünïcode", want: "caf-n-code"},
		{in: "!!!", want: ""},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.in))
		})
	}
}

func TestMake_IdempotentAndClean(t *testing.T) {
	inputs := []string{"MERN Stack", "a--b", " -x- ", "Vue 3 + Vite", "ÀÉ", "a..b..c", "Full Stack (2024)"}

	for _, in := range inputs {
		once := Make(in)
		assert.Equal(t, once, Make(once), "Make must be idempotent for %q", in)
		assert.Equal(t, once, Make(in), "Make must be deterministic for %q", in)
		assert.False(t, strings.HasPrefix(once, "-"), "leading hyphen in %q", once)
		assert.False(t, strings.HasSuffix(once, "-"), "trailing hyphen in %q", once)
		assert.NotContains(t, once, "--")
	}
}
