package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSha256HexDeterministic(t *testing.T) {
	a := Sha256HexString("workspace://README.md")
	b := Sha256HexString("workspace://README.md")
	require.Equal(t, a, b)
	require.Len(t, a, 64)
}

func TestFactIDDeterministic(t *testing.T) {
	id1 := FactID("build", "repo")
	id2 := FactID("build", "repo")
	assert.Equal(t, id1, id2)
	assert.True(t, strings.HasPrefix(id1, "F-"))
	assert.Len(t, id1, len("F-")+16)
}

func TestFactIDDefaultsScope(t *testing.T) {
	assert.Equal(t, FactID("build", ""), FactID("build", "repo"))
}

func TestTaskIDSlugTruncation(t *testing.T) {
	assert.Equal(t, "T-implement-fe", TaskID("Implement feature"))
}

func TestSlugCollapsesNonAlnum(t *testing.T) {
	assert.Equal(t, "hello-world", Slug("Hello, World!!", 32))
}

func TestRandIDPrefix(t *testing.T) {
	id := RandID("D")
	assert.True(t, strings.HasPrefix(id, "D-"))
	assert.NotEqual(t, RandID("D"), RandID("D"))
}
