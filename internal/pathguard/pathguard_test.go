package pathguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeJoinWithinRoot(t *testing.T) {
	p, err := SafeJoin("/work/proj", "src/main.go")
	require.NoError(t, err)
	assert.Equal(t, "/work/proj/src/main.go", p)
}

func TestSafeJoinRoot(t *testing.T) {
	p, err := SafeJoin("/work/proj", ".")
	require.NoError(t, err)
	assert.Equal(t, "/work/proj", p)
}

func TestSafeJoinEscapeRejected(t *testing.T) {
	_, err := SafeJoin("/work/proj", "../../etc/passwd")
	require.Error(t, err)
}

func TestSafeJoinSiblingPrefixRejected(t *testing.T) {
	// "/work/project-evil" must not be accepted as within "/work/proj".
	_, err := SafeJoin("/work/proj", "../proj-evil/secret")
	require.Error(t, err)
}
