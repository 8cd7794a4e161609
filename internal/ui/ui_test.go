package ui

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountTextZeroIsDimmedButNotEmpty(t *testing.T) {
	require.NotEmpty(t, CountText(0))
	require.Contains(t, CountText(5), "5")
}

func TestWidthFallsBackWhenNotATTY(t *testing.T) {
	require.Equal(t, 80, Width(80))
}
