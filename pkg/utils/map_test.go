package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCopyMap(t *testing.T) {
	m := map[string]int{"a": 1, "b": 2}
	got := CopyMap(m)
	require.Equal(t, m, got)

	got["c"] = 3
	require.NotContains(t, m, "c")
}

func TestMinMax(t *testing.T) {
	require.Equal(t, 1, Min(1, 2))
	require.Equal(t, 2, Max(1, 2))
	require.Equal(t, "a", Min("a", "b"))
}

func TestRandAlphanumeric(t *testing.T) {
	cookie := RandAlphanumeric(16)
	require.Len(t, cookie, 16)
	for _, c := range cookie {
		require.Contains(t, alphanum, string(c))
	}
}
