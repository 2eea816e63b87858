package bridge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRetcodeMessage(t *testing.T) {
	require.Equal(t, "prices changed", RetcodeMessage(10020))
	require.Equal(t, "autotrading disabled", RetcodeMessage(10027))
	require.Equal(t, "error 1", RetcodeMessage(1))
}

func TestTruncateComment(t *testing.T) {
	short := "open position"
	require.Equal(t, short, truncateComment(short))

	long := strings.Repeat("x", 40)
	require.Len(t, truncateComment(long), 26)
}
