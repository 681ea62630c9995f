package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	require.Equal(t, "INIT", Init.String())
	require.Equal(t, "FOOTERS_SENT", FootersSent.String())
	require.Equal(t, "UPGRADE", Upgrade.String())
	require.Equal(t, "UNKNOWN", State(255).String())
}

func TestStateIsTerminal(t *testing.T) {
	require.True(t, Closed.IsTerminal())
	require.True(t, InCleanup.IsTerminal())
	require.True(t, Upgrade.IsTerminal())
	require.False(t, Init.IsTerminal())
	require.False(t, HeadersSending.IsTerminal())
}

func TestEventLoopInfoString(t *testing.T) {
	require.Equal(t, "READ", EventRead.String())
	require.Equal(t, "BLOCK", EventBlock.String())
}
