package itc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChannelWakeIsObservable(t *testing.T) {
	ch, err := New()
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, ch.Wake())

	// Give a self-pipe fallback a moment to make the byte visible; an
	// eventfd's counter is updated synchronously with the write.
	time.Sleep(5 * time.Millisecond)

	ch.Drain()
}

func TestChannelCoalescesRepeatedWakes(t *testing.T) {
	ch, err := New()
	require.NoError(t, err)
	defer ch.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, ch.Wake())
	}

	time.Sleep(5 * time.Millisecond)
	ch.Drain()
}
