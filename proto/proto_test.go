package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBytes(t *testing.T) {
	require.Equal(t, HTTP11, FromBytes([]byte("HTTP/1.1")))
	require.Equal(t, HTTP10, FromBytes([]byte("HTTP/1.0")))
	require.Equal(t, Unknown, FromBytes([]byte("HTTP/2.0")))
	require.Equal(t, Unknown, FromBytes([]byte("ftp/1.1")))
	require.Equal(t, Unknown, FromBytes([]byte("garbage")))
}

func TestChooseUpgrade(t *testing.T) {
	require.Equal(t, HTTP11, ChooseUpgrade("websocket, HTTP/1.1"))
	require.Equal(t, Unknown, ChooseUpgrade("websocket"))
}
