package wire

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAdapterRecvSend(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sa := New(server)
	ca := New(client)

	require.Equal(t, Plain, sa.Kind())

	done := make(chan struct{})
	go func() {
		defer close(done)
		n, err := ca.Send([]byte("hello"))
		require.NoError(t, err)
		require.Equal(t, 5, n)
	}()

	buf := make([]byte, 16)
	n, err := sa.Recv(buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))
	<-done
}

func TestAdapterRecvWouldBlock(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sa := New(server)
	require.NoError(t, sa.SetDeadline(time.Now()))

	buf := make([]byte, 16)
	_, err := sa.Recv(buf)
	require.ErrorIs(t, err, ErrWouldBlock)
}

func TestAdapterTurbo(t *testing.T) {
	a := New(nil)
	require.False(t, a.Turbo())

	a.SetTurbo(true)
	require.True(t, a.Turbo())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "plain", Plain.String())
	require.Equal(t, "tls", TLS.String())
}
