package conn

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/markhor/libmicrohttpd/fsm"
	"github.com/markhor/libmicrohttpd/request"
	"github.com/markhor/libmicrohttpd/response"
	"github.com/markhor/libmicrohttpd/status"
	"github.com/stretchr/testify/require"
)

func echoHandler(req *request.Request, body []byte, bodyDone bool) *response.Response {
	return response.NewBuffer(status.OK, []byte(req.URL))
}

func TestConnectionHandleReadDrivesFullCycle(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c, err := New(1, server, false, 8192, 0)
	require.NoError(t, err)
	defer c.Close()

	done := make(chan string, 1)
	go func() {
		_, _ = client.Write([]byte("GET /ping HTTP/1.1\r\nHost: x\r\n\r\n"))

		// The header block and the body are separate writes on the pipe,
		// so keep reading until the body has arrived (or the deadline).
		_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))

		var got []byte
		buf := make([]byte, 4096)
		for !bytes.Contains(got, []byte("/ping")) {
			n, err := client.Read(buf)
			got = append(got, buf[:n]...)
			if err != nil {
				break
			}
		}
		done <- string(got)
	}()

	require.NoError(t, c.HandleRead(echoHandler))
	require.Equal(t, fsm.Init, c.Req.State)

	resp := <-done
	require.Contains(t, resp, "200 OK")
	require.Contains(t, resp, "/ping")
}

func TestConnectionReadClosedOnPeerClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, _ := ln.Accept()
		accepted <- conn
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	server := <-accepted
	require.NotNil(t, server)

	c, cerr := New(2, server, false, 4096, 0)
	require.NoError(t, cerr)

	err = c.HandleRead(echoHandler)
	require.ErrorIs(t, err, status.ErrCloseConnection)
	require.True(t, c.ReadClosed())
}

func TestConnectionSuspendResume(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c, err := New(3, server, false, 4096, 0)
	require.NoError(t, err)

	require.Equal(t, Normal, c.IOState())

	c.Suspend()
	require.Equal(t, Suspended, c.IOState())

	c.Resume()
	require.Equal(t, Normal, c.IOState())
}

func TestConnectionExpired(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c, err := New(4, server, false, 4096, 1)
	require.NoError(t, err)

	require.False(t, c.Expired(time.Now()))
	require.True(t, c.Expired(time.Now().Add(2*time.Second)))
}

func TestConnectionZeroTimeoutNeverExpires(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c, err := New(5, server, false, 4096, 0)
	require.NoError(t, err)

	require.False(t, c.Expired(time.Now().Add(24*time.Hour)))
}
