package request

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/markhor/libmicrohttpd/fsm"
	"github.com/markhor/libmicrohttpd/pool"
	"github.com/markhor/libmicrohttpd/response"
	"github.com/markhor/libmicrohttpd/status"
	"github.com/markhor/libmicrohttpd/wire"
	"github.com/stretchr/testify/require"
)

// TestIdleSimpleGET drives one full HTTP/1.1 GET round trip through
// Idle, mirroring spec §8 scenario 1: request line and headers arrive
// in one read, the handler queues a response synchronously, and the
// connection cycles back to INIT ready for the next pipelined request.
func TestIdleSimpleGET(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()

	adapter := wire.New(server)
	p := pool.New(8192)

	r, err := New(p)
	require.NoError(t, err)

	handlerCalls := 0
	handler := func(req *Request, body []byte, bodyDone bool) *response.Response {
		handlerCalls++
		return response.NewBuffer(status.OK, []byte(req.URL))
	}

	clientRead := make(chan string, 1)
	go func() {
		_, _ = client.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\n\r\n"))

		// The header block and the body are separate writes on the pipe,
		// so keep reading until the body has arrived (or the deadline).
		_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))

		var got []byte
		buf := make([]byte, 4096)
		for !bytes.Contains(got, []byte("/hello")) {
			n, err := client.Read(buf)
			got = append(got, buf[:n]...)
			if err != nil {
				break
			}
		}
		clientRead <- string(got)
	}()

	tail, terr := r.ReadTail()
	require.NoError(t, terr)

	n, rerr := adapter.Recv(tail)
	require.NoError(t, rerr)
	r.Advance(n)

	require.NoError(t, r.Idle(adapter, handler))

	require.Equal(t, 1, handlerCalls)
	require.Equal(t, fsm.Init, r.State)
	require.Equal(t, fsm.KeepAlive, r.Keepalive)

	resp := <-clientRead
	require.Contains(t, resp, "200 OK")
	require.Contains(t, resp, "/hello")
}
