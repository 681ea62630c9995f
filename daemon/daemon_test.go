package daemon

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/markhor/libmicrohttpd/request"
	"github.com/markhor/libmicrohttpd/response"
	"github.com/markhor/libmicrohttpd/status"
	"github.com/stretchr/testify/require"
)

func echoPathHandler(req *request.Request, body []byte, bodyDone bool) *response.Response {
	return response.NewBuffer(status.OK, []byte(req.URL))
}

func listenLocal(t *testing.T) net.Listener {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

// TestKeepAliveAcrossRequests mirrors a curl-style "send two requests on
// one connection, expect two replies" round trip: a client opens one
// TCP connection, pipelines two GET requests, and expects both
// responses without the server ever closing the socket in between.
func TestKeepAliveAcrossRequests(t *testing.T) {
	ln := listenLocal(t)
	defer ln.Close()

	m, err := New(Options{ThreadModel: ThreadPerConnection}, echoPathHandler)
	require.NoError(t, err)

	go func() { _ = m.Serve(ln, false) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /one HTTP/1.1\r\nHost: x\r\n\r\nGET /two HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)

	for _, want := range []string{"/one", "/two"} {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		require.Contains(t, line, "200 OK")

		for {
			h, err := reader.ReadString('\n')
			require.NoError(t, err)
			if h == "\r\n" {
				break
			}
		}

		body := make([]byte, len(want))
		_, err = io.ReadFull(reader, body)
		require.NoError(t, err)
		require.Equal(t, want, string(body))
	}

	m.Shutdown(false)
}

func TestAcceptPolicyRejectsConnection(t *testing.T) {
	ln := listenLocal(t)
	defer ln.Close()

	opts := Options{
		ThreadModel: ThreadPerConnection,
		AcceptPolicy: func(net.Addr) bool {
			return false
		},
	}

	m, err := New(opts, echoPathHandler)
	require.NoError(t, err)

	go func() { _ = m.Serve(ln, false) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	require.True(t, n == 0 && err != nil, "expected the server to close a rejected connection")

	m.Shutdown(false)
}

func TestGlobalConnectionLimit(t *testing.T) {
	ln := listenLocal(t)
	defer ln.Close()

	opts := Options{
		ThreadModel:           ThreadPerConnection,
		GlobalConnectionLimit: 1,
	}

	m, err := New(opts, echoPathHandler)
	require.NoError(t, err)

	go func() { _ = m.Serve(ln, false) }()

	first, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer first.Close()

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, m.ActiveConnections())

	second, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer second.Close()

	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, err := second.Read(buf)
	require.True(t, n == 0 && err != nil, "expected the second connection to be refused past the global limit")

	m.Shutdown(false)
}

func TestTimeoutEvictsIdleConnection(t *testing.T) {
	ln := listenLocal(t)
	defer ln.Close()

	opts := Options{
		ThreadModel:          ThreadPerConnection,
		ConnectionTimeout:    100 * time.Millisecond,
		TimeoutSweepInterval: 20 * time.Millisecond,
	}

	m, err := New(opts, echoPathHandler)
	require.NoError(t, err)

	go func() { _ = m.Serve(ln, false) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	require.True(t, n == 0 && err != nil, "expected the idle connection to be evicted by the timeout sweep")

	m.Shutdown(false)
}

func TestGracefulShutdownLetsInFlightFinish(t *testing.T) {
	ln := listenLocal(t)
	defer ln.Close()

	m, err := New(Options{ThreadModel: ThreadPerConnection}, echoPathHandler)
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- m.Serve(ln, false) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /hi HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, line, "200 OK")

	m.Shutdown(true)

	err = <-served
	require.ErrorIs(t, err, status.ErrGracefulShutdown)
}
