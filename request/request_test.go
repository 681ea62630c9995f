package request

import (
	"testing"

	"github.com/markhor/libmicrohttpd/fsm"
	"github.com/markhor/libmicrohttpd/headers"
	"github.com/markhor/libmicrohttpd/method"
	"github.com/markhor/libmicrohttpd/pool"
	"github.com/markhor/libmicrohttpd/proto"
	"github.com/stretchr/testify/require"
)

func newTestRequest(t *testing.T) *Request {
	p := pool.New(4096)
	r, err := New(p)
	require.NoError(t, err)

	return r
}

func TestParseRequestLine(t *testing.T) {
	r := newTestRequest(t)

	feed(t, r, "GET /hello HTTP/1.1\r\n")

	ok, err := r.ParseRequestLine()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, method.GET, r.Method)
	require.Equal(t, "/hello", r.URL)
	require.Equal(t, proto.HTTP11, r.Version)
	require.Equal(t, fsm.URLReceived, r.State)
}

func TestParseRequestLineIncomplete(t *testing.T) {
	r := newTestRequest(t)

	feed(t, r, "GET /hello HTTP/1.1")

	ok, err := r.ParseRequestLine()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParseHeadersSimple(t *testing.T) {
	r := newTestRequest(t)
	feed(t, r, "Host: example.com\r\nAccept: */*\r\n\r\n")

	done, err := r.ParseHeaders()
	require.NoError(t, err)
	require.True(t, done)

	v, ok := r.Headers.Get(headers.Header, "Host")
	require.True(t, ok)
	require.Equal(t, "example.com", string(v))
}

func TestParseHeadersFolded(t *testing.T) {
	r := newTestRequest(t)
	feed(t, r, "X-Long: part1\r\n part2\r\n\r\n")

	done, err := r.ParseHeaders()
	require.NoError(t, err)
	require.True(t, done)

	v, ok := r.Headers.Get(headers.Header, "X-Long")
	require.True(t, ok)
	require.Equal(t, "part1 part2", string(v))
}

func feed(t *testing.T, r *Request, data string) {
	t.Helper()

	tail, err := r.ReadTail()
	require.NoError(t, err)
	require.True(t, len(tail) >= len(data))

	copy(tail, data)
	r.Advance(len(data))
}
