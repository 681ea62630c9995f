package bodycodec

import (
	"testing"

	"github.com/markhor/libmicrohttpd/headers"
	"github.com/stretchr/testify/require"
)

func TestChunkedFeedSingleChunk(t *testing.T) {
	var trailers headers.List
	c := NewChunked(&trailers)

	body, extra, done, err := c.Feed([]byte("5\r\nhello\r\n0\r\n\r\n"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))
	require.True(t, done)
	require.Empty(t, extra)
}

func TestChunkedFeedPipelinedExtra(t *testing.T) {
	var trailers headers.List
	c := NewChunked(&trailers)

	_, extra, done, err := c.Feed([]byte("0\r\n\r\nGET / HTTP/1.1\r\n"))
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, "GET / HTTP/1.1\r\n", string(extra))
}
