package fsm

import (
	"testing"

	"github.com/markhor/libmicrohttpd/headers"
	"github.com/markhor/libmicrohttpd/proto"
	"github.com/stretchr/testify/require"
)

func TestDecideFramingChunked(t *testing.T) {
	var h headers.List
	h.Add(headers.Header, []byte("Transfer-Encoding"), []byte("chunked"))

	f, err := DecideFraming(&h, true)
	require.NoError(t, err)
	require.True(t, f.Chunked)
	require.Equal(t, UnknownLength, f.RemainingSize)
}

func TestDecideFramingContentLength(t *testing.T) {
	var h headers.List
	h.Add(headers.Header, []byte("Content-Length"), []byte("42"))

	f, err := DecideFraming(&h, true)
	require.NoError(t, err)
	require.False(t, f.Chunked)
	require.EqualValues(t, 42, f.RemainingSize)
	require.True(t, f.HasBody)
}

func TestDecideFramingConflictingHeadersRejected(t *testing.T) {
	var h headers.List
	h.Add(headers.Header, []byte("Transfer-Encoding"), []byte("chunked"))
	h.Add(headers.Header, []byte("Content-Length"), []byte("10"))

	_, err := DecideFraming(&h, true)
	require.Error(t, err)
}

func TestDecideFramingMalformedContentLength(t *testing.T) {
	var h headers.List
	h.Add(headers.Header, []byte("Content-Length"), []byte("4x2"))

	_, err := DecideFraming(&h, true)
	require.Error(t, err)
}

func TestDecideFramingNoBody(t *testing.T) {
	var h headers.List

	f, err := DecideFraming(&h, false)
	require.NoError(t, err)
	require.False(t, f.HasBody)
	require.EqualValues(t, 0, f.RemainingSize)
}

func TestDecideKeepaliveHTTP11Default(t *testing.T) {
	k := DecideKeepalive(KeepaliveUnknown, proto.HTTP11, "", "")
	require.Equal(t, KeepAlive, k)
}

func TestDecideKeepaliveHTTP11Close(t *testing.T) {
	k := DecideKeepalive(KeepaliveUnknown, proto.HTTP11, "keep-alive, close", "")
	require.Equal(t, MustClose, k)
}

func TestDecideKeepaliveHTTP10RequiresBothSides(t *testing.T) {
	k := DecideKeepalive(KeepaliveUnknown, proto.HTTP10, "keep-alive", "")
	require.Equal(t, MustClose, k)

	k = DecideKeepalive(KeepaliveUnknown, proto.HTTP10, "keep-alive", "keep-alive")
	require.Equal(t, KeepAlive, k)
}

func TestKeepaliveMonotonicity(t *testing.T) {
	k := MustClose
	k = k.Advance(KeepAlive)
	require.Equal(t, MustClose, k)
}
