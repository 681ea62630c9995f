package response

import (
	"bytes"
	"io"
	"testing"

	"github.com/markhor/libmicrohttpd/headers"
	"github.com/markhor/libmicrohttpd/status"
	"github.com/stretchr/testify/require"
)

func TestNewBufferReadBufferSource(t *testing.T) {
	r := NewBuffer(status.OK, []byte("hello world"))
	require.EqualValues(t, 11, r.TotalSize())

	dst := make([]byte, 5)
	n, err := r.ReadBufferSource(0, dst)
	require.NoError(t, err)
	require.Equal(t, "hello", string(dst[:n]))

	n, err = r.ReadBufferSource(6, dst)
	require.NoError(t, err)
	require.Equal(t, "world", string(dst[:n]))

	_, err = r.ReadBufferSource(11, dst)
	require.ErrorIs(t, err, io.EOF)
}

func TestNewFileReadFileSource(t *testing.T) {
	content := []byte("0123456789")
	r := NewFile(status.OK, bytes.NewReader(content), int64(len(content)))

	dst := make([]byte, 4)
	n, err := r.ReadFileSource(0, dst)
	require.NoError(t, err)
	require.Equal(t, "0123", string(dst[:n]))

	n, err = r.ReadFileSource(8, dst)
	require.NoError(t, err)
	require.Equal(t, "89", string(dst[:n]))
}

func TestNewCallbackUnknownLength(t *testing.T) {
	calls := 0
	r := NewCallback(status.OK, UnknownLength, func(pos int64, buf []byte) (int, error) {
		calls++
		if pos >= 3 {
			return 0, io.EOF
		}
		return copy(buf, "abc"[pos:]), nil
	}, nil)

	require.Equal(t, UnknownLength, r.TotalSize())

	buf := make([]byte, 8)
	n, err := r.ReadCallbackSource(0, buf)
	require.NoError(t, err)
	require.Equal(t, "abc", string(buf[:n]))
}

func TestRefCounting(t *testing.T) {
	freed := false
	r := NewCallback(status.OK, 0, nil, func() { freed = true })

	r.Retain()
	require.False(t, r.Release(status.OK))
	require.False(t, freed)

	require.True(t, r.Release(status.OK))
	require.True(t, freed)
}

func TestAddHeader(t *testing.T) {
	r := NewBuffer(status.OK, nil)
	r.AddHeader("X-Test", "1")

	v, ok := r.Headers().Get(headers.ResponseHeader, "X-Test")
	require.True(t, ok)
	require.Equal(t, "1", string(v))
}
