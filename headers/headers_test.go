package headers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListAddAndGet(t *testing.T) {
	var l List

	l.Add(Header, []byte("Host"), []byte("example.com"))
	l.Add(Cookie, []byte("session"), []byte("abc"))
	l.Add(Header, []byte("Accept"), []byte("*/*"))

	require.Equal(t, 3, l.Len())

	v, ok := l.Get(Header, "Host")
	require.True(t, ok)
	require.Equal(t, "example.com", string(v))

	_, ok = l.Get(Header, "session")
	require.False(t, ok)

	v, ok = l.Get(Cookie, "session")
	require.True(t, ok)
	require.Equal(t, "abc", string(v))
}

func TestListGetIsCaseInsensitive(t *testing.T) {
	var l List

	l.Add(Header, []byte("Content-Length"), []byte("5"))

	v, ok := l.Get(Header, "content-length")
	require.True(t, ok)
	require.Equal(t, "5", string(v))

	v, ok = l.Get(Header, "CONTENT-LENGTH")
	require.True(t, ok)
	require.Equal(t, "5", string(v))
}

func TestListPreservesDuplicateOrder(t *testing.T) {
	var l List

	l.Add(Header, []byte("X-Forwarded-For"), []byte("1.1.1.1"))
	l.Add(Header, []byte("X-Forwarded-For"), []byte("2.2.2.2"))

	var got []string
	l.Each(Header, func(_, value []byte) bool {
		got = append(got, string(value))
		return true
	})

	require.Equal(t, []string{"1.1.1.1", "2.2.2.2"}, got)

	v, ok := l.GetLast(Header, "X-Forwarded-For")
	require.True(t, ok)
	require.Equal(t, "2.2.2.2", string(v))
}

func TestListEachStopsEarly(t *testing.T) {
	var l List

	l.Add(Header, []byte("A"), []byte("1"))
	l.Add(Header, []byte("B"), []byte("2"))
	l.Add(Header, []byte("C"), []byte("3"))

	var seen int
	l.Each(Header, func(_, _ []byte) bool {
		seen++
		return seen < 2
	})

	require.Equal(t, 2, seen)
}

func TestListReset(t *testing.T) {
	var l List

	l.Add(Header, []byte("A"), []byte("1"))
	require.Equal(t, 1, l.Len())

	l.Reset()
	require.Equal(t, 0, l.Len())

	_, ok := l.Get(Header, "A")
	require.False(t, ok)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "HEADER", Header.String())
	require.Equal(t, "GET_ARGUMENT", GetArgument.String())
	require.Equal(t, "UNKNOWN", Kind(255).String())
}
