package status

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	for _, code := range KnownCodes {
		require.NotEmpty(t, Text(code))
	}

	require.Empty(t, Text(Code(999)))
}

func TestStringCode(t *testing.T) {
	require.Equal(t, "404", StringCode(NotFound))
}

func TestHTTPError(t *testing.T) {
	err := NewError(BadRequest, "bad request")
	require.Equal(t, "bad request", err.Error())
	require.Equal(t, BadRequest, err.Code)
}
