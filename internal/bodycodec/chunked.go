// Package bodycodec adapts the third-party chunked transfer-encoding
// parser to the shape the request FSM wants: feed it whatever bytes
// just arrived in the read buffer, get back decoded body bytes plus any
// leftover bytes that belong to the next request pipelined onto the
// same connection.
//
// The decoding state machine itself is not reimplemented here — that
// job belongs to github.com/indigo-web/chunkedbody, the same dependency
// the teacher's own (now-superseded) hand-rolled chunkedBodyParser in
// internal/parser/http1/chunkedbodyparser.go was written to replace.
// This file is the seam between that library and this module's own
// FSM/status types: the request FSM uses it while draining a chunked
// upload in HEADERS_PROCESSED (spec §4.1), and it maps oversized chunks
// and malformed framing to status errors (§7).
package bodycodec

import (
	"errors"
	"io"

	"github.com/indigo-web/chunkedbody"
	"github.com/markhor/libmicrohttpd/headers"
	"github.com/markhor/libmicrohttpd/status"
)

// DefaultMaxChunkSize bounds a single chunk's declared size, guarding
// against a hostile chunk-size header driving unbounded reads before
// the pool overflow check would otherwise trigger.
const DefaultMaxChunkSize = 1 << 20

// Chunked wraps chunkedbody.Parser with error mapping. It does not
// collect trailer fields: nothing is ever added to its trailers list.
type Chunked struct {
	parser   *chunkedbody.Parser
	trailers *headers.List
}

// NewChunked constructs a decoder, following the teacher's own
// initializers.go: start from chunkedbody.DefaultSettings() and only
// override MaxChunkSize, rather than building a Settings literal from
// scratch. trailers is stored on the decoder, but Feed never adds
// entries to it.
func NewChunked(trailers *headers.List) *Chunked {
	settings := chunkedbody.DefaultSettings()
	settings.MaxChunkSize = DefaultMaxChunkSize

	return &Chunked{
		parser:   chunkedbody.NewParser(settings),
		trailers: trailers,
	}
}

// Feed decodes as much of data as forms complete chunks, returning the
// decoded body bytes, whether the terminating chunk (and any trailers)
// has been fully consumed, and any bytes past the terminator that
// belong to a pipelined next request.
//
// The underlying parser signals completion by returning io.EOF rather
// than a boolean, matching the teacher's own
// internal/transport/http1.Body.Retrieve use of the same package. Any
// other error (malformed chunk-size line, oversized chunk) is
// translated to this module's status sentinels so callers can queue a
// response without knowing about the third-party package's own error
// type.
func (c *Chunked) Feed(data []byte) (body, extra []byte, done bool, err error) {
	body, extra, err = c.parser.Parse(data, true)
	if err == nil {
		return body, extra, false, nil
	}

	if errors.Is(err, io.EOF) {
		return body, extra, true, nil
	}

	return nil, nil, true, translateErr(err)
}

func translateErr(err error) error {
	var sizeErr *chunkedbody.ErrChunkTooLarge
	if errors.As(err, &sizeErr) {
		return status.ErrPayloadTooLarge
	}

	return status.ErrBadRequest
}
