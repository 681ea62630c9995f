package fsm

import (
	"github.com/markhor/libmicrohttpd/headers"
	"github.com/markhor/libmicrohttpd/proto"
	"github.com/markhor/libmicrohttpd/status"
)

// UnknownLength is the sentinel spec §3 calls out for
// remaining_upload_size and response total-size: "size not known up
// front", i.e. a chunked upload (request side) or a streamed body
// (response side).
const UnknownLength int64 = -1

// Framing is the outcome of the body-framing decision made once, at
// HEADERS_RECEIVED (spec §4.1).
type Framing struct {
	Chunked       bool
	RemainingSize int64
	HasBody       bool
}

// DecideFraming implements spec §4.1's body-framing priority: chunked
// Transfer-Encoding first, then Content-Length; with neither header the
// request has no body (RemainingSize 0), whatever hasRequestBody says.
// hasRequestBody reflects method.HasRequestBody for the method under
// parse; methods without a defined body semantic still get whatever
// framing the headers describe, matching real HTTP servers tolerating
// (if not encouraging) a body on e.g. DELETE.
func DecideFraming(h *headers.List, hasRequestBody bool) (Framing, error) {
	if te, ok := h.GetLast(headers.Header, "Transfer-Encoding"); ok {
		if !isChunkedToken(te) {
			return Framing{}, status.ErrBadRequest
		}

		if _, hasCL := h.GetLast(headers.Header, "Content-Length"); hasCL {
			// RFC 7230 §3.3.3: a request with both is to be treated as
			// an attempt to smuggle a second request and rejected.
			return Framing{}, status.ErrBadRequest
		}

		return Framing{Chunked: true, RemainingSize: UnknownLength, HasBody: true}, nil
	}

	if cl, ok := h.GetLast(headers.Header, "Content-Length"); ok {
		n, ok := parseContentLength(cl)
		if !ok {
			return Framing{}, status.ErrBadRequest
		}

		return Framing{RemainingSize: n, HasBody: n > 0}, nil
	}

	if !hasRequestBody {
		return Framing{RemainingSize: 0}, nil
	}

	return Framing{RemainingSize: 0}, nil
}

func isChunkedToken(value string) bool {
	// The only encoding this module drives is a single "chunked" token;
	// anything layered on top (gzip, etc.) is outside this module's
	// scope per spec §1 non-goals.
	return equalFoldASCII(value, "chunked")
}

func parseContentLength(s string) (int64, bool) {
	if len(s) == 0 {
		return 0, false
	}

	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}

		n = n*10 + int64(c-'0')
	}

	return n, true
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := 0; i < len(a); i++ {
		ac, bc := a[i], b[i]
		if 'A' <= ac && ac <= 'Z' {
			ac += 'a' - 'A'
		}
		if 'A' <= bc && bc <= 'Z' {
			bc += 'a' - 'A'
		}
		if ac != bc {
			return false
		}
	}

	return true
}

// DecideKeepalive implements spec §4.1's keep-alive decision: HTTP/1.1
// defaults to keep-alive unless a "close" token appears on either side;
// HTTP/1.0 defaults to close unless "keep-alive" appears on both.
// current is combined via Keepalive.Advance so the monotonicity
// invariant holds regardless of call order.
func DecideKeepalive(current Keepalive, p proto.Proto, reqConnection, respConnection string) Keepalive {
	if hasToken(reqConnection, "close") || hasToken(respConnection, "close") {
		return current.Advance(MustClose)
	}

	if p == proto.HTTP10 {
		if hasToken(reqConnection, "keep-alive") && hasToken(respConnection, "keep-alive") {
			return current.Advance(KeepAlive)
		}

		return current.Advance(MustClose)
	}

	return current.Advance(KeepAlive)
}

func hasToken(header, token string) bool {
	for len(header) > 0 {
		var part string
		i := indexByte(header, ',')
		if i < 0 {
			part, header = header, ""
		} else {
			part, header = header[:i], header[i+1:]
		}

		part = trimSpace(part)
		if equalFoldASCII(part, token) {
			return true
		}
	}

	return false
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}

	return -1
}

func trimSpace(s string) string {
	start := 0
	for start < len(s) && (s[start] == ' ' || s[start] == '\t') {
		start++
	}

	end := len(s)
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}

	return s[start:end]
}
