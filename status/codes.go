// Package status holds the HTTP status codes this module is aware of, and
// the sentinel errors the state machine and connection manager raise
// internally. It intentionally shadows net/http's status constants instead
// of importing them, to avoid pulling the whole net/http surface into a
// module that implements its own transport.
package status

type (
	Code   uint16
	Status string
)

// HTTP status codes actually produced or consumed by this module. This is
// not an exhaustive IANA registry copy — only what the FSM, the daemon's
// error taxonomy (spec §7) and the response builder need.
const (
	Continue           Code = 100
	SwitchingProtocols Code = 101

	OK        Code = 200
	NoContent Code = 204

	BadRequest                  Code = 400
	Forbidden                   Code = 403
	NotFound                    Code = 404
	MethodNotAllowed            Code = 405
	RequestTimeout              Code = 408
	LengthRequired              Code = 411
	PayloadTooLarge             Code = 413
	URITooLong                  Code = 414
	ExpectationFailed           Code = 417
	RequestHeaderFieldsTooLarge Code = 431

	InternalServerError Code = 500
	NotImplemented      Code = 501
	HTTPVersionNotSupported Code = 505

	// CloseConnection is not a real wire status: it never reaches a peer.
	// It's the pseudo-code used by status.ErrCloseConnection, the sentinel
	// that tells the connection manager "stop driving this connection",
	// mirroring the teacher's http/status/errors.go ErrCloseConnection idiom.
	CloseConnection Code = 0
)

// KnownCodes lists every code this package can render text for, used by
// table-driven tests to assert Text/StringCode stay in sync with the
// const block above.
var KnownCodes = []Code{
	Continue, SwitchingProtocols,
	OK, NoContent,
	BadRequest, Forbidden, NotFound, MethodNotAllowed, RequestTimeout,
	LengthRequired, PayloadTooLarge, URITooLong, ExpectationFailed,
	RequestHeaderFieldsTooLarge,
	InternalServerError, NotImplemented, HTTPVersionNotSupported,
}

// Text returns the reason phrase for code, or the empty string if unknown.
func Text(code Code) Status {
	switch code {
	case Continue:
		return "Continue"
	case SwitchingProtocols:
		return "Switching Protocols"
	case OK:
		return "OK"
	case NoContent:
		return "No Content"
	case BadRequest:
		return "Bad Request"
	case Forbidden:
		return "Forbidden"
	case NotFound:
		return "Not Found"
	case MethodNotAllowed:
		return "Method Not Allowed"
	case RequestTimeout:
		return "Request Timeout"
	case LengthRequired:
		return "Length Required"
	case PayloadTooLarge:
		return "Payload Too Large"
	case URITooLong:
		return "URI Too Long"
	case ExpectationFailed:
		return "Expectation Failed"
	case RequestHeaderFieldsTooLarge:
		return "Request Header Fields Too Large"
	case InternalServerError:
		return "Internal Server Error"
	case NotImplemented:
		return "Not Implemented"
	case HTTPVersionNotSupported:
		return "HTTP Version Not Supported"
	default:
		return ""
	}
}
