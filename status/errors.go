package status

import "strconv"

// HTTPError carries a status code alongside a message, exactly the shape
// the teacher's http/status/errors.go uses. Returning one from the parser
// or the dispatch path tells the FSM both what to log and what to put on
// the wire.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) HTTPError {
	return HTTPError{Code: code, Message: message}
}

func (h HTTPError) Error() string {
	return h.Message
}

// StringCode renders a code as its plain decimal string.
func StringCode(code Code) string {
	return strconv.Itoa(int(code))
}

// Protocol and resource errors the FSM can produce (spec §7 taxonomy).
// All of them are connection-local: the caller queues the matching minimal
// error response and marks the connection MustClose.
var (
	ErrBadRequest                = NewError(BadRequest, "bad request")
	ErrURITooLong                = NewError(URITooLong, "request URI too long")
	ErrUnsupportedProtocol       = NewError(HTTPVersionNotSupported, "protocol is not supported")
	ErrMethodNotImplemented      = NewError(NotImplemented, "request method is not supported")
	ErrHeaderFieldsTooLarge      = NewError(RequestHeaderFieldsTooLarge, "header fields too large")
	ErrTooManyHeaders            = NewError(RequestHeaderFieldsTooLarge, "too many headers")
	ErrPayloadTooLarge           = NewError(PayloadTooLarge, "payload too large")
	ErrLengthRequired            = NewError(LengthRequired, "length required")
	ErrExpectationFailed         = NewError(ExpectationFailed, "unsupported expectation")
	ErrRequestTimeout            = NewError(RequestTimeout, "request timeout")
	ErrInternalServerError       = NewError(InternalServerError, "internal server error")

	// ErrCloseConnection is not a protocol error at all: it's the signal
	// sentinel used internally to say "the connection is done, close it",
	// after a response (if any) has already been written. Nothing renders
	// it onto the wire.
	ErrCloseConnection = NewError(CloseConnection, "actively closing the connection")

	// ErrGracefulShutdown and ErrShutdown are returned by a Daemon's run
	// loop to distinguish why it stopped serving (mirrors teacher's
	// App.run/GracefulStop/Stop via status.ErrGracefulShutdown/ErrShutdown).
	ErrGracefulShutdown = NewError(CloseConnection, "graceful shutdown")
	ErrShutdown         = NewError(CloseConnection, "shutdown")
)
