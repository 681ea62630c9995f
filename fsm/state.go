// Package fsm holds the states of the twenty-state request/response
// state machine spec §4.1 defines, and the body-framing and keep-alive
// decisions taken at HEADERS_RECEIVED. The transition loop itself,
// request.Request.Idle, lives in the request package.
//
// The teacher has no direct analogue — indigo's own HTTP/1 parser is a
// goto-driven byte-at-a-time scanner (internal/parser/http1) rather than
// an explicit state enum — so this package's shape is grounded directly
// on the real libmicrohttpd source it distills:
// original_source/src/microhttpd/internal.h's enum MHD_REQUEST_STATE,
// carried over one-to-one down to member names, and
// original_source/src/microhttpd/connection.c's MHD_connection_handle_idle
// for the fixpoint-loop shape request.Request.Idle reproduces in Go.
package fsm

// State is one of the twenty (plus UPGRADE sink) states a Request moves
// through from creation to cleanup.
type State uint8

const (
	Init State = iota
	URLReceived
	HeaderPartReceived
	HeadersReceived
	HeadersProcessed
	ContinueSending
	ContinueSent
	BodyReceived
	FooterPartReceived
	FootersReceived
	HeadersSending
	HeadersSent
	NormalBodyReady
	NormalBodyUnready
	ChunkedBodyReady
	ChunkedBodyUnready
	BodySent
	FootersSending
	FootersSent
	Closed
	InCleanup

	// Upgrade is a sink state reachable only from HeadersSent, once the
	// queued response is an upgrade response (spec §4.1, §6 Upgrade):
	// from here the FSM stops driving the connection and the host's
	// UpgradeHandler owns the raw socket.
	Upgrade
)

var names = [...]string{
	Init:                "INIT",
	URLReceived:         "URL_RECEIVED",
	HeaderPartReceived:  "HEADER_PART_RECEIVED",
	HeadersReceived:     "HEADERS_RECEIVED",
	HeadersProcessed:    "HEADERS_PROCESSED",
	ContinueSending:     "CONTINUE_SENDING",
	ContinueSent:        "CONTINUE_SENT",
	BodyReceived:        "BODY_RECEIVED",
	FooterPartReceived:  "FOOTER_PART_RECEIVED",
	FootersReceived:     "FOOTERS_RECEIVED",
	HeadersSending:      "HEADERS_SENDING",
	HeadersSent:         "HEADERS_SENT",
	NormalBodyReady:     "NORMAL_BODY_READY",
	NormalBodyUnready:   "NORMAL_BODY_UNREADY",
	ChunkedBodyReady:    "CHUNKED_BODY_READY",
	ChunkedBodyUnready:  "CHUNKED_BODY_UNREADY",
	BodySent:            "BODY_SENT",
	FootersSending:      "FOOTERS_SENDING",
	FootersSent:         "FOOTERS_SENT",
	Closed:              "CLOSED",
	InCleanup:           "IN_CLEANUP",
	Upgrade:             "UPGRADE",
}

func (s State) String() string {
	if int(s) >= len(names) {
		return "UNKNOWN"
	}

	return names[s]
}

// IsTerminal reports whether no further idle() progress is possible or
// meaningful from this state.
func (s State) IsTerminal() bool {
	return s == Closed || s == InCleanup || s == Upgrade
}

// EventLoopInfo is the event a Request is currently blocked on, derived
// fresh at the end of every idle() call and published for the daemon's
// poller to build its interest set from (spec §3 Request, §4.1 idle
// invariant).
type EventLoopInfo uint8

const (
	EventRead EventLoopInfo = iota
	EventWrite
	EventBlock
	EventCleanup
	EventUpgrade
)

func (e EventLoopInfo) String() string {
	switch e {
	case EventRead:
		return "READ"
	case EventWrite:
		return "WRITE"
	case EventBlock:
		return "BLOCK"
	case EventCleanup:
		return "CLEANUP"
	case EventUpgrade:
		return "UPGRADE"
	default:
		return "UNKNOWN"
	}
}

// Keepalive is the tri-state connection-persistence decision spec §3/§4.1
// tracks per request, named after the real MHD_ConnKeepAlive enum
// (original_source/src/microhttpd/internal.h) rather than a plain bool,
// because "unknown" (not yet decided, before headers finish parsing) is
// a distinct state from "keep-alive decided".
type Keepalive uint8

const (
	KeepaliveUnknown Keepalive = iota
	KeepAlive
	MustClose
)

// Advance applies the monotonicity invariant from spec §3: keepalive may
// only ever move toward MustClose, never back toward KeepAlive or
// KeepaliveUnknown. Calling Advance(KeepAlive) once already MustClose is
// a no-op.
func (k Keepalive) Advance(next Keepalive) Keepalive {
	if k == MustClose {
		return MustClose
	}

	return next
}
