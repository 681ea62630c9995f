// Package request implements the per-connection Request object spec §3
// defines and the idle() fixpoint loop spec §4.1 drives it with: request-
// line/header parsing, body framing and keep-alive decisions, response
// serialization, and the twenty-state walk from INIT to IN_CLEANUP.
//
// Grounded on the teacher's internal/parser/http1.httpRequestsParser
// (goto-driven incremental line scanner accumulating partial lines into
// an arena) and internal/server/http.Server's drive loop (read -> parse
// -> dispatch -> write), adapted onto this module's pool.Pool/
// headers.List/fsm.State types instead of indigo's own request/body
// types.
package request

import (
	"github.com/markhor/libmicrohttpd/fsm"
	"github.com/markhor/libmicrohttpd/headers"
	"github.com/markhor/libmicrohttpd/internal/bodycodec"
	"github.com/markhor/libmicrohttpd/method"
	"github.com/markhor/libmicrohttpd/pool"
	"github.com/markhor/libmicrohttpd/proto"
	"github.com/markhor/libmicrohttpd/response"
	"github.com/markhor/libmicrohttpd/status"
)

// DefaultMemoryIncrement is connection_memory_increment_b from spec
// §4.1's read-buffer growth rule.
const DefaultMemoryIncrement = 1024

// Request is one HTTP request's worth of parse state, body-framing
// state, and response cursor, reused in place across keep-alive cycles
// on the same connection (spec §3 Request, Lifecycle).
type Request struct {
	Method  method.Method
	URL     string
	Version proto.Proto

	Headers headers.List
	Footers headers.List

	State         fsm.State
	EventLoopInfo fsm.EventLoopInfo
	Keepalive     fsm.Keepalive

	pool    *pool.Pool
	readBuf *pool.Buffer

	readBufferOffset        int
	writeBufferAppendOffset int
	writeBufferSendOffset   int
	writeStaging            []byte

	last        []byte
	pendingName []byte
	colon       int

	framing            fsm.Framing
	currentChunkSize   int64
	currentChunkOffset int64
	haveChunkedUpload  bool

	responseWritePosition      int64
	continueMessageWriteOffset int

	inIdle bool

	resp            *response.Response
	continueDecided bool
	failing         bool
	responseChunked bool

	chunked *bodycodec.Chunked
}

// New allocates the read buffer from p (spec §4.1: initial size = half
// the pool's free space) and returns a Request ready to enter INIT.
func New(p *pool.Pool) (*Request, error) {
	r := &Request{pool: p}
	if err := r.initBuffers(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Request) initBuffers() error {
	initial := r.pool.Free() / 2
	if initial < 64 {
		initial = 64
	}

	buf, ok := pool.NewBuffer(r.pool, initial)
	if !ok {
		return status.ErrInternalServerError
	}

	r.readBuf = buf

	return nil
}

// Reinit resets the pool and reconstructs the Request in place for the
// next pipelined/keep-alive request on the same connection (spec §3
// Lifecycle, §4.1 FOOTERS_SENT -> INIT transition). extra carries bytes
// already read past the previous request's terminator.
func (r *Request) Reinit(extra []byte) error {
	keepKeepalive := r.Keepalive

	r.pool.Reset()
	*r = Request{pool: r.pool, Keepalive: keepKeepalive}

	if err := r.initBuffers(); err != nil {
		return err
	}

	if len(extra) > 0 {
		if !r.readBuf.GrowToFit(len(extra), DefaultMemoryIncrement) {
			return status.ErrHeaderFieldsTooLarge
		}

		copy(r.readBuf.Tail(), extra)
		r.readBuf.Advance(len(extra))
	}

	return nil
}

// ReadTail returns the free suffix of the read buffer a wire.Adapter.Recv
// should write into next, growing it first if it's already full (spec
// §4.1 read-buffer growth).
func (r *Request) ReadTail() ([]byte, error) {
	if len(r.readBuf.Tail()) == 0 {
		limit := r.phaseErrorForOverflow()
		if !r.readBuf.GrowToFit(DefaultMemoryIncrement, DefaultMemoryIncrement) {
			return nil, limit
		}
	}

	return r.readBuf.Tail(), nil
}

func (r *Request) phaseErrorForOverflow() error {
	if r.State <= fsm.HeadersReceived {
		return status.ErrHeaderFieldsTooLarge
	}

	return status.ErrPayloadTooLarge
}

// Advance records that n bytes were just written into the read buffer's
// tail by a successful Recv.
func (r *Request) Advance(n int) {
	r.readBuf.Advance(n)
}

// pending returns the unconsumed bytes of the read buffer, i.e. those
// from readBufferOffset to the buffer's current length.
func (r *Request) pending() []byte {
	return r.readBuf.Bytes()[r.readBufferOffset:]
}

func (r *Request) consume(n int) {
	r.readBufferOffset += n
}

// QueueResponse implements spec §6 queue_response: transitions the
// request toward HEADERS_SENDING and retains resp. Valid from
// HEADERS_PROCESSED onward.
func (r *Request) QueueResponse(resp *response.Response) {
	resp.Retain()
	r.resp = resp
	r.State = fsm.HeadersSending
	r.writeBufferAppendOffset = 0
	r.writeBufferSendOffset = 0
}

// EventLoop returns the event this request currently wants the daemon's
// poller to wait for.
func (r *Request) EventLoop() fsm.EventLoopInfo {
	return r.EventLoopInfo
}

// PendingResponse returns the response queued on this request, or nil if
// none has been queued yet. The connection manager uses this during
// abnormal cleanup (spec §4.6 step (b): "invoke request-termination
// callback on any pending response") to release a response that never
// reached FOOTERS_SENT on its own.
func (r *Request) PendingResponse() *response.Response {
	return r.resp
}

// TakeUpgradeExtra returns and consumes any bytes already buffered past
// where the FSM stopped driving this connection (spec §5 Upgrade: "the
// connection's socket is transferred to an upgrade-response handler").
// A pipelined client may have sent post-handshake protocol bytes in the
// same segment as its final request byte; those must reach the
// UpgradeHandler rather than be silently dropped.
func (r *Request) TakeUpgradeExtra() []byte {
	extra := append([]byte(nil), r.pending()...)
	r.consume(len(extra))

	return extra
}
