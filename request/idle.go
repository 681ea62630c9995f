package request

import (
	"fmt"

	"github.com/markhor/libmicrohttpd/fsm"
	"github.com/markhor/libmicrohttpd/headers"
	"github.com/markhor/libmicrohttpd/internal/bodycodec"
	"github.com/markhor/libmicrohttpd/method"
	"github.com/markhor/libmicrohttpd/proto"
	"github.com/markhor/libmicrohttpd/response"
	"github.com/markhor/libmicrohttpd/status"
	"github.com/markhor/libmicrohttpd/wire"
)

// Handler is the host-supplied request-dispatch callback (spec §6
// RequestHandler, simplified to Go's natural shape: no separate
// upload_data/con_cls threading, since a closure already captures
// per-request state idiomatically). From HEADERS_PROCESSED it's invoked
// with each batch of body bytes as it arrives; bodyDone is true on the
// call that carries the end of the body, so a request without a body
// gets a single call with an empty body and bodyDone true. A non-nil
// return value is queued as the response and ends body delivery.
type Handler func(req *Request, body []byte, bodyDone bool) *response.Response

// Idle runs the state machine to fixpoint: as many transitions as the
// currently available data and write-buffer space permit, exactly the
// invariant spec §4.1 describes for MHD_connection_handle_idle. It
// returns once the current state's exit condition is unmet, guarded
// against re-entrancy by inIdle exactly as libmicrohttpd's
// connection->in_idle flag guards the original.
func (r *Request) Idle(w *wire.Adapter, handler Handler) error {
	if r.inIdle {
		return nil
	}

	r.inIdle = true
	defer func() { r.inIdle = false }()

	for {
		progressed, err := r.step(w, handler)
		if err != nil {
			// A protocol/resource error while already trying to deliver
			// the minimal error response means the connection itself is
			// broken (e.g. the write that would carry it failed) — give
			// up rather than loop without ever making progress again.
			if r.failing {
				return err
			}

			r.failing = true
			r.fail(err)

			continue
		}

		if !progressed {
			break
		}

		if r.State.IsTerminal() {
			break
		}
	}

	r.publishEventLoopInfo()

	if r.State == fsm.Closed {
		return status.ErrCloseConnection
	}

	return nil
}

func (r *Request) step(w *wire.Adapter, handler Handler) (progressed bool, err error) {
	switch r.State {
	case fsm.Init:
		return r.ParseRequestLine()

	case fsm.URLReceived, fsm.HeaderPartReceived:
		return r.ParseHeaders()

	case fsm.HeadersReceived:
		return r.onHeadersReceived()

	case fsm.HeadersProcessed:
		return r.onHeadersProcessed(handler)

	case fsm.ContinueSending:
		return r.sendContinue(w)

	case fsm.ContinueSent:
		r.State = fsm.HeadersReceived
		return true, nil

	case fsm.BodyReceived:
		return r.onBodyReceived(handler)

	case fsm.FooterPartReceived, fsm.FootersReceived:
		r.State = fsm.BodyReceived
		return true, nil

	case fsm.HeadersSending:
		return r.serializeHeaders(w)

	case fsm.HeadersSent:
		return r.onHeadersSent()

	case fsm.NormalBodyReady, fsm.NormalBodyUnready:
		return r.sendNormalBody(w)

	case fsm.ChunkedBodyReady, fsm.ChunkedBodyUnready:
		return r.sendChunkedBody(w)

	case fsm.BodySent:
		if r.responseChunked {
			r.State = fsm.FootersSending
		} else {
			r.State = fsm.FootersSent
		}

		return true, nil

	case fsm.FootersSending:
		return r.sendTrailer(w)

	case fsm.FootersSent:
		return r.onFootersSent()

	case fsm.Closed, fsm.InCleanup, fsm.Upgrade:
		return false, nil

	default:
		return false, fmt.Errorf("request: unhandled state %s", r.State)
	}
}

func (r *Request) onHeadersReceived() (bool, error) {
	framing, err := fsm.DecideFraming(&r.Headers, method.HasRequestBody(r.Method))
	if err != nil {
		return false, err
	}

	r.framing = framing
	r.haveChunkedUpload = framing.Chunked

	reqConn, _ := r.Headers.GetLast(headers.Header, "Connection")
	r.Keepalive = fsm.DecideKeepalive(r.Keepalive, r.Version, reqConn, "")

	r.State = fsm.HeadersProcessed

	return true, nil
}

func (r *Request) onHeadersProcessed(handler Handler) (bool, error) {
	if r.resp != nil {
		// application already queued a response synchronously (e.g. an
		// early rejection); skip straight past 100-continue and any
		// remaining upload — the connection will close or resync on the
		// next request instead of draining an unread body.
		r.Keepalive = fsm.MustClose
		return true, nil
	}

	if !r.continueDecided {
		r.continueDecided = true

		if expect, ok := r.Headers.GetLast(headers.Header, "Expect"); ok {
			if !equalFoldExpect(expect) {
				return false, status.ErrExpectationFailed
			}

			if r.Version == proto.HTTP11 {
				r.State = fsm.ContinueSending

				return true, nil
			}
		}
	}

	return r.drainUpload(handler)
}

// drainUpload feeds the handler every upload chunk already buffered,
// consuming it from the read buffer, and transitions to BODY_RECEIVED
// once remaining_upload_size (or the chunked terminator) is reached.
// Returning false with a nil error means "need more bytes off the
// wire" — the caller falls back to the poll loop, exactly the
// HEADERS_PROCESSED "remain" exit condition spec §4.1 describes.
func (r *Request) drainUpload(handler Handler) (bool, error) {
	if r.framing.Chunked {
		return r.drainChunkedUpload(handler)
	}

	return r.drainIdentityUpload(handler)
}

func (r *Request) drainIdentityUpload(handler Handler) (bool, error) {
	data := r.pending()

	n := int64(len(data))
	if n > r.framing.RemainingSize {
		n = r.framing.RemainingSize
	}

	chunk := data[:n]
	r.consume(int(n))
	r.framing.RemainingSize -= n

	done := r.framing.RemainingSize == 0

	if n > 0 || done {
		resp := handler(r, chunk, done)
		if resp != nil {
			r.QueueResponse(resp)
			return true, nil
		}
	}

	if !done {
		return false, nil
	}

	r.State = fsm.BodyReceived

	return true, nil
}

func (r *Request) drainChunkedUpload(handler Handler) (bool, error) {
	if r.chunked == nil {
		r.chunked = bodycodec.NewChunked(&r.Footers)
	}

	data := r.pending()
	if len(data) == 0 {
		return false, nil
	}

	body, extra, done, err := r.chunked.Feed(data)
	if err != nil {
		return false, err
	}

	r.consume(len(data) - len(extra))

	if len(body) > 0 || done {
		resp := handler(r, body, done)
		if resp != nil {
			r.QueueResponse(resp)
			return true, nil
		}
	}

	if !done {
		return len(body) > 0, nil
	}

	r.State = fsm.BodyReceived

	return true, nil
}

func equalFoldExpect(value string) bool {
	return len(value) == len("100-continue") && asciiEqualFold(value, "100-continue")
}

func asciiEqualFold(a, b string) bool {
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

func (r *Request) sendContinue(w *wire.Adapter) (bool, error) {
	const msg = "HTTP/1.1 100 Continue\r\n\r\n"

	n, err := w.Send([]byte(msg[r.continueMessageWriteOffset:]))
	if err != nil {
		if err == wire.ErrWouldBlock {
			return false, nil
		}

		return false, err
	}

	r.continueMessageWriteOffset += n
	if r.continueMessageWriteOffset >= len(msg) {
		r.State = fsm.ContinueSent
	}

	return true, nil
}

// onBodyReceived is reached once the upload is fully drained but the
// application hasn't queued a response yet (it saw done=true from
// drainUpload and chose to respond asynchronously, e.g. after I/O of
// its own). There's nothing to advance here until QueueResponse is
// called from outside idle() — BLOCK is published for this request
// until then (spec §4.1 HEADERS_PROCESSED "if it suspended... remain").
func (r *Request) onBodyReceived(Handler) (bool, error) {
	return false, nil
}

func (r *Request) onHeadersSent() (bool, error) {
	if r.resp.IsUpgrade() {
		r.State = fsm.Upgrade
		return true, nil
	}

	if !method.HasResponseBody(r.Method) {
		r.State = fsm.BodySent
		return true, nil
	}

	r.responseChunked = r.resp.TotalSize() == response.UnknownLength && r.Version == proto.HTTP11

	if r.responseChunked {
		r.State = fsm.ChunkedBodyReady
	} else {
		r.State = fsm.NormalBodyReady
	}

	return true, nil
}

func (r *Request) onFootersSent() (bool, error) {
	if r.resp != nil {
		r.resp.Release(r.resp.Code())
		r.resp = nil
	}

	if r.Keepalive == fsm.MustClose {
		r.State = fsm.Closed
		return true, nil
	}

	extra := append([]byte(nil), r.pending()...)
	if err := r.Reinit(extra); err != nil {
		return false, err
	}

	r.State = fsm.Init

	return true, nil
}

func (r *Request) fail(err error) {
	herr, ok := err.(status.HTTPError)
	code := status.InternalServerError
	if ok {
		code = herr.Code
	}

	if r.resp == nil {
		r.QueueResponse(response.NewBuffer(code, []byte(status.Text(code))))
	}

	r.Keepalive = fsm.MustClose
}

func (r *Request) publishEventLoopInfo() {
	switch r.State {
	case fsm.Closed, fsm.InCleanup:
		r.EventLoopInfo = fsm.EventCleanup
	case fsm.Upgrade:
		r.EventLoopInfo = fsm.EventUpgrade
	case fsm.HeadersSending, fsm.NormalBodyReady, fsm.ChunkedBodyReady,
		fsm.FootersSending, fsm.ContinueSending:
		r.EventLoopInfo = fsm.EventWrite
	case fsm.NormalBodyUnready, fsm.ChunkedBodyUnready, fsm.BodyReceived:
		r.EventLoopInfo = fsm.EventBlock
	default:
		r.EventLoopInfo = fsm.EventRead
	}
}
