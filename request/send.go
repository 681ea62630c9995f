package request

import (
	"strconv"

	"github.com/markhor/libmicrohttpd/fsm"
	"github.com/markhor/libmicrohttpd/headers"
	"github.com/markhor/libmicrohttpd/proto"
	"github.com/markhor/libmicrohttpd/response"
	"github.com/markhor/libmicrohttpd/status"
	"github.com/markhor/libmicrohttpd/wire"
)

// serializeHeaders renders the status line and header block into
// writeStaging once, then drains it (spec §4.1 HEADERS_SENDING /
// HEADERS_SENT). Re-entered on partial writes via
// writeBufferSendOffset.
func (r *Request) serializeHeaders(w *wire.Adapter) (bool, error) {
	if r.writeStaging == nil {
		r.renderStatusLineAndHeaders()
	}

	return r.drainWriteBuffer(w, fsm.HeadersSent)
}

func (r *Request) renderStatusLineAndHeaders() {
	buf := make([]byte, 0, 256)

	code := r.resp.Code()
	buf = append(buf, r.Version.String()...)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(code), 10)
	buf = append(buf, ' ')
	buf = append(buf, string(status.Text(code))...)
	buf = append(buf, "\r\n"...)

	chunkedOut := r.resp.TotalSize() == response.UnknownLength && r.Version == proto.HTTP11
	if chunkedOut {
		buf = append(buf, "Transfer-Encoding: chunked\r\n"...)
	} else if r.resp.TotalSize() >= 0 {
		buf = append(buf, "Content-Length: "...)
		buf = strconv.AppendInt(buf, r.resp.TotalSize(), 10)
		buf = append(buf, "\r\n"...)
	}

	if r.Keepalive == fsm.MustClose {
		buf = append(buf, "Connection: close\r\n"...)
	} else {
		buf = append(buf, "Connection: keep-alive\r\n"...)
	}

	r.resp.Headers().Each(headers.ResponseHeader, func(name, value []byte) bool {
		buf = append(buf, name...)
		buf = append(buf, ':', ' ')
		buf = append(buf, value...)
		buf = append(buf, "\r\n"...)

		return true
	})

	buf = append(buf, "\r\n"...)

	r.writeStaging = buf
}

// drainWriteBuffer sends writeStaging[writeBufferSendOffset:], tracking
// partial writes, and transitions to next once fully flushed.
func (r *Request) drainWriteBuffer(w *wire.Adapter, next fsm.State) (bool, error) {
	for r.writeBufferSendOffset < len(r.writeStaging) {
		n, err := w.Send(r.writeStaging[r.writeBufferSendOffset:])
		if err != nil {
			if err == wire.ErrWouldBlock {
				return false, nil
			}

			return false, err
		}

		if n == 0 {
			return false, nil
		}

		r.writeBufferSendOffset += n
	}

	r.writeStaging = nil
	r.writeBufferSendOffset = 0
	r.State = next

	return true, nil
}

func (r *Request) sendNormalBody(w *wire.Adapter) (bool, error) {
	return sendBody(r, w, false)
}

func (r *Request) sendChunkedBody(w *wire.Adapter) (bool, error) {
	return sendBody(r, w, true)
}

func sendBody(r *Request, w *wire.Adapter, chunked bool) (bool, error) {
	buf := make([]byte, 4096)

	n, err := r.readResponseBody(buf)
	if err != nil && err != response.ErrEndOfStream {
		return false, err
	}

	done := err == response.ErrEndOfStream

	var out []byte
	if chunked {
		out = renderChunk(buf[:n], done)
	} else {
		out = buf[:n]
	}

	if len(out) > 0 {
		sent, serr := w.Send(out)
		if serr != nil {
			if serr == wire.ErrWouldBlock {
				setUnready(r, chunked)
				return false, nil
			}

			return false, serr
		}

		if sent < len(out) {
			if !chunked {
				r.responseWritePosition += int64(sent)
			}

			setUnready(r, chunked)
			return false, nil
		}
	}

	r.responseWritePosition += int64(n)

	if done {
		r.State = fsm.BodySent
	}

	return true, nil
}

func setUnready(r *Request, chunked bool) {
	if chunked {
		r.State = fsm.ChunkedBodyUnready
	} else {
		r.State = fsm.NormalBodyUnready
	}
}

func (r *Request) readResponseBody(dst []byte) (int, error) {
	switch r.resp.Source() {
	case response.SourceBuffer:
		return r.resp.ReadBufferSource(r.responseWritePosition, dst)
	case response.SourceFile:
		return r.resp.ReadFileSource(r.responseWritePosition, dst)
	default:
		return r.resp.ReadCallbackSource(r.responseWritePosition, dst)
	}
}

func renderChunk(data []byte, last bool) []byte {
	out := make([]byte, 0, len(data)+16)

	if len(data) > 0 {
		out = strconv.AppendInt(out, int64(len(data)), 16)
		out = append(out, "\r\n"...)
		out = append(out, data...)
		out = append(out, "\r\n"...)
	}

	if last {
		out = append(out, "0\r\n"...)
	}

	return out
}

func (r *Request) sendTrailer(w *wire.Adapter) (bool, error) {
	var out []byte
	r.Footers.Each(headers.Footer, func(name, value []byte) bool {
		out = append(out, name...)
		out = append(out, ':', ' ')
		out = append(out, value...)
		out = append(out, "\r\n"...)

		return true
	})

	out = append(out, "\r\n"...)

	if len(out) > 0 {
		_, err := w.Send(out)
		if err != nil {
			if err == wire.ErrWouldBlock {
				return false, nil
			}

			return false, err
		}
	}

	r.State = fsm.FootersSent

	return true, nil
}
