// Package response implements the ref-counted Response object spec §3
// and §4.4 describe: a status code, a header list, and exactly one of
// three body sources (an inline buffer, a file read with ReadAt and then
// sent, or an application pull-callback). There is no sendfile path.
//
// A Response may be queued on more than one Connection concurrently (a
// canned error page shared across requests, for instance), so its
// reference count and body-affecting fields are protected by a mutex —
// mirroring the teacher's own reference-counted body cache
// (internal/pool.ObjectPool-managed buffers in the render package) but
// applied here to the whole Response rather than just its payload.
package response

import (
	"io"
	"sync"

	"github.com/markhor/libmicrohttpd/headers"
	"github.com/markhor/libmicrohttpd/status"
)

// SourceKind tags which of the three body sources a Response carries.
type SourceKind uint8

const (
	SourceBuffer SourceKind = iota
	SourceFile
	SourceCallback
)

// ContentReader is the application pull-callback body source spec §6
// names `crc`: given the byte offset already sent, it fills buf and
// returns how many bytes it wrote, or one of the two sentinels below.
type ContentReader func(pos int64, buf []byte) (n int, err error)

// ErrEndOfStream is returned by a ContentReader to signal a clean end to
// a streamed body, as opposed to a genuine I/O error.
var ErrEndOfStream = io.EOF

// ContentReaderFree is invoked once, when the Response's body will never
// be read again (all connections it was queued on have finished with
// it), mirroring spec §6's `crfc`.
type ContentReaderFree func()

// TerminationCallback is invoked when the request this Response answered
// finishes, successfully or not (spec §6 RequestTermination).
type TerminationCallback func(reason status.Code)

// Response is the reference-counted, mutex-guarded body+header+status
// bundle the FSM drains from HEADERS_SENDING through FOOTERS_SENT.
type Response struct {
	mu sync.Mutex

	code    status.Code
	headers headers.List

	source SourceKind

	buffer []byte

	file       io.ReaderAt
	fileOffset int64
	fileSize   int64

	reader     ContentReader
	readerFree ContentReaderFree

	// totalSize is UnknownLength for a body source whose length isn't
	// known up front — the FSM checks this to decide
	// whether to emit the response chunked (spec §4.4).
	totalSize int64

	refs int32

	onTermination TerminationCallback
	upgrade       UpgradeHandler
}

// UnknownLength has the same value as fsm.UnknownLength. The two are
// kept numerically identical by convention, not by import.
const UnknownLength int64 = -1

// UpgradeHandler is handed the raw, post-response socket when a Response
// created by NewUpgrade is queued and its headers have been sent (spec
// §6 UpgradeHandler, §5 Upgrade).
type UpgradeHandler func(conn io.ReadWriteCloser, extraIn []byte)

// NewBuffer creates a Response whose body is the given in-memory bytes,
// copied by reference — callers must not mutate buf after handing it to
// NewBuffer if the Response might be queued more than once.
func NewBuffer(code status.Code, buf []byte) *Response {
	return &Response{
		code:      code,
		source:    SourceBuffer,
		buffer:    buf,
		totalSize: int64(len(buf)),
		refs:      1,
	}
}

// NewFile creates a Response whose body streams from r, sized size bytes
// from the current offset. The FSM drives r with plain ReadAt-then-send
// whatever its concrete type; an *os.File is not sent with sendfile.
func NewFile(code status.Code, r io.ReaderAt, size int64) *Response {
	return &Response{
		code:      code,
		source:    SourceFile,
		file:      r,
		fileSize:  size,
		totalSize: size,
		refs:      1,
	}
}

// NewCallback creates a Response whose body is produced on demand by
// crc. If totalSize is UnknownLength the FSM emits the body chunked when
// the request is HTTP/1.1 (spec §4.4); over HTTP/1.0 with unknown length
// the connection closes at end-of-stream instead.
func NewCallback(code status.Code, totalSize int64, crc ContentReader, crfc ContentReaderFree) *Response {
	return &Response{
		code:      code,
		source:    SourceCallback,
		reader:    crc,
		readerFree: crfc,
		totalSize: totalSize,
		refs:      1,
	}
}

// NewUpgrade creates a response that, once its status line and headers
// are sent, hands the raw connection to handler instead of driving any
// further body framing (spec §4.1 Upgrade sink state, §6
// create_response_for_upgrade).
func NewUpgrade(handler UpgradeHandler) *Response {
	return &Response{
		code:      status.SwitchingProtocols,
		source:    SourceCallback,
		totalSize: 0,
		refs:      1,
		upgrade:   handler,
	}
}

// Code returns the status code this response will be sent with.
func (r *Response) Code() status.Code {
	return r.code
}

// SetCode overrides the status code before the response is queued.
func (r *Response) SetCode(code status.Code) {
	r.mu.Lock()
	r.code = code
	r.mu.Unlock()
}

// TotalSize returns the response body length, or UnknownLength.
func (r *Response) TotalSize() int64 {
	return r.totalSize
}

// Source reports which body-source variant this Response carries.
func (r *Response) Source() SourceKind {
	return r.source
}

// IsUpgrade reports whether this Response switches protocols rather
// than carrying an ordinary body.
func (r *Response) IsUpgrade() bool {
	return r.upgrade != nil
}

// UpgradeHandler returns the handler NewUpgrade was constructed with, or
// nil for an ordinary response.
func (r *Response) UpgradeHandler() UpgradeHandler {
	return r.upgrade
}

// AddHeader appends a RESPONSE_HEADER entry (spec §6 add_response_header).
// Thread-safe: two goroutines racing to decorate a shared canned Response
// (e.g. a 404 page) before queueing it on different connections won't
// corrupt the header list.
func (r *Response) AddHeader(name, value string) {
	r.mu.Lock()
	r.headers.Add(headers.ResponseHeader, []byte(name), []byte(value))
	r.mu.Unlock()
}

// Headers returns the response header list. Callers must not mutate it
// concurrently with AddHeader; the FSM only reads it after the response
// has been queued and no further AddHeader calls are expected.
func (r *Response) Headers() *headers.List {
	return &r.headers
}

// OnTermination registers the callback invoked when the request this
// response answers finishes (spec §6 RequestTermination).
func (r *Response) OnTermination(cb TerminationCallback) {
	r.mu.Lock()
	r.onTermination = cb
	r.mu.Unlock()
}

func (r *Response) notifyTermination(reason status.Code) {
	r.mu.Lock()
	cb := r.onTermination
	r.mu.Unlock()

	if cb != nil {
		cb(reason)
	}
}

// Retain increments the reference count when this Response is queued on
// an additional connection (spec §4.4 queue()).
func (r *Response) Retain() {
	r.mu.Lock()
	r.refs++
	r.mu.Unlock()
}

// Release decrements the reference count and invokes the termination
// notification on every call; the free-callback runs only once the count
// reaches zero. It reports whether this call was the one that dropped it
// to zero.
func (r *Response) Release(reason status.Code) bool {
	r.mu.Lock()
	r.refs--
	drained := r.refs <= 0
	free := r.readerFree
	r.mu.Unlock()

	r.notifyTermination(reason)

	if drained && free != nil {
		free()
	}

	return drained
}

// ReadBufferSource reads up to len(dst) bytes starting at pos from the
// buffer body source. Returns io.EOF once pos reaches the end.
func (r *Response) ReadBufferSource(pos int64, dst []byte) (int, error) {
	if pos >= int64(len(r.buffer)) {
		return 0, io.EOF
	}

	n := copy(dst, r.buffer[pos:])

	return n, nil
}

// ReadFileSource reads up to len(dst) bytes starting at pos from the
// file body source; this is the only way the FSM reads a file body.
func (r *Response) ReadFileSource(pos int64, dst []byte) (int, error) {
	if pos >= r.fileSize {
		return 0, io.EOF
	}

	max := r.fileSize - pos
	if int64(len(dst)) > max {
		dst = dst[:max]
	}

	return r.file.ReadAt(dst, pos)
}

// ReadCallbackSource pulls the next chunk from the application callback
// body source.
func (r *Response) ReadCallbackSource(pos int64, dst []byte) (int, error) {
	if r.reader == nil {
		return 0, io.EOF
	}

	return r.reader(pos, dst)
}
