// Package wire implements the wire adapter spec §4.2 describes: the
// narrow recv/send surface that lets the request FSM drive a plaintext
// socket and a TLS session identically.
//
// Go's crypto/tls.Conn already satisfies net.Conn, so unlike the C
// original there is no separate function-pointer struct to hand-roll
// per transport; the REDESIGN FLAGS note "tagged variant... do not
// inherit" is honored by keeping Adapter a single concrete struct
// carrying a Kind tag rather than an Adapter interface with two
// implementations — Plain and TLS differ only in which net.Conn they
// wrap; turbo mode applies to either.
package wire

import (
	"errors"
	"io"
	"net"
	"time"
)

// Kind tags which transport an Adapter wraps, purely for observability
// (spec §4.2 treats both uniformly on the read/write path).
type Kind uint8

const (
	Plain Kind = iota
	TLS
)

func (k Kind) String() string {
	if k == TLS {
		return "tls"
	}

	return "plain"
}

// ErrWouldBlock is returned by Recv/Send when no progress could be made
// without blocking — spec §4.2's "negative with a would-block errno"
// case. The FSM re-arms for the same event and retries on the next
// poller notification.
var ErrWouldBlock = errors.New("wire: would block")

// Adapter wraps a net.Conn (plain TCP or *tls.Conn) behind the recv/send
// contract spec §4.2 specifies. All methods are safe to call only from
// the connection's owning goroutine/thread — like the C original, an
// Adapter carries no internal locking.
type Adapter struct {
	kind  Kind
	conn  net.Conn
	turbo bool
}

// New wraps conn as a plain-transport Adapter.
func New(conn net.Conn) *Adapter {
	return &Adapter{kind: Plain, conn: conn}
}

// NewTLS wraps conn (expected to be a *tls.Conn, or anything else that
// implements net.Conn over a TLS record layer) as a TLS-transport
// Adapter.
func NewTLS(conn net.Conn) *Adapter {
	return &Adapter{kind: TLS, conn: conn}
}

// Kind reports which transport this Adapter wraps.
func (a *Adapter) Kind() Kind {
	return a.kind
}

// SetTurbo toggles turbo mode: with it on, Close skips the optional
// half-close (shutdown) step, and callers are expected to attempt an
// optimistic Recv before waiting on poller readiness (spec §4.2, §9).
func (a *Adapter) SetTurbo(on bool) {
	a.turbo = on
}

// Turbo reports whether turbo mode is enabled.
func (a *Adapter) Turbo() bool {
	return a.turbo
}

// Recv reads up to len(dst) bytes. It returns (0, nil) on a clean peer
// close, matching spec §4.2's "0 = peer closed (recv)"; (n, nil) on
// partial or full progress; (0, ErrWouldBlock) when the underlying
// net.Conn would block (Go's net package models this as a deadline
// timeout on a connection put in non-blocking readiness mode by the
// caller via SetReadDeadline(pastDeadline) before calling Recv); and
// any other error as fatal.
func (a *Adapter) Recv(dst []byte) (int, error) {
	n, err := a.conn.Read(dst)
	if err != nil {
		if isTimeout(err) {
			return 0, ErrWouldBlock
		}

		if n == 0 && errors.Is(err, io.EOF) {
			return 0, nil
		}
	}

	return n, unwrapEOF(err)
}

// Send writes up to len(src) bytes, following the same return
// conventions as Recv, with 0 meaning would-block rather than peer
// close (spec §4.2).
func (a *Adapter) Send(src []byte) (int, error) {
	n, err := a.conn.Write(src)
	if err != nil && isTimeout(err) && n == 0 {
		return 0, ErrWouldBlock
	}

	return n, err
}

// Close tears down the underlying transport. In turbo mode the optional
// TCP half-close is skipped and the socket is closed outright (spec
// §4.2/§9: "turbo mode disables optional shutdown()").
func (a *Adapter) Close() error {
	if !a.turbo {
		if tc, ok := a.conn.(*net.TCPConn); ok {
			_ = tc.CloseWrite()
		}
	}

	return a.conn.Close()
}

// SetDeadline arms the read/write deadline used to implement
// non-blocking polling semantics over blocking net.Conn — the daemon's
// RunFromSelect sets it to now plus its budget before each HandleRead,
// so a connection with nothing to read yields ErrWouldBlock.
func (a *Adapter) SetDeadline(t time.Time) error {
	return a.conn.SetDeadline(t)
}

// LocalAddr and RemoteAddr expose the underlying socket's endpoints,
// used for connection-notify callbacks and access logging.
func (a *Adapter) LocalAddr() net.Addr  { return a.conn.LocalAddr() }
func (a *Adapter) RemoteAddr() net.Addr { return a.conn.RemoteAddr() }

// Raw returns the underlying net.Conn directly, for hand-off scenarios
// (spec §5 Upgrade) where the recipient wants ordinary blocking
// io.ReadWriteCloser semantics instead of the would-block-sentinel
// Recv/Send contract the FSM drives against.
func (a *Adapter) Raw() net.Conn {
	return a.conn
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func unwrapEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}

	return err
}
