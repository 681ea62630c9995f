// Package conn implements the Connection object spec §4.3 describes:
// one socket's full life, from accept to cleanup, wiring together a
// wire.Adapter, a pool.Pool, and exactly one request.Request.
//
// Grounded on the teacher's internal/server/tcp.client (the net.Conn +
// deadline + reusable-buffer client wrapper) and internal/server/http.Server
// (the read -> parse -> respond drive sequence), generalized from indigo's
// implicit one-goroutine-per-socket model to the explicit IO-state and
// timeout membership spec §3/§4.3 require, since the daemon needs to move
// connections between normal/suspended/cleanup sets regardless of which
// threading model (§4.5) is driving them.
package conn

import (
	"container/list"
	"net"
	"time"

	"github.com/markhor/libmicrohttpd/pool"
	"github.com/markhor/libmicrohttpd/request"
	"github.com/markhor/libmicrohttpd/status"
	"github.com/markhor/libmicrohttpd/wire"
)

// IOState is the DLL a Connection currently belongs to (spec §3
// Connection: "exactly one IO-state list... at every moment").
type IOState uint8

const (
	Normal IOState = iota
	Suspended
	Cleanup
)

func (s IOState) String() string {
	switch s {
	case Normal:
		return "normal"
	case Suspended:
		return "suspended"
	case Cleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// TimeoutClass distinguishes the two timeout XDLLs spec §3 names: one
// scanned automatically against connection_timeout, one for connections
// the application has opted out of automatic eviction for.
type TimeoutClass uint8

const (
	NormalTimeoutClass TimeoutClass = iota
	ManualTimeoutClass
)

// Connection owns one accepted socket for its whole lifetime. Instead of
// a hand-rolled intrusive doubly-linked list (the C original's DLL/XDLL),
// it holds the *list.Element the daemon's container/list.List inserted
// it as — the "index-based" alternative spec §9's design notes call out
// explicitly for languages with real container types. Membership is
// still O(1) to change: the daemon moves the element between lists
// without touching Connection's own fields other than the two pointers
// and the state tags below.
type Connection struct {
	ID uint64

	Wire *wire.Adapter
	Pool *pool.Pool
	Req  *request.Request

	remote net.Addr

	lastActivity   time.Time
	timeoutSeconds int
	timeoutClass   TimeoutClass

	ioState      IOState
	readClosed   bool
	threadJoined bool

	ioElem      *list.Element
	timeoutElem *list.Element
}

// New wraps netConn behind a wire.Adapter (TLS if tls is true), gives it
// its own memory pool of poolSize bytes, and constructs the first
// in-place Request — mirroring spec §4.3's create() plus the "pool
// created lazily on first read" note from §3's Lifecycle, simplified to
// eager creation since Go's allocator makes deferring it pointless.
func New(id uint64, netConn net.Conn, tlsAdapter bool, poolSize, timeoutSeconds int) (*Connection, error) {
	var w *wire.Adapter
	if tlsAdapter {
		w = wire.NewTLS(netConn)
	} else {
		w = wire.New(netConn)
	}

	p := pool.New(poolSize)

	req, err := request.New(p)
	if err != nil {
		return nil, err
	}

	return &Connection{
		ID:             id,
		Wire:           w,
		Pool:           p,
		Req:            req,
		remote:         netConn.RemoteAddr(),
		lastActivity:   time.Now(),
		timeoutSeconds: timeoutSeconds,
	}, nil
}

// Remote returns the peer address captured at accept time.
func (c *Connection) Remote() net.Addr {
	return c.remote
}

// LastActivity returns the timestamp of the most recent successful
// Recv/Send, the value the timeout XDLL is ordered on.
func (c *Connection) LastActivity() time.Time {
	return c.lastActivity
}

func (c *Connection) touch() {
	c.lastActivity = time.Now()
}

// TimeoutSeconds returns the configured idle timeout, or 0 for none.
func (c *Connection) TimeoutSeconds() int {
	return c.timeoutSeconds
}

// SetTimeoutSeconds lets the application override the per-connection
// timeout after creation (spec §6 MHD_set_connection_option analogue).
func (c *Connection) SetTimeoutSeconds(n int) {
	c.timeoutSeconds = n
}

// Expired reports whether now - LastActivity has reached the configured
// timeout (spec §4.3 Timeouts). A zero timeout never expires.
func (c *Connection) Expired(now time.Time) bool {
	if c.timeoutSeconds <= 0 {
		return false
	}

	return now.Sub(c.lastActivity) >= time.Duration(c.timeoutSeconds)*time.Second
}

// IOState reports which DLL this connection currently belongs to.
func (c *Connection) IOState() IOState {
	return c.ioState
}

// SetIOState is called by the daemon immediately after moving the
// connection's ioElem between lists, keeping the tag and the actual
// membership consistent.
func (c *Connection) SetIOState(s IOState) {
	c.ioState = s
}

// IOElement/SetIOElement let the daemon store and retrieve the
// container/list.Element this connection was inserted as, so it can be
// removed or moved in O(1) without a linear search.
func (c *Connection) IOElement() *list.Element      { return c.ioElem }
func (c *Connection) SetIOElement(e *list.Element)  { c.ioElem = e }
func (c *Connection) TimeoutElement() *list.Element { return c.timeoutElem }
func (c *Connection) SetTimeoutElement(e *list.Element) {
	c.timeoutElem = e
}

// TimeoutClass/SetTimeoutClass toggle which timeout XDLL this connection
// belongs to (spec §3: "normal-timeout or manual-timeout").
func (c *Connection) TimeoutClass() TimeoutClass { return c.timeoutClass }
func (c *Connection) SetTimeoutClass(class TimeoutClass) {
	c.timeoutClass = class
}

// ReadClosed reports whether the peer has sent FIN (a zero-byte Recv
// was observed); HandleRead returns ErrCloseConnection when it sets it.
func (c *Connection) ReadClosed() bool { return c.readClosed }

// MarkThreadJoined records that the per-connection goroutine (thread-
// per-connection model) has returned, satisfying the ordering spec §4.6
// requires before the struct is freed.
func (c *Connection) MarkThreadJoined() { c.threadJoined = true }
func (c *Connection) ThreadJoined() bool { return c.threadJoined }

// HandleRead implements spec §4.3 handle_read(): recv into the read
// buffer's tail, advance the cursor, mark read_closed on a clean peer
// close, then drive the FSM to fixpoint. A would-block Recv is not an
// error — the caller (daemon) simply re-arms EventRead.
func (c *Connection) HandleRead(handler request.Handler) error {
	tail, err := c.Req.ReadTail()
	if err != nil {
		return err
	}

	n, err := c.Wire.Recv(tail)
	if err != nil {
		if err == wire.ErrWouldBlock {
			return nil
		}

		return err
	}

	if n == 0 {
		c.readClosed = true

		return status.ErrCloseConnection
	}

	c.Req.Advance(n)
	c.touch()

	return c.Req.Idle(c.Wire, handler)
}

// HandleWrite implements spec §4.3 handle_write(): the FSM's own send
// path (request/send.go) already tracks write_buffer_send_offset and
// retries from there, so re-entering Idle is sufficient — Idle's
// in_idle guard makes this safe to call from both a read-ready and a
// write-ready event without double-driving the state machine.
func (c *Connection) HandleWrite(handler request.Handler) error {
	err := c.Req.Idle(c.Wire, handler)
	if err == nil {
		c.touch()
	}

	return err
}

// HandleIdle implements spec §4.3 handle_idle(): drive the FSM without
// having performed I/O first. The daemon's dispatch loops call
// HandleRead, not this.
func (c *Connection) HandleIdle(handler request.Handler) error {
	return c.Req.Idle(c.Wire, handler)
}

// Suspend and Resume flip the logical suspension flag spec §4.3
// suspend()/resume() describe; the daemon pairs each call with moving
// ioElem between its normal and suspended container/list.List instances
// and, for Resume, re-arming EventRead so the connection is dispatched
// before the next poll return (spec §5 Suspension points).
func (c *Connection) Suspend() {
	c.ioState = Suspended
}

func (c *Connection) Resume() {
	c.ioState = Normal
}

// Close marks the connection's socket invalid. The daemon is
// responsible for the rest of spec §4.6's cleanup sequence (notify
// callbacks, ref-count release, pool release, DLL unlink); Close here
// only performs the transport-level teardown a Connection itself owns.
func (c *Connection) Close() error {
	c.ioState = Cleanup

	return c.Wire.Close()
}
