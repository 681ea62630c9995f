package daemon

import (
	"errors"
	"time"

	"github.com/markhor/libmicrohttpd/conn"
	"github.com/markhor/libmicrohttpd/fsm"
)

var errWrongThreadModel = errors.New("daemon: RunFromSelect called but ThreadModel is not ExternalEventLoop")

// dispatch hands a newly accepted connection to the goroutine (or, for
// ExternalEventLoop, to nobody — the host drives it via RunFromSelect)
// that will drive it according to Options.ThreadModel (spec §4.5).
func (m *Manager) dispatch(c *conn.Connection) {
	switch m.opts.ThreadModel {
	case ExternalEventLoop:
		// no internal goroutine; the host calls RunFromSelect.
	case SingleThread:
		m.wg.Add(1)
		go m.runPermitted(c, m.singleSem)
	case ThreadPool:
		m.wg.Add(1)
		go m.runPermitted(c, m.poolSem)
	default:
		m.wg.Add(1)
		go m.runThreadPerConnection(c)
	}
}

// runThreadPerConnection implements spec §4.5 model 4: the connection's
// own goroutine blocks directly in Recv/Send (via HandleRead's call
// into wire.Adapter.Recv, which blocks absent a deadline) for its
// entire life, the teacher's own internal/server/tcp.Server model.
func (m *Manager) runThreadPerConnection(c *conn.Connection) {
	defer m.wg.Done()

	m.driveLoop(c)
}

// runPermitted implements spec §4.5 models 2 and 3: dispatch is bounded
// to len(sem) concurrent connections at a time, but the I/O itself
// still blocks inside a per-connection goroutine — relying on the Go
// runtime's netpoller (which already multiplexes blocked-in-Read
// goroutines via the OS's native readiness mechanism) instead of
// hand-rolling select/poll/epoll, per DESIGN.md's rationale for this
// module's ThreadModel design. sem with capacity 1 gives SingleThread's
// "no concurrent dispatch" guarantee; capacity N gives ThreadPool's "N
// workers".
func (m *Manager) runPermitted(c *conn.Connection, sem chan struct{}) {
	defer m.wg.Done()

	sem <- struct{}{}
	defer func() { <-sem }()

	m.driveLoop(c)
}

// driveLoop repeatedly calls HandleRead until a fatal error, a peer
// close, or an Upgrade transition ends it, parking on the resume gate
// whenever the connection is suspended (spec §5 Suspension points).
func (m *Manager) driveLoop(c *conn.Connection) {
	for {
		err := c.HandleRead(m.handler)
		if err != nil {
			m.cleanup(c, err)
			return
		}

		m.touchTimeout(c)

		if c.Req.EventLoop() == fsm.EventUpgrade {
			m.handleUpgrade(c)
			return
		}

		if c.IOState() == conn.Suspended {
			if ch := m.resumeGate(c.ID); ch != nil {
				<-ch
			}
		}
	}
}

// RunFromSelect implements spec §6's external-event-loop primitive for
// the ExternalEventLoop threading model: one sweep over every currently
// tracked, non-suspended connection, giving each up to budget to
// produce a byte before moving to the next. The host calls this (and
// GetTimeout, to size budget/the call's own period) from its own loop
// in place of the daemon spawning one itself.
func (m *Manager) RunFromSelect(budget time.Duration) error {
	if m.opts.ThreadModel != ExternalEventLoop {
		return errWrongThreadModel
	}

	m.mu.Lock()
	var snapshot []*conn.Connection
	for e := m.normal.Front(); e != nil; e = e.Next() {
		snapshot = append(snapshot, e.Value.(*conn.Connection))
	}
	m.mu.Unlock()

	for _, c := range snapshot {
		_ = c.Wire.SetDeadline(time.Now().Add(budget))

		err := c.HandleRead(m.handler)
		if err != nil {
			m.cleanup(c, err)
			continue
		}

		m.touchTimeout(c)

		if c.Req.EventLoop() == fsm.EventUpgrade {
			m.handleUpgrade(c)
		}
	}

	m.sweepTimeouts(time.Now())

	return nil
}

// GetTimeout implements spec §6's get_timeout: the duration until the
// oldest tracked connection would hit its idle timeout, for the host
// to size its own select/poll wait with. Returns -1 if no connection
// has a timeout configured.
func (m *Manager) GetTimeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	front := m.timeoutNormal.Front()
	if front == nil {
		return -1
	}

	c := front.Value.(*conn.Connection)
	remaining := time.Duration(c.TimeoutSeconds())*time.Second - time.Since(c.LastActivity())
	if remaining < 0 {
		remaining = 0
	}

	return remaining
}
