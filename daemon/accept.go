package daemon

import (
	"net"
	"time"

	"github.com/markhor/libmicrohttpd/conn"
	"github.com/markhor/libmicrohttpd/status"
)

// Serve runs the accept loop against ln until Shutdown is called,
// dispatching each accepted connection per Options.ThreadModel (spec
// §4.5 Accept loop). tlsAdapter marks every connection off this
// listener as TLS-wrapped (ln is expected to already be a *tls.Listener
// in that case — see tls.go).
func (m *Manager) Serve(ln net.Listener, tlsAdapter bool) error {
	m.mu.Lock()
	m.ln = ln
	m.mu.Unlock()

	backoff := time.Millisecond

	for {
		netConn, err := ln.Accept()
		if err != nil {
			if m.quiesce.Load() {
				if m.graceful.Load() {
					return status.ErrGracefulShutdown
				}

				return status.ErrShutdown
			}

			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				m.logger().Printf("daemon: accept timeout, retrying: %s", err)
				time.Sleep(backoff)
				backoff = nextBackoff(backoff)

				continue
			}

			return err
		}

		backoff = time.Millisecond

		if !m.admit(netConn) {
			_ = netConn.Close()
			continue
		}

		tuneAcceptedSocket(netConn, m.logger())

		id := m.nextID.Add(1)

		timeoutSeconds := int((m.opts.ConnectionTimeout + time.Second - 1) / time.Second)

		c, err := conn.New(id, netConn, tlsAdapter, m.opts.PoolSize, timeoutSeconds)
		if err != nil {
			m.logger().Printf("daemon: conn %d (%s): %s", id, traceID(), err)
			_ = netConn.Close()

			continue
		}

		m.trackNew(c)

		if m.opts.NotifyConnection != nil {
			m.opts.NotifyConnection(c.ID, c.Remote(), true)
		}

		m.dispatch(c)
	}
}

// admit enforces the global and per-IP connection limits and consults
// the application's AcceptPolicy (spec §4.5: "refuse if
// global_connection_limit or ip_connection_limit... reached").
func (m *Manager) admit(netConn net.Conn) bool {
	if m.opts.AcceptPolicy != nil && !m.opts.AcceptPolicy(netConn.RemoteAddr()) {
		return false
	}

	if m.opts.GlobalConnectionLimit > 0 && m.active.Load() >= int64(m.opts.GlobalConnectionLimit) {
		return false
	}

	ip := hostOf(netConn.RemoteAddr())
	if m.opts.IPConnectionLimit <= 0 || ip == "" {
		return true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ipCounts[ip] >= m.opts.IPConnectionLimit {
		return false
	}

	m.ipCounts[ip]++

	return true
}

func nextBackoff(cur time.Duration) time.Duration {
	const max = 500 * time.Millisecond

	next := cur * 2
	if next > max {
		return max
	}

	return next
}
