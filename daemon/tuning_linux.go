//go:build linux

package daemon

import (
	"log"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// tuneAcceptedSocket sets TCP_QUICKACK on freshly accepted plain TCP
// sockets, following MiraiMindz-watt/shockwave's socket-tuning
// approach (a parallel syscall-based implementation of the same
// option) generalized onto the real golang.org/x/sys/unix API. Quick
// ACKs reduce the extra RTT a delayed-ACK peer would otherwise add
// before the first request byte arrives — worth the one syscall for a
// server expecting a request immediately after accept.
func tuneAcceptedSocket(netConn net.Conn, logger *log.Logger) {
	tc, ok := netConn.(*net.TCPConn)
	if !ok {
		return
	}

	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}

	err = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, unix.TCP_QUICKACK, 1)
	})
	if err != nil {
		logger.Printf("daemon: TCP_QUICKACK tuning failed: %s", err)
	}
}
