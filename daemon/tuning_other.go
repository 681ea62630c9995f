//go:build !linux

package daemon

import (
	"log"
	"net"
)

// tuneAcceptedSocket is a no-op off linux: TCP_QUICKACK has no portable
// equivalent, and other platforms' delayed-ACK behavior isn't worth a
// separate syscall path per spec's scope.
func tuneAcceptedSocket(net.Conn, *log.Logger) {}
