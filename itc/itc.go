// Package itc implements the inter-thread wake channel spec §4.5/§9
// calls for: a pipe-like, level-triggered primitive any thread can use
// to unblock another thread parked in a select/poll/epoll_wait call.
// The connection manager calls Wake when a connection is resumed and on
// shutdown.
//
// On linux this rides a single eventfd, the teacher-pack's preferred
// primitive per MiraiMindz-watt/shockwave's socket-tuning code and
// libmicrohttpd's own MHD_ITC implementation
// (original_source/src/microhttpd/mhd_itc.h); everywhere else it falls
// back to a self-pipe, exactly as that header documents for non-Linux
// targets.
package itc

import "io"

// Channel is the host-agnostic ITC surface the connection manager polls
// alongside its sockets.
type Channel interface {
	// Wake causes the next (or in-progress) block on Wait/FD to return.
	// Safe to call from any goroutine, any number of times before the
	// waiter drains it — Wake is level-triggered, not edge-counted.
	Wake() error

	// FD returns the read end to add to an external select/poll/epoll
	// set (spec §6 get_fdset, for the external-event-loop threading
	// model).
	FD() uintptr

	// Drain clears a pending wake after the poller reports FD readable,
	// so the next genuine Wake is observed rather than coalesced into
	// one already handled.
	Drain()

	io.Closer
}

// New constructs the platform-appropriate Channel.
func New() (Channel, error) {
	return newChannel()
}
