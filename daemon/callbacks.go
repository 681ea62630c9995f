package daemon

import (
	"net"

	"github.com/markhor/libmicrohttpd/request"
	"github.com/markhor/libmicrohttpd/response"
)

// RequestHandler is the host-supplied dispatch callback (spec §6
// RequestHandler). Reused as-is from request.Handler — the Manager
// never needs a shape of its own for it.
type RequestHandler = request.Handler

// UpgradeHandler is handed the raw socket once an upgrade response's
// headers have been flushed (spec §6 UpgradeHandler). Reused from
// response.UpgradeHandler.
type UpgradeHandler = response.UpgradeHandler

// ContentReader/ContentReaderFree are the pull-callback body source
// pair spec §6 names crc/crfc. Reused from response.
type (
	ContentReader     = response.ContentReader
	ContentReaderFree = response.ContentReaderFree
)

// RequestTermination is invoked when a request's response finishes,
// successfully or not (spec §6). Reused from response.TerminationCallback.
type RequestTermination = response.TerminationCallback

// AcceptPolicy decides whether a newly accepted connection from remote
// should be kept or refused outright (spec §4.5 accept-policy
// callback), evaluated before any byte is read from it.
type AcceptPolicy func(remote net.Addr) bool

// NotifyConnection is invoked once when a connection is accepted and
// once when it's cleaned up (spec §4.6 step (a): "invoke
// connection-notify callback"). connected is true on accept, false on
// teardown.
type NotifyConnection func(id uint64, remote net.Addr, connected bool)

// UriLog is the shape of an access-log hook taking a connection ID and a
// request's method and URL, mirroring the teacher's optional access-log hook. Options
// carries one, but the Manager never calls it.
type UriLog func(id uint64, method, url string)
