package daemon

import (
	"log"
	"time"
)

// ThreadModel selects one of the four threading/polling models spec §4.5
// names. Go's runtime netpoller already multiplexes every goroutine
// blocked in a net.Conn.Read/Write using epoll (linux), kqueue (bsd/
// darwin) or IOCP (windows) under the hood, so unlike the C original
// there is no separate select/poll/epoll syscall selector to pick among
// within a model — "single thread" and "thread pool" are expressed here
// as a concurrency bound over the same goroutine-per-connection I/O
// path, not as distinct IO-multiplexing implementations. See DESIGN.md
// for the reasoning.
type ThreadModel uint8

const (
	// ExternalEventLoop hands control to the host: the daemon never
	// drives sockets itself. The host calls Manager.RunFromSelect
	// (spec §6 run_from_select) on its own schedule.
	ExternalEventLoop ThreadModel = iota
	// SingleThread serializes every connection's HandleRead/HandleWrite/
	// HandleIdle behind one concurrency permit, matching the "owned
	// loop" single-thread model's no-concurrent-dispatch guarantee.
	SingleThread
	// ThreadPool bounds dispatch concurrency to Options.WorkerCount
	// permits, matching spec's "N worker threads" model without
	// hand-rolling per-worker epoll instances the Go runtime already
	// provides transparently.
	ThreadPool
	// ThreadPerConnection gives each connection its own goroutine
	// blocking directly in Recv/Send, the teacher's own
	// internal/server/tcp.Server model.
	ThreadPerConnection
)

func (m ThreadModel) String() string {
	switch m {
	case ExternalEventLoop:
		return "external"
	case SingleThread:
		return "single-thread"
	case ThreadPool:
		return "thread-pool"
	case ThreadPerConnection:
		return "thread-per-connection"
	default:
		return "unknown"
	}
}

// Options configures a Manager, following the teacher's settings/config
// split (settings.Setting[T] soft/hard pairs collapsed here into plain
// fields plus a Fill pass, since this module has no per-field hard-max
// override requirement beyond the pool size itself).
type Options struct {
	// PoolSize is the per-connection memory pool size (spec §3, default
	// 32 KiB).
	PoolSize int
	// MemoryIncrement is connection_memory_increment_b (spec §4.1,
	// default 1024). It is not passed on to connections: read buffers
	// always grow by request.DefaultMemoryIncrement.
	MemoryIncrement int
	// ConnectionTimeout is the idle timeout applied to newly accepted
	// connections (spec §4.3), rounded up to whole seconds. Zero means no
	// timeout.
	ConnectionTimeout time.Duration
	// TimeoutSweepInterval is how often the timeout XDLLs are scanned.
	TimeoutSweepInterval time.Duration

	ThreadModel ThreadModel
	// WorkerCount bounds ThreadPool concurrency; ignored otherwise.
	WorkerCount int

	// GlobalConnectionLimit caps total concurrently accepted
	// connections; 0 means unlimited.
	GlobalConnectionLimit int
	// IPConnectionLimit caps concurrent connections per remote IP; 0
	// means unlimited.
	IPConnectionLimit int

	AcceptPolicy     AcceptPolicy
	NotifyConnection NotifyConnection
	UriLog           UriLog

	// Logger receives misconfiguration warnings, accept-loop backoff
	// notices, and connection setup failures, the role log.Default() plays
	// in the teacher's indi.go/https.go. Defaults to log.Default().
	Logger *log.Logger
}

// Default returns the zero-configuration Options: a 32 KiB pool, a
// 1 KiB growth increment, no timeout, and the thread-per-connection
// model — the teacher's own default shape.
func Default() Options {
	return Options{
		PoolSize:             32 * 1024,
		MemoryIncrement:      1024,
		TimeoutSweepInterval: time.Second,
		ThreadModel:          ThreadPerConnection,
		WorkerCount:          8,
		Logger:               log.Default(),
	}
}

// Fill mirrors the teacher's config.Fill: any zero-valued field of o is
// replaced with Default()'s value, so a caller can specify only the
// fields they care about.
func (o Options) Fill() Options {
	d := Default()

	if o.PoolSize <= 0 {
		o.PoolSize = d.PoolSize
	}

	if o.MemoryIncrement <= 0 {
		o.MemoryIncrement = d.MemoryIncrement
	}

	if o.TimeoutSweepInterval <= 0 {
		o.TimeoutSweepInterval = d.TimeoutSweepInterval
	}

	if o.WorkerCount <= 0 {
		o.WorkerCount = d.WorkerCount
	}

	if o.Logger == nil {
		o.Logger = d.Logger
	}

	return o
}
