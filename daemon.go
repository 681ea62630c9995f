package daemon

import (
	"fmt"
	"net"
	"sync/atomic"

	connmgr "github.com/markhor/libmicrohttpd/daemon"
	"github.com/markhor/libmicrohttpd/status"
)

// ListenerConstructor builds the net.Listener a Listener entry binds,
// letting callers substitute their own (systemd socket activation,
// a reuseport listener, a test net.Pipe-backed fake) in place of the
// plain net.Listen default.
type ListenerConstructor func(network, addr string) (net.Listener, error)

// Encryption marks whether a Listener's socket is wrapped in TLS before
// any byte reaches the connection manager.
type Encryption uint8

const (
	Plain Encryption = iota
	TLS
)

// Listener is one bound socket an App will Serve connections off.
type Listener struct {
	Port        uint16
	Constructor ListenerConstructor
	Encryption  Encryption
}

type hooks struct {
	OnStart, OnStop func()
}

// App is the host-facing entry point (spec §6): construct one with New,
// configure it with Tune/Listen/TLS/HTTPS/AutoHTTPS, then Serve. Each
// Listener gets its own connmgr.Manager, so GracefulStop/Stop tear down
// every bound socket together.
type App struct {
	host string
	port uint16

	hooks     hooks
	listeners []Listener
	opts      connmgr.Options
	handler   connmgr.RequestHandler

	errCh chan error
	mgrs  []*connmgr.Manager
}

// New returns an App bound to addr ("host:port") that will dispatch
// every request to handler.
func New(addr string, handler connmgr.RequestHandler) *App {
	host, port := splitHostPort(addr)

	return &App{
		host:    host,
		port:    port,
		handler: handler,
		opts:    connmgr.Default(),
		errCh:   make(chan error),
	}
}

// Tune replaces the default connection-manager Options (spec §4.5/§6).
func (a *App) Tune(o connmgr.Options) *App {
	a.opts = o.Fill()
	return a
}

// NotifyOnStart calls cb once every listener's goroutine has started.
// It isn't strongly guaranteed they can already accept connections.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls cb once every listener is fully shut down and no
// client is connected anymore.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Listen adds a bound socket. constructor defaults to net.Listen.
func (a *App) Listen(port uint16, enc Encryption, optionalConstructor ...ListenerConstructor) *App {
	constructor := net.Listen
	if len(optionalConstructor) > 0 && optionalConstructor[0] != nil {
		constructor = optionalConstructor[0]
	}

	a.listeners = append(a.listeners, Listener{
		Port:        port,
		Constructor: constructor,
		Encryption:  enc,
	})

	return a
}

// TLS adds a TLS-wrapped socket using constructor to produce the raw
// listener (see tlsListener/autoTLSListener in tls.go).
func (a *App) TLS(port uint16, constructor ListenerConstructor) *App {
	return a.Listen(port, TLS, constructor)
}

// HTTPS adds a TLS socket serving the given certificate/key pair.
func (a *App) HTTPS(port uint16, cert, key string) *App {
	return a.TLS(port, tlsListener(cert, key))
}

// AutoHTTPS adds a TLS socket backed by ACME (golang.org/x/crypto/acme/autocert)
// for the given domains, or a generated self-signed certificate when the
// App is bound to localhost (ACME can't issue for loopback addresses).
func (a *App) AutoHTTPS(port uint16, domains ...string) *App {
	if isLocalhost(a.host) {
		cert, key, err := generateSelfSignedCert()
		if err != nil {
			a.opts.Fill().Logger.Printf(
				"WARNING: AutoHTTPS(...): can't generate self-signed certificate: %s. Disabling TLS",
				err,
			)

			return a
		}

		return a.HTTPS(port, cert, key)
	}

	return a.TLS(port, autoTLSListener(domains...))
}

// Serve binds every configured Listener (plus the plain socket implied
// by the address New was constructed with) and blocks until Stop or
// GracefulStop is called.
func (a *App) Serve() error {
	a.Listen(a.port, Plain, net.Listen)

	mgrs := make([]*connmgr.Manager, len(a.listeners))
	lns := make([]net.Listener, len(a.listeners))

	for i, l := range a.listeners {
		sock, err := l.Constructor("tcp", net.JoinHostPort(a.host, fmt.Sprint(l.Port)))
		if err != nil {
			return err
		}

		m, err := connmgr.New(a.opts, a.handler)
		if err != nil {
			return err
		}

		mgrs[i], lns[i] = m, sock
	}

	a.mgrs = mgrs

	return a.run(mgrs, lns)
}

func (a *App) run(mgrs []*connmgr.Manager, lns []net.Listener) error {
	var failSilently atomic.Bool

	for i := range mgrs {
		go func(m *connmgr.Manager, ln net.Listener, tlsAdapter bool) {
			err := m.Serve(ln, tlsAdapter)

			if failSilently.Swap(true) {
				return
			}

			a.errCh <- err
		}(mgrs[i], lns[i], a.listeners[i].Encryption == TLS)
	}

	callIfNotNil(a.hooks.OnStart)
	err := <-a.errCh
	graceful := err == status.ErrGracefulShutdown

	for _, m := range mgrs {
		m.Shutdown(graceful)
	}

	callIfNotNil(a.hooks.OnStop)

	return err
}

// GracefulStop stops accepting new connections on every listener but
// keeps serving in-flight ones until they finish on their own.
//
// NOTE: the call isn't blocking — after it returns, the app is still
// tearing down.
func (a *App) GracefulStop() {
	a.errCh <- status.ErrGracefulShutdown
}

// Stop shuts the whole application down immediately, closing every
// in-flight connection.
//
// NOTE: the call isn't blocking — after it returns, the app is still
// tearing down.
func (a *App) Stop() {
	a.errCh <- status.ErrShutdown
}

// ActiveConnections sums ActiveConnections() across every listener's
// manager (spec §9's open question: observational only, racy by
// design — see DESIGN.md).
func (a *App) ActiveConnections() int64 {
	var total int64
	for _, m := range a.mgrs {
		total += m.ActiveConnections()
	}

	return total
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}

func splitHostPort(addr string) (string, uint16) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}

	var port uint16
	_, _ = fmt.Sscanf(portStr, "%d", &port)

	return host, port
}

func isLocalhost(host string) bool {
	if host == "" || host == "localhost" {
		return true
	}

	ip := net.ParseIP(host)

	return ip != nil && ip.IsLoopback()
}
