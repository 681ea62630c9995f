// Package daemon is an embeddable HTTP/1.0 and HTTP/1.1 server library
// modeled on the connection-level design of GNU libmicrohttpd: callers
// construct an App, hand it a RequestHandler, and either let it drive
// its own accept loop under one of four threading models or integrate
// it into a host's own event loop via a Manager's RunFromSelect.
//
// A request handler receives a parsed request and the request body
// incrementally, and answers by constructing a Response from a buffer,
// a file, a pull-callback, or an upgrade handler for a protocol switch.
// Everything below the host-facing surface — the request state
// machine, per-connection memory pool, wire adapter, and connection
// manager — lives in this module's subpackages.
package daemon
