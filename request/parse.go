package request

import (
	"bytes"

	"github.com/markhor/libmicrohttpd/fsm"
	"github.com/markhor/libmicrohttpd/headers"
	"github.com/markhor/libmicrohttpd/method"
	"github.com/markhor/libmicrohttpd/proto"
	"github.com/markhor/libmicrohttpd/status"
	"golang.org/x/net/http/httpguts"
)

// ParseRequestLine consumes "METHOD SP URL SP HTTP/x.y CRLF" off the
// pending read-buffer bytes (spec §4.1 INIT). Returns ok=false with a
// nil error when there isn't a full line yet — the caller keeps reading
// and calls again.
func (r *Request) ParseRequestLine() (ok bool, err error) {
	data := r.pending()

	lf := bytes.IndexByte(data, '\n')
	if lf == -1 {
		return false, nil
	}

	line := trimCR(data[:lf])
	r.consume(lf + 1)

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 == -1 {
		return false, status.ErrBadRequest
	}

	sp2 := bytes.LastIndexByte(line, ' ')
	if sp2 == sp1 {
		return false, status.ErrBadRequest
	}

	methodTok := line[:sp1]
	urlTok := line[sp1+1 : sp2]
	versionTok := line[sp2+1:]

	if len(urlTok) == 0 {
		return false, status.ErrBadRequest
	}

	if len(line) > maxRequestLine {
		return false, status.ErrURITooLong
	}

	r.Method = method.Parse(string(methodTok))
	if r.Method == method.Unknown {
		return false, status.ErrMethodNotImplemented
	}

	r.Version = proto.FromBytes(versionTok)
	if r.Version == proto.Unknown {
		return false, status.ErrUnsupportedProtocol
	}

	r.URL = string(urlTok)
	r.State = fsm.URLReceived

	return true, nil
}

const maxRequestLine = 8192

// ParseHeaders consumes header lines (and their obsolete-fold
// continuations) up to and including the terminating blank line,
// appending HEADER entries to r.Headers (spec §4.1
// URL_RECEIVED/HEADER_PART_RECEIVED/HEADERS_RECEIVED).
func (r *Request) ParseHeaders() (done bool, err error) {
	for {
		data := r.pending()

		lf := bytes.IndexByte(data, '\n')
		if lf == -1 {
			r.State = fsm.HeaderPartReceived
			return false, nil
		}

		line := trimCR(data[:lf])

		if len(line) == 0 {
			r.consume(lf + 1)
			r.flushPendingHeader()
			r.State = fsm.HeadersReceived

			return true, nil
		}

		if isFoldedContinuation(line) && r.last != nil {
			r.consume(lf + 1)
			r.last = append(r.last, ' ')
			r.last = append(r.last, bytes.TrimLeft(line, " \t")...)

			continue
		}

		r.flushPendingHeader()

		colon := bytes.IndexByte(line, ':')
		if colon == -1 {
			return false, status.ErrBadRequest
		}

		name := bytes.TrimSpace(line[:colon])
		value := bytes.TrimSpace(line[colon+1:])

		if len(name) == 0 || !httpguts.ValidHeaderFieldName(string(name)) {
			return false, status.ErrBadRequest
		}

		if !httpguts.ValidHeaderFieldValue(string(value)) {
			return false, status.ErrBadRequest
		}

		r.consume(lf + 1)
		r.colon = colon
		r.last = append([]byte(nil), value...)
		r.pendingName = append([]byte(nil), name...)

		if r.Headers.Len() >= maxHeaderCount {
			return false, status.ErrTooManyHeaders
		}
	}
}

const maxHeaderCount = 128

func (r *Request) flushPendingHeader() {
	if r.pendingName == nil {
		return
	}

	r.Headers.Add(headers.Header, r.pendingName, r.last)
	r.pendingName = nil
	r.last = nil
}

// ParseFooterBytes parses a raw, already-delimited CRLF-separated
// trailer section into FOOTER-kind entries on dst (spec
// §4.1 FOOTER_PART_RECEIVED/FOOTERS_RECEIVED — mirrors header-parsing
// rules, but over a buffer that's already fully available rather than
// arriving incrementally off the wire).
func ParseFooterBytes(raw []byte, dst *headers.List) error {
	for len(raw) > 0 {
		line := raw
		raw = nil

		if lf := bytes.IndexByte(line, '\n'); lf != -1 {
			line, raw = line[:lf], line[lf+1:]
		}

		line = trimCR(line)

		if len(line) == 0 {
			continue
		}

		colon := bytes.IndexByte(line, ':')
		if colon == -1 {
			return status.ErrBadRequest
		}

		name := bytes.TrimSpace(line[:colon])
		value := bytes.TrimSpace(line[colon+1:])
		if len(name) == 0 || !httpguts.ValidHeaderFieldName(string(name)) {
			return status.ErrBadRequest
		}

		if !httpguts.ValidHeaderFieldValue(string(value)) {
			return status.ErrBadRequest
		}

		dst.Add(headers.Footer, append([]byte(nil), name...), append([]byte(nil), value...))
	}

	return nil
}

func isFoldedContinuation(line []byte) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

func trimCR(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\r' {
		return line[:len(line)-1]
	}

	return line
}
