// Package headers implements the append-ordered (kind, name, value) list
// spec §3 defines for both requests and responses: HEADER/COOKIE/FOOTER
// entries parsed off the wire, and RESPONSE_HEADER/GET_ARGUMENT/POSTDATA
// entries produced by the host application or the query-string/body
// decoders it owns.
//
// Entry storage is bare []byte rather than string, and a List keeps the
// slices it is given without copying them. The request parser hands it
// heap copies of each name and value, not views into the connection's
// pool, so request-side entries stay valid across a pool reset.
package headers

import "github.com/indigo-web/utils/strcomp"

// Kind distinguishes the six header-entry classes spec §3 names.
// Duplicates by name within a Kind are permitted and preserve insertion
// order — callers that need "last value wins" semantics (as RFC 7230
// prescribes for most request headers) pick the last match themselves.
type Kind uint8

const (
	Header Kind = iota
	Cookie
	Footer
	ResponseHeader
	GetArgument
	PostData
)

func (k Kind) String() string {
	switch k {
	case Header:
		return "HEADER"
	case Cookie:
		return "COOKIE"
	case Footer:
		return "FOOTER"
	case ResponseHeader:
		return "RESPONSE_HEADER"
	case GetArgument:
		return "GET_ARGUMENT"
	case PostData:
		return "POSTDATA"
	default:
		return "UNKNOWN"
	}
}

// entry is one node of the singly-linked append list.
type entry struct {
	kind  Kind
	name  []byte
	value []byte
	next  *entry
}

// List is a singly-linked, append-ordered header list. The zero value is
// an empty, ready-to-use list.
type List struct {
	head *entry
	tail *entry
	n    int
}

// Add appends a new (kind, name, value) entry. name/value are kept by
// reference, not copied, so callers must not modify them afterwards.
func (l *List) Add(kind Kind, name, value []byte) {
	e := &entry{kind: kind, name: name, value: value}

	if l.tail == nil {
		l.head = e
	} else {
		l.tail.next = e
	}

	l.tail = e
	l.n++
}

// Len returns the number of entries across all kinds.
func (l *List) Len() int {
	return l.n
}

// Reset empties the list. (Request.Reinit does not call it: it replaces
// the whole Request value, header lists included.)
func (l *List) Reset() {
	l.head, l.tail, l.n = nil, nil, 0
}

// Get returns the value of the first entry of the given kind matching
// name. Names are compared with strcomp.EqualFold, not ==: header names
// arrive off the wire in whatever case the client sent (spec §6 "header
// names case-insensitive") and are stored verbatim, so every lookup
// must fold case itself rather than assume the parser normalized it.
func (l *List) Get(kind Kind, name string) (value []byte, ok bool) {
	for e := l.head; e != nil; e = e.next {
		if e.kind == kind && strcomp.EqualFold(string(e.name), name) {
			return e.value, true
		}
	}

	return nil, false
}

// GetLast returns the value of the last entry of the given kind matching
// name (case-insensitive, see Get). RFC 7230 §3.2.2 requires combining
// duplicate header fields, but most real clients never send duplicates,
// and where they do the last occurrence is the conventional tiebreaker
// this module uses for single-valued headers like Content-Length and
// Transfer-Encoding.
func (l *List) GetLast(kind Kind, name string) (value []byte, ok bool) {
	for e := l.head; e != nil; e = e.next {
		if e.kind == kind && strcomp.EqualFold(string(e.name), name) {
			value, ok = e.value, true
		}
	}

	return value, ok
}

// Each calls fn for every entry of the given kind, in insertion order.
// Returning false from fn stops iteration early.
func (l *List) Each(kind Kind, fn func(name, value []byte) bool) {
	for e := l.head; e != nil; e = e.next {
		if e.kind == kind {
			if !fn(e.name, e.value) {
				return
			}
		}
	}
}

// EachAll calls fn for every entry regardless of kind, in insertion
// order — used by the response serializer, which must emit
// RESPONSE_HEADER entries in the order add_response_header queued them.
func (l *List) EachAll(fn func(kind Kind, name, value []byte) bool) {
	for e := l.head; e != nil; e = e.next {
		if !fn(e.kind, e.name, e.value) {
			return
		}
	}
}
