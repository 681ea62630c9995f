// Package proto holds the HTTP protocol-version enum and the Upgrade
// token grammar (spec §4.1, §6 Upgrade).
package proto

import "github.com/indigo-web/utils/uf"

type Proto uint8

const (
	Unknown Proto = 0
	HTTP10  Proto = 1 << iota
	HTTP11

	// HTTP1 is the union of both HTTP/1.x versions, for bitmask tests
	// against either one.
	HTTP1 = HTTP10 | HTTP11
)

const (
	tokenLength        = len("HTTP/x.x")
	majorVersionOffset = len("HTTP/x") - 1
	minorVersionOffset = len("HTTP/x.x") - 1
	scheme             = "HTTP/"
)

var lut = [...]string{
	HTTP10: "HTTP/1.0",
	HTTP11: "HTTP/1.1",
}

// String renders the protocol token without a trailing space.
func (p Proto) String() string {
	if int(p) >= len(lut) {
		return ""
	}

	return lut[p]
}

var majorMinorLUT = [10][10]Proto{
	1: {0: HTTP10, 1: HTTP11},
}

// FromBytes parses the "HTTP/x.y" token off the request line.
func FromBytes(raw []byte) Proto {
	if len(raw) != tokenLength || uf.B2S(raw[:majorVersionOffset]) != scheme {
		return Unknown
	}

	return fromDigits(raw[majorVersionOffset]-'0', raw[minorVersionOffset]-'0')
}

func fromDigits(major, minor uint8) Proto {
	if major > 9 || minor > 9 {
		return Unknown
	}

	return majorMinorLUT[major][minor]
}
