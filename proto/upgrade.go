package proto

import "strings"

// ChooseUpgrade parses an Upgrade header value and returns the first
// supported protocol token, honoring client-preference order. The
// request state machine does not call it: a connection is upgraded only
// when the handler returns a response built with response.NewUpgrade
// (spec §4.1, §5 Upgrade).
func ChooseUpgrade(value string) Proto {
	for len(value) > 0 {
		var token string
		token, value = cut(value, ',')

		if p := parseToken(strings.TrimSpace(token)); p != Unknown {
			return p
		}
	}

	return Unknown
}

func parseToken(token string) Proto {
	switch token {
	case "http/1.0", "HTTP/1.0":
		return HTTP10
	case "http/1.1", "HTTP/1.1":
		return HTTP11
	default:
		return Unknown
	}
}

func cut(s string, sep byte) (prefix, postfix string) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:]
		}
	}

	return s, ""
}
