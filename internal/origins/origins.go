// Package origins provides parsing and matching of Web origins and of the
// origin patterns that a CORS policy may allow.
package origins

import "strings"

const (
	schemeHostSep = "://" // scheme-host separator
	hostPortSep   = ':'   // host-port separator
	labelSep      = '.'   // DNS-label separator
)

const (
	// maxHostLen is the maximum length of a host, which is dominated by
	// the maximum length of an (absolute) domain name (253).
	maxHostLen = 253
	// maxSchemeLen is the maximum tolerated length for schemes.
	// Its value is somewhat arbitrary but chosen so as to cover the great
	// majority of commonly used schemes.
	maxSchemeLen = 64
	// maxPortLen is the maximum length of a port's decimal representation.
	maxPortLen = len("65535")
	// maxOriginLen is the maximum length of a serialized origin.
	maxOriginLen = maxSchemeLen + len(schemeHostSep) + maxHostLen + 1 + maxPortLen
)

// An Origin represents a (tuple) [Web origin].
//
// [Web origin]: https://developer.mozilla.org/en-US/docs/Glossary/Origin
type Origin struct {
	// Scheme is the origin's scheme.
	Scheme string
	// Host is the origin's host, stripped of any IPv6 brackets.
	Host string
	// Port is the origin's port (if any).
	// The zero value marks the absence of an explicit port.
	Port int

	// hostIsIP indicates whether Host should be treated as an IP address.
	hostIsIP bool
}

var zeroOrigin Origin

// Parse parses str, ostensibly the value of an Origin request header,
// into an [Origin] structure.
// It is lenient insofar as it performs just enough validation for
// [Set.Contains] to know what to do with the result.
// In particular, the scheme and port of the resulting origin are guaranteed
// to be valid, but its host isn't.
func Parse(str string) (Origin, bool) {
	if len(str) > maxOriginLen {
		return zeroOrigin, false
	}
	scheme, rest, ok := parseScheme(str)
	if !ok {
		return zeroOrigin, false
	}
	rest, ok = strings.CutPrefix(rest, schemeHostSep)
	if !ok {
		return zeroOrigin, false
	}
	host, hostIsIP, rest, ok := parseHost(rest)
	if !ok {
		return zeroOrigin, false
	}
	var port int // assume no explicit port at first
	if rest != "" {
		rest, ok = strings.CutPrefix(rest, string(hostPortSep))
		if !ok {
			return zeroOrigin, false
		}
		port, rest, ok = parsePort(rest)
		if !ok || rest != "" {
			return zeroOrigin, false
		}
	}
	o := Origin{
		Scheme:   scheme,
		Host:     host,
		Port:     port,
		hostIsIP: hostIsIP,
	}
	return o, true
}

// parseScheme parses a URI scheme, [per RFC 3986]. If successful, it returns
// the scheme, the unconsumed part of str, and true; otherwise, its last
// result is false.
//
// [per RFC 3986]: https://www.rfc-editor.org/rfc/rfc3986.html#section-3.1
func parseScheme(str string) (scheme, rest string, ok bool) {
	if str == "" || !isLowerAlpha(str[0]) {
		return "", "", false
	}
	i := 1
	for end := min(maxSchemeLen, len(str)); i < end; i++ {
		if !isSubsequentSchemeByte(str[i]) {
			break
		}
	}
	return str[:i], str[i:], true
}

// parseHost parses a raw host. It returns the parsed host, whether that host
// should be treated as an IP address, the unconsumed part of str, and a bool
// that indicates success or failure. It is lenient insofar as the resulting
// host is not guaranteed to be valid.
func parseHost(str string) (host string, hostIsIP bool, rest string, ok bool) {
	if str != "" && str[0] == '[' { // looks like an IPv6 address
		end := strings.IndexByte(str, ']')
		if end == -1 { // unmatched left bracket
			return "", false, str, false
		}
		return str[1:end], true, str[end+1:], true
	}
	host, rest, ok = scanDomainOrIPv4(str)
	if !ok {
		return "", false, str, false
	}
	// If the last non-empty label starts with a digit, assume an IPv4
	// address, since no TLD starts with a digit
	// (see https://www.iana.org/domains/root/db).
	hostIsIP = lastLabelStartsWithDigit(host)
	return host, hostIsIP, rest, true
}

// scanDomainOrIPv4 scans a domain name or a dotted-quad IPv4 address in str.
// It rejects empty hosts, hosts that start with a DNS-label separator, and
// hosts that contain empty non-final labels; a single trailing separator is
// tolerated, for absolute domain names (e.g. "example.com.").
func scanDomainOrIPv4(str string) (host, rest string, ok bool) {
	if str == "" || str[0] == labelSep {
		return "", str, false
	}
	var previousByteWasLabelSep bool
	var i int
	for ; i < len(str) && isHostByte(str[i]); i++ {
		if str[i] == labelSep {
			if previousByteWasLabelSep {
				return "", str, false
			}
			previousByteWasLabelSep = true
		} else {
			previousByteWasLabelSep = false
		}
	}
	if i == 0 {
		return "", str, false
	}
	return str[:i], str[i:], true
}

// lastLabelStartsWithDigit reports whether the first byte of the rightmost
// non-empty DNS label in host is a digit.
// Precondition: host is a successful result of scanDomainOrIPv4.
func lastLabelStartsWithDigit(host string) bool {
	host = strings.TrimSuffix(host, string(labelSep)) // absolute domain name
	if i := strings.LastIndexByte(host, labelSep); i >= 0 {
		host = host[i+1:]
	}
	return host != "" && isDigit(host[0])
}

// parsePort parses a port number in the 1-65535 range, without leading
// zeros. It returns the port number, the unconsumed part of the input
// string, and a bool that indicates success or failure.
func parsePort(str string) (port int, rest string, ok bool) {
	if str == "" || !isDigit(str[0]) || str[0] == '0' {
		return 0, str, false
	}
	const maxPort = 1<<16 - 1
	i := 0
	for end := min(maxPortLen, len(str)); i < end && isDigit(str[i]); i++ {
		port = 10*port + int(str[i]-'0')
	}
	if port > maxPort {
		return 0, str, false
	}
	return port, str[i:], true
}

// isLowerAlpha reports whether c is in the 0x61-0x7A ASCII range.
func isLowerAlpha(c byte) bool {
	return 'a' <= c && c <= 'z'
}

// isDigit reports whether c is in the 0x30-0x39 ASCII range.
func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// isSubsequentSchemeByte reports whether c is a valid byte at index >= 1 in
// a scheme.
func isSubsequentSchemeByte(c byte) bool {
	return isLowerAlpha(c) || isDigit(c) || c == '+' || c == '-' || c == '.'
}

// isHostByte reports whether c is an ASCII lowercase letter, an ASCII digit,
// a hyphen (0x2D), a period (0x2E), or an underscore (0x5F); underscores,
// although absent from the relevant RFCs' grammar, do occur in the wild.
func isHostByte(c byte) bool {
	return isLowerAlpha(c) || isDigit(c) ||
		c == '-' || c == labelSep || c == '_'
}
