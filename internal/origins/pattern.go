package origins

import (
	"net/netip"
	"strings"
	"sync"

	"github.com/originpolicy/cors/cfgerrors"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

const (
	wildcardSeq  = "*." // marks one or more period-separated DNS labels
	portWildcard = "*"  // marks an arbitrary (possibly implicit) port
)

const (
	absentPort = 0
	// anyPort is a sentinel port value that subsumes all other port numbers,
	// explicit or implicit.
	anyPort = -1
)

const schemeHTTPS = "https"

// A Pattern represents a compiled origin pattern: an exact origin, possibly
// extended to cover arbitrary subdomains, an arbitrary port, or both.
// The zero value does not correspond to a valid pattern.
type Pattern struct {
	raw    string // the pattern as specified in the configuration
	scheme string
	host   string // stripped of any leading "*." sequence or IPv6 brackets
	port   int    // absentPort, anyPort, or an explicit port number
	anySub bool   // whether arbitrary subdomains of host are covered

	hostIsIP   bool
	loopbackIP bool
}

// String returns the pattern as it was specified in the configuration.
func (p *Pattern) String() string { return p.raw }

// CoversSubdomains reports whether p encompasses arbitrary subdomains of
// its host.
func (p *Pattern) CoversSubdomains() bool { return p.anySub }

// ParsePattern parses str into a fully valid [Pattern] structure.
// If it fails, it returns a non-nil error and some invalid pattern.
// Note that origin pattern "*" is handled elsewhere.
func ParsePattern(str string) (Pattern, error) {
	// Using url.Parse here is tempting, but the impedance mismatch between
	// that function's behavior and our needs is too great: it is in some
	// ways too permissive and in other ways too strict. Manual scanning
	// together with net/netip and golang.org/x/net does the job.
	var p Pattern
	if len(str) > maxOriginLen {
		return p, invalidPatternErr(str)
	}
	// The null origin tells nothing about where a request really came from,
	// so allowing it would defeat the whole policy.
	if str == "null" {
		return p, prohibitedPatternErr(str)
	}
	p.raw = str
	var (
		rest string
		ok   bool
	)
	p.scheme, rest, ok = parseScheme(str)
	if !ok {
		return p, invalidPatternErr(str)
	}
	if p.scheme == "file" {
		return p, prohibitedPatternErr(str)
	}
	rest, ok = strings.CutPrefix(rest, schemeHostSep)
	if !ok {
		return p, invalidPatternErr(str)
	}
	rest, err := p.parseHostPattern(rest, str)
	if err != nil {
		return p, err
	}
	if rest != "" {
		rest, ok = strings.CutPrefix(rest, string(hostPortSep))
		if !ok {
			return p, invalidPatternErr(str)
		}
		if rest == portWildcard {
			p.port = anyPort
		} else {
			p.port, rest, ok = parsePort(rest)
			if !ok || rest != "" {
				return p, invalidPatternErr(str)
			}
			if isDefaultPortForScheme(p.scheme, p.port) {
				// Browsers elide default ports when serializing origins;
				// a pattern carrying one could never match anything.
				return p, prohibitedPatternErr(str)
			}
		}
	}
	return p, nil
}

// parseHostPattern scans and validates the host part of raw, starting at
// str. It returns the unconsumed part of str.
func (p *Pattern) parseHostPattern(str, raw string) (string, error) {
	var rest string
	if str != "" && str[0] == '[' { // looks like an IPv6 address
		end := strings.IndexByte(str, ']')
		if end == -1 { // unmatched left bracket
			return "", invalidPatternErr(raw)
		}
		p.host, rest = str[1:end], str[end+1:]
		return rest, p.validateIPHost(raw)
	}
	str, p.anySub = strings.CutPrefix(str, wildcardSeq)
	var ok bool
	p.host, rest, ok = scanDomainOrIPv4(str)
	if !ok {
		return "", invalidPatternErr(raw)
	}
	if lastLabelStartsWithDigit(p.host) { // looks like an IPv4 address
		if p.anySub { // an IP address has no subdomains
			return "", invalidPatternErr(raw)
		}
		return rest, p.validateIPHost(raw)
	}
	// Host must be a valid domain, in ASCII serialized form; a host that
	// fails IDNA validation (e.g. one containing a malformed Punycode label
	// or a label that starts with a hyphen) is prohibited rather than
	// invalid.
	profileOnce.Do(initProfile)
	if _, err := profile.ToASCII(p.host); err != nil {
		return "", prohibitedPatternErr(raw)
	}
	return rest, nil
}

// validateIPHost checks that p's host is an IP address in canonical form:
// dotted-quad notation for IPv4, compressed form for IPv6.
func (p *Pattern) validateIPHost(raw string) error {
	ip, err := netip.ParseAddr(p.host)
	if err != nil || ip.Zone() != "" {
		return invalidPatternErr(raw)
	}
	if ip.Is4In6() || p.host != ip.String() {
		return prohibitedPatternErr(raw)
	}
	p.hostIsIP = true
	p.loopbackIP = ip.IsLoopback()
	return nil
}

// Matches reports whether o falls within the set of origins that p
// encompasses.
func (p *Pattern) Matches(o *Origin) bool {
	if o.Scheme != p.scheme {
		return false
	}
	if p.port != anyPort && o.Port != p.port {
		return false
	}
	if !p.anySub {
		return o.Host == p.host
	}
	// At least one extra DNS label must precede the base host.
	if o.hostIsIP || len(o.Host) <= len(p.host)+1 {
		return false
	}
	return strings.HasSuffix(o.Host, p.host) &&
		o.Host[len(o.Host)-len(p.host)-1] == labelSep
}

// IsDeemedInsecure reports whether all of the following conditions are
// fulfilled:
//   - p's scheme is not https,
//   - p's host is not a loopback IP address,
//   - p's host is not localhost.
//
// Note: protocols using a scheme other than https may well encrypt traffic,
// but let's be conservative here.
func (p *Pattern) IsDeemedInsecure() bool {
	return p.scheme != schemeHTTPS &&
		!p.loopbackIP &&
		p.host != "localhost"
}

// HostIsEffectiveTLD reports whether p's host is an effective top-level
// domain (eTLD), also known as [public suffix].
//
// [public suffix]: https://publicsuffix.org/list/
func (p *Pattern) HostIsEffectiveTLD() bool {
	// A trailing full stop (absolute domain name) would throw the lookup off.
	host := strings.TrimSuffix(p.host, string(labelSep))
	// We ignore the second (boolean) result because
	// it's false for some listed eTLDs (e.g. github.io).
	etld, _ := publicsuffix.PublicSuffix(host)
	return etld == host
}

func isDefaultPortForScheme(scheme string, port int) bool {
	const (
		schemeHTTP = "http"
		portHTTP   = 80
		portHTTPS  = 443
	)
	return port == portHTTP && scheme == schemeHTTP ||
		port == portHTTPS && scheme == schemeHTTPS
}

func invalidPatternErr(pattern string) error {
	return &cfgerrors.UnacceptableOriginPatternError{
		Value:  pattern,
		Reason: "invalid",
	}
}

func prohibitedPatternErr(pattern string) error {
	return &cfgerrors.UnacceptableOriginPatternError{
		Value:  pattern,
		Reason: "prohibited",
	}
}

var (
	profileOnce sync.Once     // guards init of profile via initProfile
	profile     *idna.Profile // lazily initialized
)

func initProfile() {
	profile = idna.New(
		idna.BidiRule(),
		idna.ValidateLabels(true),
		idna.StrictDomainName(true),
		idna.VerifyDNSLength(true),
	)
}
