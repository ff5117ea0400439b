package cors

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/originpolicy/cors/cfgerrors"
	"github.com/originpolicy/cors/internal/headers"
	"github.com/originpolicy/cors/internal/methods"
	"github.com/originpolicy/cors/internal/origins"
	"github.com/originpolicy/cors/internal/util"
)

// A Config configures a Middleware. Attempts to use settings described as
// "prohibited" below result in a failure to build the desired middleware.
//
// # Origins
//
// Origins configures a CORS middleware to allow access from any of the
// [Web origins] encompassed by the specified origin patterns:
//
//	Origins: []string{
//	  "https://example.com",
//	  "https://*.example.com",
//	},
//
// Origins must be specified in [ASCII serialized form]; Unicode is
// prohibited, as are the null origin and the file scheme. Hosts that are IP
// addresses must be specified in canonical form (dotted-quad notation for
// IPv4, compressed form for IPv6), and default ports (80 for http, 443 for
// https) must be elided.
//
// A single asterisk denotes all origins:
//
//	Origins: []string{"*"},
//
// For [security reasons], specifying this origin pattern is prohibited when
// credentialed access is enabled.
//
// A leading asterisk followed by a period (.) in a host pattern denotes one
// or more period-separated arbitrary DNS labels; for instance,
// "https://*.example.com" encompasses https://foo.example.com and
// https://bar.foo.example.com (among others). An asterisk in place of a port
// denotes an arbitrary, possibly implicit, port; for instance,
// "http://localhost:*" encompasses http://localhost and
// http://localhost:9090 (among others). No other forms of origin patterns
// are supported.
//
// Origin patterns whose scheme is not https and whose host is neither
// localhost nor a loopback IP address are deemed insecure; as such, they are
// by default prohibited when credentialed access is enabled. If, even in
// such cases, you deliberately wish to allow some insecure origins, you must
// also set the [Config.DangerouslyTolerateInsecureOrigins] field.
//
// Allowing arbitrary subdomains of a base domain that happens to be a
// [public suffix] (e.g. com, github.io) is dangerous; as such, doing so is
// by default prohibited. If you deliberately wish to allow arbitrary
// subdomains of some public suffix, you must also set the
// [Config.DangerouslyTolerateSubdomainsOfPublicSuffixes] field.
//
// Omitting to specify at least one origin pattern is prohibited unless an
// origin predicate (see below) is supplied.
//
// Bear in mind that, by allowing Web origins in your server's CORS
// configuration, you engage in a trust relationship with those origins;
// if you enable credentialed access, you should only allow Web origins that
// you absolutely trust.
//
// # OriginPredicate
//
// OriginPredicate configures a CORS middleware to allow access from any
// syntactically valid Web origin for which the specified function returns
// true. It caters for origin lists that are too large or too dynamic to
// enumerate in the Origins field:
//
//	OriginPredicate: func(origin string) bool {
//	  return tenants.IsRegistered(origin)
//	},
//
// The predicate is consulted only for origins that the Origins field does
// not already match, and only after basic syntactic validation of the raw
// Origin-header value. It may be invoked by multiple goroutines
// concurrently and must not mutate shared state without appropriate
// synchronization.
//
// OriginPredicate may be specified in conjunction with, or instead of, the
// Origins field.
//
// # Credentialed
//
// Credentialed, when set, configures a CORS middleware to allow
// [credentialed access] (e.g. with [cookies]) in addition to anonymous
// access.
//
// Note that credentialed access is required only by requests that carry
// browser-managed credentials (as opposed to client-managed credentials,
// such as [Bearer tokens]). If you merely wish to allow clients to send an
// Authorization header of their own making, leave Credentialed unset and
// allow request-header name "Authorization" via the [Config.RequestHeaders]
// field.
//
// # Methods
//
// Methods configures a CORS middleware to allow any of the specified HTTP
// methods. The configured list is echoed, in order, in the
// Access-Control-Allow-Methods header of preflight responses:
//
//	Methods: []string{
//	  http.MethodGet,
//	  http.MethodPost,
//	  "PURGE",
//	},
//
// Method names are case-sensitive, but well-known methods specified in
// lowercase are normalized to their uppercase form. The CORS protocol
// forbids some method names (CONNECT, TRACE, TRACK); specifying those is
// prohibited.
//
// A single asterisk denotes all methods:
//
//	Methods: []string{"*"},
//
// # RequestHeaders
//
// RequestHeaders configures a CORS middleware to allow any of the specified
// request headers. Header names are case-insensitive; the configured list is
// echoed, in its configured spelling and order, in the
// Access-Control-Allow-Headers header of preflight responses:
//
//	RequestHeaders: []string{"Content-Type"},
//
// A single asterisk denotes all request-header names:
//
//	RequestHeaders: []string{"*"},
//
// For [technical and security reasons], when credentialed access is
// disabled, the asterisk denotes all request-header names other than
// Authorization; to also allow Authorization in that case, specify that name
// in addition to the asterisk.
//
// The CORS protocol defines a number of [forbidden request-header names],
// which browsers never let client code attach to requests; specifying one of
// those is prohibited, as is specifying a header name that can only appear
// in a response.
//
// # MaxAge
//
// MaxAge configures a CORS middleware to instruct browsers to cache
// preflight responses for no longer than the specified duration, via the
// Access-Control-Max-Age header.
//
// The zero value leaves the header unset, in which case browsers apply their
// [default max-age value] of five seconds. A negative value instructs
// browsers to eschew caching of preflight responses altogether. Because
// browsers [cap the max-age value] at 86400 seconds (24 hours) or less,
// longer durations are prohibited, as are durations that are not a whole
// number of seconds.
//
// # ResponseHeaders
//
// ResponseHeaders configures a CORS middleware to expose the specified
// response headers to clients, via the Access-Control-Expose-Headers header
// of responses to non-preflight requests:
//
//	ResponseHeaders: []string{"X-Response-Time"},
//
// Header names are case-insensitive. A single asterisk denotes all
// response-header names, but only when credentialed access is disabled.
// The [CORS-safelisted response-header names] are always visible to client
// code and are silently tolerated in this list.
//
// [ASCII serialized form]: https://html.spec.whatwg.org/multipage/browsers.html#ascii-serialisation-of-an-origin
// [Bearer tokens]: https://developer.mozilla.org/en-US/docs/Web/HTTP/Authentication#bearer
// [CORS-safelisted response-header names]: https://fetch.spec.whatwg.org/#cors-safelisted-response-header-name
// [Web origins]: https://developer.mozilla.org/en-US/docs/Glossary/Origin
// [cap the max-age value]: https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Access-Control-Max-Age#delta-seconds
// [cookies]: https://developer.mozilla.org/en-US/docs/Web/HTTP/Cookies
// [credentialed access]: https://fetch.spec.whatwg.org/#concept-request-credentials-mode
// [default max-age value]: https://fetch.spec.whatwg.org/#http-access-control-max-age
// [forbidden request-header names]: https://fetch.spec.whatwg.org/#forbidden-request-header
// [public suffix]: https://publicsuffix.org/
// [security reasons]: https://portswigger.net/research/exploiting-cors-misconfigurations-for-bitcoins-and-bounties
// [technical and security reasons]: https://github.com/whatwg/fetch/issues/251#issuecomment-209265586
type Config struct {
	// Precludes comparability, unkeyed struct literals, and conversion to
	// and from third-party types.
	_ [0]func()

	Origins                                       []string
	OriginPredicate                               func(origin string) bool
	Credentialed                                  bool
	Methods                                       []string
	RequestHeaders                                []string
	MaxAge                                        time.Duration
	ResponseHeaders                               []string
	DangerouslyTolerateInsecureOrigins            bool
	DangerouslyTolerateSubdomainsOfPublicSuffixes bool

	ExtraConfig
}

// ExtraConfig gathers advanced settings that most users never need to touch.
//
// # PreflightSuccessStatus
//
// PreflightSuccessStatus configures a CORS middleware to use the specified
// status for preflight responses. The zero value selects 204 (No Content),
// arguably the most appropriate status; however, some rare non-compliant
// user agents fail preflight when the response has a status other than 200,
// which this field lets you accommodate. Any status outside the 2xx range is
// prohibited, since browsers fail the CORS-preflight check for all other
// status classes.
type ExtraConfig struct {
	// Precludes comparability, unkeyed struct literals, and conversion to
	// and from third-party types.
	_ [0]func()

	PreflightSuccessStatus int
}

const defaultPreflightStatus = http.StatusNoContent

// A policy is the compiled, immutable form of a Config. Concurrent requests
// share a policy without locking; no field is ever mutated after
// compilation.
type policy struct {
	patterns       origins.Set
	allowAnyOrigin bool
	originPred     func(string) bool
	credentialed   bool

	methodSet      util.OrderedSet
	allowAnyMethod bool
	acam           string // precomputed Access-Control-Allow-Methods value

	reqHdrSet          util.OrderedSet // configured spellings, deduplicated case-insensitively
	allowAnyReqHdr     bool
	allowAuthorization bool
	acah               string // precomputed Access-Control-Allow-Headers value

	resHdrSet        util.OrderedSet
	exposeAllResHdrs bool
	aceh             string // precomputed Access-Control-Expose-Headers value

	maxAgeSecs int      // 0: unset; -1: caching disabled
	acma       []string // singleton, e.g. ["300"]; nil if unset

	preflightStatus int

	tolerateInsecureOrigins      bool
	tolerateSubsOfPublicSuffixes bool
}

func newPolicy(cfg *Config) (*policy, error) {
	if cfg == nil {
		return nil, nil
	}
	p := policy{
		originPred:                   cfg.OriginPredicate,
		credentialed:                 cfg.Credentialed,
		tolerateInsecureOrigins:      cfg.DangerouslyTolerateInsecureOrigins,
		tolerateSubsOfPublicSuffixes: cfg.DangerouslyTolerateSubdomainsOfPublicSuffixes,
	}

	// Accumulate errors in a slice so as to call errors.Join at most once.
	errs := p.validateOrigins(cfg.Origins)
	errs = p.validateMethods(errs, cfg.Methods)
	errs = p.validateRequestHeaders(errs, cfg.RequestHeaders)
	errs = p.validateMaxAge(errs, cfg.MaxAge)
	errs = p.validateResponseHeaders(errs, cfg.ResponseHeaders)
	errs = p.validatePreflightStatus(errs, cfg.PreflightSuccessStatus)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &p, nil
}

func (p *policy) validateOrigins(rawPatterns []string) []error {
	if len(rawPatterns) == 0 && p.originPred == nil {
		err := &cfgerrors.UnacceptableOriginPatternError{
			Reason: "missing",
		}
		return []error{err}
	}
	var (
		patterns []origins.Pattern
		errs     []error
	)
	for _, raw := range rawPatterns {
		if raw == headers.ValueWildcard {
			if p.credentialed {
				// A wildcard Access-Control-Allow-Origin is never valid
				// with credentials; silently downgrading it would create a
				// false sense of security, hence the loud failure.
				err := &cfgerrors.IncompatibleOriginPatternError{
					Value:  raw,
					Reason: "credentialed",
				}
				errs = append(errs, err)
				continue
			}
			p.allowAnyOrigin = true
			continue
		}
		pattern, err := origins.ParsePattern(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if p.credentialed &&
			!p.tolerateInsecureOrigins &&
			pattern.IsDeemedInsecure() {
			err := &cfgerrors.IncompatibleOriginPatternError{
				Value:  raw,
				Reason: "credentialed",
			}
			errs = append(errs, err)
			continue
		}
		if !p.tolerateSubsOfPublicSuffixes &&
			pattern.CoversSubdomains() &&
			pattern.HostIsEffectiveTLD() {
			err := &cfgerrors.IncompatibleOriginPatternError{
				Value:  raw,
				Reason: "psl",
			}
			errs = append(errs, err)
			continue
		}
		patterns = append(patterns, pattern)
	}
	if !p.allowAnyOrigin {
		p.patterns = origins.NewSet(patterns...)
	}
	return errs
}

func (p *policy) validateMethods(errs []error, names []string) []error {
	for _, name := range names {
		if name == headers.ValueWildcard {
			p.allowAnyMethod = true
			continue
		}
		if !methods.IsValid(name) {
			err := &cfgerrors.UnacceptableMethodError{
				Value:  name,
				Reason: "invalid",
			}
			errs = append(errs, err)
			continue
		}
		if methods.IsForbidden(name) {
			err := &cfgerrors.UnacceptableMethodError{
				Value:  name,
				Reason: "forbidden",
			}
			errs = append(errs, err)
			continue
		}
		// Preflight responses echo the full configured list, safelisted
		// methods included, so nothing gets stripped here.
		p.methodSet.Add(methods.Normalize(name))
	}
	if p.allowAnyMethod {
		p.methodSet = util.OrderedSet{}
	} else if p.methodSet.Size() > 0 {
		p.acam = strings.Join(p.methodSet.ToSlice(), headers.ValueSep)
	}
	return errs
}

func (p *policy) validateRequestHeaders(errs []error, names []string) []error {
	var lowercased util.OrderedSet // guards against case-insensitive duplicates
	for _, name := range names {
		if name == headers.ValueWildcard {
			p.allowAnyReqHdr = true
			continue
		}
		if !headers.IsValid(name) {
			err := &cfgerrors.UnacceptableHeaderNameError{
				Value:  name,
				Type:   "request",
				Reason: "invalid",
			}
			errs = append(errs, err)
			continue
		}
		normalized := util.ByteLowercase(name)
		if normalized == headers.Authorization {
			// The wildcard does not cover request-header name
			// Authorization; see
			// https://fetch.spec.whatwg.org/#cors-non-wildcard-request-header-name.
			p.allowAuthorization = true
			if !lowercased.Contains(normalized) {
				lowercased.Add(normalized)
				p.reqHdrSet.Add(name)
			}
			continue
		}
		if headers.IsForbiddenRequestHeaderName(normalized) {
			err := &cfgerrors.UnacceptableHeaderNameError{
				Value:  name,
				Type:   "request",
				Reason: "forbidden",
			}
			errs = append(errs, err)
			continue
		}
		if headers.IsProhibitedRequestHeaderName(normalized) {
			err := &cfgerrors.UnacceptableHeaderNameError{
				Value:  name,
				Type:   "request",
				Reason: "prohibited",
			}
			errs = append(errs, err)
			continue
		}
		if !lowercased.Contains(normalized) {
			lowercased.Add(normalized)
			p.reqHdrSet.Add(name)
		}
	}
	if p.allowAnyReqHdr {
		p.reqHdrSet = util.OrderedSet{}
	} else if p.reqHdrSet.Size() > 0 {
		p.acah = strings.Join(p.reqHdrSet.ToSlice(), headers.ValueSep)
	}
	return errs
}

func (p *policy) validateMaxAge(errs []error, maxAge time.Duration) []error {
	// Current browser upper bounds:
	//  - Firefox: 86400s (24h)
	//  - Chromium: 7200s (2h)
	//  - WebKit/Safari: 600s (10m)
	const upperBound = 86400 * time.Second
	switch {
	case maxAge == 0:
		return errs
	case maxAge < 0:
		// Any negative duration disables preflight caching altogether.
		p.maxAgeSecs = -1
		p.acma = []string{"0"}
		return errs
	case maxAge > upperBound || maxAge%time.Second != 0:
		err := &cfgerrors.MaxAgeOutOfBoundsError{
			Value: maxAge,
			Max:   upperBound,
		}
		return append(errs, err)
	default:
		p.maxAgeSecs = int(maxAge / time.Second)
		p.acma = []string{strconv.Itoa(p.maxAgeSecs)}
		return errs
	}
}

func (p *policy) validateResponseHeaders(errs []error, names []string) []error {
	var lowercased util.OrderedSet // guards against case-insensitive duplicates
	for _, name := range names {
		if name == headers.ValueWildcard {
			if p.credentialed {
				// Exposing all response headers with credentials would
				// require enumerating, per response, every header the
				// wrapped handler set, which would in turn require wrapping
				// http.ResponseWriter and masking its optional interfaces.
				// Not viable.
				err := new(cfgerrors.IncompatibleWildcardResponseHeaderNameError)
				errs = append(errs, err)
				continue
			}
			p.exposeAllResHdrs = true
			continue
		}
		if !headers.IsValid(name) {
			err := &cfgerrors.UnacceptableHeaderNameError{
				Value:  name,
				Type:   "response",
				Reason: "invalid",
			}
			errs = append(errs, err)
			continue
		}
		normalized := util.ByteLowercase(name)
		if headers.IsForbiddenResponseHeaderName(normalized) {
			err := &cfgerrors.UnacceptableHeaderNameError{
				Value:  name,
				Type:   "response",
				Reason: "forbidden",
			}
			errs = append(errs, err)
			continue
		}
		if headers.IsProhibitedResponseHeaderName(normalized) {
			err := &cfgerrors.UnacceptableHeaderNameError{
				Value:  name,
				Type:   "response",
				Reason: "prohibited",
			}
			errs = append(errs, err)
			continue
		}
		if headers.IsSafelistedResponseHeaderName(normalized) {
			// silently tolerate safelisted response-header names
			continue
		}
		if !lowercased.Contains(normalized) {
			lowercased.Add(normalized)
			p.resHdrSet.Add(name)
		}
	}
	if p.exposeAllResHdrs {
		p.resHdrSet = util.OrderedSet{}
		p.aceh = headers.ValueWildcard
	} else if p.resHdrSet.Size() > 0 {
		p.aceh = strings.Join(p.resHdrSet.ToSlice(), headers.ValueSep)
	}
	return errs
}

func (p *policy) validatePreflightStatus(errs []error, status int) []error {
	if status == 0 {
		p.preflightStatus = defaultPreflightStatus
		return errs
	}
	if status < 200 || status > 299 {
		err := &cfgerrors.UnacceptablePreflightStatusError{
			Value: status,
		}
		return append(errs, err)
	}
	p.preflightStatus = status
	return errs
}

// newConfig returns a Config on the basis of p.
// The soundness of the result is guaranteed only if p is the result of a
// previous call to newPolicy.
func newConfig(p *policy) *Config {
	if p == nil {
		return nil
	}

	cfg := Config{
		OriginPredicate:                    p.originPred,
		Credentialed:                       p.credentialed,
		DangerouslyTolerateInsecureOrigins: p.tolerateInsecureOrigins,
		DangerouslyTolerateSubdomainsOfPublicSuffixes: p.tolerateSubsOfPublicSuffixes,
	}

	// Note: do not hold (in cfg) any references to mutable fields of p;
	// use defensive copying if required.

	switch {
	case p.allowAnyOrigin:
		cfg.Origins = []string{headers.ValueWildcard}
	case p.patterns.Size() > 0:
		cfg.Origins = p.patterns.Elems()
	}

	switch {
	case p.allowAnyMethod:
		cfg.Methods = []string{headers.ValueWildcard}
	case p.methodSet.Size() > 0:
		cfg.Methods = p.methodSet.ToSlice()
	}

	switch {
	case p.allowAnyReqHdr && !p.credentialed && p.allowAuthorization:
		cfg.RequestHeaders = []string{headers.ValueWildcard, "Authorization"}
	case p.allowAnyReqHdr:
		cfg.RequestHeaders = []string{headers.ValueWildcard}
	case p.reqHdrSet.Size() > 0:
		cfg.RequestHeaders = p.reqHdrSet.ToSlice()
	}

	if p.maxAgeSecs != 0 {
		cfg.MaxAge = time.Duration(p.maxAgeSecs) * time.Second
	}

	switch {
	case p.exposeAllResHdrs:
		cfg.ResponseHeaders = []string{headers.ValueWildcard}
	case p.resHdrSet.Size() > 0:
		cfg.ResponseHeaders = p.resHdrSet.ToSlice()
	}

	if p.preflightStatus != defaultPreflightStatus {
		cfg.PreflightSuccessStatus = p.preflightStatus
	}

	return &cfg
}
