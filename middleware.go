package cors

import (
	"net/http"
	"sync/atomic"

	"github.com/originpolicy/cors/internal/headers"
	"github.com/originpolicy/cors/internal/origins"
)

// A Middleware is a CORS middleware.
// Call its [*Middleware.Wrap] method to apply it to a [http.Handler].
//
// The zero value is ready to use but is a mere "passthrough" middleware,
// i.e. a middleware that simply delegates to the handler(s) it wraps.
// To obtain a proper CORS middleware, call [NewMiddleware] with a valid
// [Config].
//
// A Middleware must not be copied after first use.
//
// Middleware are safe for concurrent use by multiple goroutines; in
// particular, you can reconfigure a Middleware (via its
// [*Middleware.Reconfigure] method) even as it's processing requests.
type Middleware struct {
	policy atomic.Pointer[policy]
}

// NewMiddleware creates a CORS middleware that behaves in accordance with
// cfg. If cfg is invalid, it returns a nil [*Middleware] and some non-nil
// error; configuration mistakes never surface later, on the request path.
//
// Mutating the fields of cfg after NewMiddleware has returned a functioning
// middleware does not alter the latter's behavior.
//
// If you need to programmatically handle the configuration errors
// constitutive of the resulting error, rely on package
// [github.com/originpolicy/cors/cfgerrors].
func NewMiddleware(cfg Config) (*Middleware, error) {
	p, err := newPolicy(&cfg)
	if err != nil {
		return nil, err
	}
	var m Middleware
	m.policy.Store(p)
	return &m, nil
}

// Reconfigure reconfigures m in accordance with cfg.
// If cfg is nil, it turns m into a passthrough middleware.
// If *cfg is invalid, it leaves m unchanged and returns some non-nil error.
// The following statement is guaranteed to be a no-op
// (albeit a relatively expensive one):
//
//	m.Reconfigure(m.Config())
//
// Rather than diff the new configuration against the current one,
// Reconfigure compiles a fresh policy from scratch; a successful compilation
// is then published with a single atomic pointer swap, so in-flight requests
// observe either the old policy or the new one, never a mix of both.
//
// Mutating the fields of cfg after Reconfigure has returned does not alter
// m's behavior.
//
// If you need to programmatically handle the configuration errors
// constitutive of the resulting error, rely on package
// [github.com/originpolicy/cors/cfgerrors].
func (m *Middleware) Reconfigure(cfg *Config) error {
	p, err := newPolicy(cfg)
	if err != nil {
		return err
	}
	m.policy.Store(p)
	return nil
}

// Config returns a pointer to a deep copy of m's current configuration;
// if m is a passthrough middleware, it simply returns nil.
// The result may differ from the [Config] with which m was created or last
// reconfigured, but the following statement is guaranteed to be a no-op
// (albeit a relatively expensive one):
//
//	m.Reconfigure(m.Config())
//
// Mutating the fields of the result does not alter m's behavior.
func (m *Middleware) Config() *Config {
	return newConfig(m.policy.Load())
}

// Wrap applies the CORS middleware to the specified handler.
//
// The resulting handler injects all response headers before h gets a chance
// to write any response bytes, and never invokes h for preflight requests.
func (m *Middleware) Wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := m.policy.Load()
		if p == nil { // passthrough middleware
			h.ServeHTTP(w, r)
			return
		}
		isOPTIONS := r.Method == http.MethodOptions
		// Fetch-compliant browsers send at most one Origin header;
		// see https://fetch.spec.whatwg.org/#http-network-or-cache-fetch
		// (step 12).
		origin, originSgl, found := headers.First(r.Header, headers.Origin)
		if !found {
			// r is NOT a CORS request: same-origin requests are never
			// subject to CORS; see https://fetch.spec.whatwg.org/#cors-request.
			p.handleNonCORS(w.Header(), isOPTIONS)
			h.ServeHTTP(w, r)
			return
		}
		// Fetch-compliant browsers send at most one ACRM header;
		// see https://fetch.spec.whatwg.org/#cors-preflight-fetch (step 3).
		_, acrmSgl, found := headers.First(r.Header, headers.ACRM)
		if isOPTIONS && found {
			// r is a CORS-preflight request;
			// see https://fetch.spec.whatwg.org/#cors-preflight-request.
			p.handlePreflight(w, r.Header, origin, originSgl, acrmSgl)
			return
		}
		// r is an "actual" (i.e. non-preflight) CORS request.
		p.handleActual(w.Header(), origin, originSgl, isOPTIONS)
		h.ServeHTTP(w, r)
	})
}

// originAllowed reports whether the policy allows the specified origin,
// consulting first the configured patterns, then the origin predicate
// (if any). Syntactically invalid origins are never allowed; in particular,
// the predicate is never handed a value unfit for verbatim echoing.
func (p *policy) originAllowed(origin string) bool {
	o, ok := origins.Parse(origin)
	if !ok {
		return false
	}
	if p.patterns.Contains(&o) {
		return true
	}
	return p.originPred != nil && p.originPred(origin)
}

func (p *policy) handleNonCORS(resHdrs http.Header, isOPTIONS bool) {
	if p.allowAnyOrigin || isOPTIONS {
		return
	}
	// Responses from restricted-origin policies depend on the Origin header
	// even when the request carries none; Web caches need to know that.
	// See https://fetch.spec.whatwg.org/#cors-protocol-and-http-caches.
	//
	// Note that we must add rather than set a Vary header here, because
	// outer middleware may have already added/set a Vary header, which we
	// wouldn't want to clobber.
	resHdrs.Add(headers.Vary, headers.Origin)
}

// Note: only for _non-preflight_ CORS requests
func (p *policy) handleActual(
	resHdrs http.Header,
	origin string,
	originSgl []string,
	isOPTIONS bool,
) {
	// No precomputed slices on this path: the wrapped handler could mutate
	// them through the response-header map.
	// See https://github.com/rs/cors/issues/198.
	if p.allowAnyOrigin {
		resHdrs.Set(headers.ACAO, headers.ValueWildcard)
	} else {
		if !isOPTIONS {
			// See https://fetch.spec.whatwg.org/#cors-protocol-and-http-caches.
			resHdrs.Add(headers.Vary, headers.Origin)
		}
		if p.originAllowed(origin) {
			// The allowed origin is echoed verbatim, never replaced by a
			// wildcard; with credentials, a wildcard would be invalid anyway.
			resHdrs[headers.ACAO] = originSgl
			if p.credentialed {
				// Whether the request actually carries credentials is not
				// reliably observable on the server; the opt-in applies
				// whenever the origin is allowed.
				// See https://fetch.spec.whatwg.org/#example-xhr-credentials.
				resHdrs.Set(headers.ACAC, headers.ValueTrue)
			}
		}
		// A disallowed origin is not a server-side error: the absence of
		// Access-Control-Allow-Origin is rejection signal enough for
		// browsers, and non-browser clients remain unaffected. The wrapped
		// handler runs either way.
	}
	if p.aceh != "" {
		resHdrs.Set(headers.ACEH, p.aceh)
	}
}

func (p *policy) handlePreflight(
	w http.ResponseWriter,
	reqHdrs http.Header,
	origin string,
	originSgl []string,
	acrmSgl []string,
) {
	// Preflight requests never carry credentials and never reach the
	// wrapped handler; no cookie or authentication check may run on this
	// path. A non-2xx status here would make the browser abort the actual
	// request before it is ever sent.
	//
	// The response reflects the full configured allow-sets rather than just
	// what was requested; mismatches are left for the browser to reject.
	// This keeps preflight responses deterministic and cacheable for the
	// full max-age.
	//
	// Because the wrapped handler is never invoked on this path, we can
	// safely rely, for performance, on some precomputed slices for
	// adding/setting headers.
	resHdrs := w.Header()

	if p.allowAnyOrigin {
		resHdrs[headers.ACAO] = headers.WildcardSgl
	} else if p.originAllowed(origin) {
		resHdrs[headers.ACAO] = originSgl
		if p.credentialed {
			resHdrs[headers.ACAC] = headers.TrueSgl
		}
	}

	switch {
	case p.allowAnyMethod && !p.credentialed:
		resHdrs[headers.ACAM] = headers.WildcardSgl
	case p.allowAnyMethod:
		// Browsers interpret a wildcard literally on credentialed requests,
		// so echo the requested method instead.
		resHdrs[headers.ACAM] = acrmSgl
	case p.acam != "":
		resHdrs.Set(headers.ACAM, p.acam)
	}

	switch {
	case p.allowAnyReqHdr && !p.credentialed:
		// The wildcard does not cover request-header name Authorization;
		// see https://fetch.spec.whatwg.org/#cors-non-wildcard-request-header-name.
		if p.allowAuthorization {
			resHdrs[headers.ACAH] = headers.WildcardAuthSgl
		} else {
			resHdrs[headers.ACAH] = headers.WildcardSgl
		}
	case p.allowAnyReqHdr:
		// Every requested header is allowed, but a literal wildcard is
		// meaningless to credentialed requests; reflect the request's ACRH
		// header lines instead. Browsers accept multiple ACAH header lines;
		// see https://fetch.spec.whatwg.org/#cors-preflight-fetch-0.
		if acrh, found := reqHdrs[headers.ACRH]; found {
			resHdrs[headers.ACAH] = acrh
		}
	case p.acah != "":
		resHdrs.Set(headers.ACAH, p.acah)
	}

	if p.acma != nil {
		resHdrs[headers.ACMA] = p.acma
	}
	w.WriteHeader(p.preflightStatus)
}
