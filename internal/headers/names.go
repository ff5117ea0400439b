package headers

import "strings"

// IsForbiddenRequestHeaderName reports whether name is a
// forbidden request-header name [per the Fetch standard].
// Browsers never let client code attach such headers to a request,
// so allowing them in a CORS configuration is at best pointless.
//
// Precondition: name is a valid and [byte-lowercase] header name.
//
// [byte-lowercase]: https://infra.spec.whatwg.org/#byte-lowercase
// [per the Fetch standard]: https://fetch.spec.whatwg.org/#forbidden-header-name
func IsForbiddenRequestHeaderName(name string) bool {
	switch name {
	case "accept-charset",
		"accept-encoding",
		"access-control-request-headers",
		"access-control-request-method",
		"connection",
		"content-length",
		"cookie",
		"cookie2",
		"date",
		"dnt",
		"expect",
		"host",
		"keep-alive",
		"origin",
		"referer",
		"set-cookie",
		"te",
		"trailer",
		"transfer-encoding",
		"upgrade",
		"via":
		return true
	default:
		return strings.HasPrefix(name, "proxy-") ||
			strings.HasPrefix(name, "sec-")
	}
}

// IsProhibitedRequestHeaderName reports whether name is a prohibited
// request-header name. Attempts to allow such request headers almost
// always stem from some misunderstanding of CORS.
//
// Precondition: name is a valid and [byte-lowercase] header name.
//
// [byte-lowercase]: https://infra.spec.whatwg.org/#byte-lowercase
func IsProhibitedRequestHeaderName(name string) bool {
	switch name {
	case "access-control-allow-origin",
		"access-control-allow-credentials",
		"access-control-allow-methods",
		"access-control-allow-headers",
		"access-control-max-age",
		"access-control-expose-headers":
		return true
	default:
		return false
	}
}

// IsForbiddenResponseHeaderName reports whether name is a
// forbidden response-header name [per the Fetch standard].
//
// Precondition: name is a valid and [byte-lowercase] header name.
//
// [byte-lowercase]: https://infra.spec.whatwg.org/#byte-lowercase
// [per the Fetch standard]: https://fetch.spec.whatwg.org/#forbidden-response-header-name
func IsForbiddenResponseHeaderName(name string) bool {
	switch name {
	case "set-cookie",
		"set-cookie2":
		return true
	default:
		return false
	}
}

// IsProhibitedResponseHeaderName reports whether name is a prohibited
// response-header name. Attempts to expose such response headers almost
// always stem from some misunderstanding of CORS.
//
// Precondition: name is a valid and [byte-lowercase] header name.
//
// [byte-lowercase]: https://infra.spec.whatwg.org/#byte-lowercase
func IsProhibitedResponseHeaderName(name string) bool {
	switch name {
	case "origin",
		"access-control-request-method",
		"access-control-request-headers",
		"access-control-allow-methods",
		"access-control-allow-headers",
		"access-control-max-age":
		return true
	default:
		return false
	}
}

// IsSafelistedResponseHeaderName reports whether name is a
// safelisted response-header name [per the Fetch standard].
// Such headers are always visible to client code and need not be exposed.
//
// Precondition: name is a valid and [byte-lowercase] header name.
//
// [byte-lowercase]: https://infra.spec.whatwg.org/#byte-lowercase
// [per the Fetch standard]: https://fetch.spec.whatwg.org/#cors-safelisted-response-header-name
func IsSafelistedResponseHeaderName(name string) bool {
	switch name {
	case "cache-control",
		"content-language",
		"content-length",
		"content-type",
		"expires",
		"last-modified",
		"pragma":
		return true
	default:
		return false
	}
}
