/*
Package cors provides [net/http] middleware for
[Cross-Origin Resource Sharing (CORS)].

A single middleware, configured once and composed in front of the entire
routing tree, evaluates every inbound request against an immutable policy:
it short-circuits [CORS-preflight requests] with the configured allow-sets
and forwards everything else to the wrapped handler, after injecting the
appropriate response headers. The middleware itself never rejects a request
with an error status; it only conditionally withholds headers and lets the
browser enforce the policy. This package also performs extensive
configuration validation in order to prevent you from inadvertently creating
dysfunctional or insecure CORS middleware.

Even so, care is required for CORS middleware to work as intended.
Be particularly wary of negative interference from other software components
that play a role in processing requests and composing their responses,
including intermediaries (proxies and gateways), routers, other middleware
in the chain, and the ultimate handler. Follow the rules listed below:

  - Because [CORS-preflight requests] use [OPTIONS] as their method, you
    [SHOULD NOT] prevent OPTIONS requests from reaching your CORS
    middleware. Otherwise, preflight requests will not get properly handled
    and browser-based clients will likely experience CORS-related errors.
  - Because [CORS-preflight requests are not authenticated], authentication
    [SHOULD NOT] take place "ahead of" a CORS middleware (e.g. in a reverse
    proxy or in some middleware further up the chain). However, a CORS
    middleware [MAY] wrap an authentication middleware: the preflight path
    terminates before any such inner stage runs, which is exactly where
    cookie and credential checks belong.
  - Intermediaries [SHOULD NOT] alter or augment the [CORS request headers]
    that are set by browsers, nor the [CORS response headers] that are set
    by this library's middleware.
  - Multiple CORS middleware [MUST NOT] be stacked.

[CORS request headers]: https://developer.mozilla.org/en-US/docs/Web/HTTP/CORS#the_http_request_headers
[CORS response headers]: https://developer.mozilla.org/en-US/docs/Web/HTTP/CORS#the_http_response_headers
[CORS-preflight requests are not authenticated]: https://fetch.spec.whatwg.org/#cors-protocol-and-credentials
[CORS-preflight requests]: https://developer.mozilla.org/en-US/docs/Glossary/Preflight_request
[Cross-Origin Resource Sharing (CORS)]: https://developer.mozilla.org/en-US/docs/Web/HTTP/CORS
[MAY]: https://www.ietf.org/rfc/rfc2119.txt
[MUST NOT]: https://www.ietf.org/rfc/rfc2119.txt
[OPTIONS]: https://developer.mozilla.org/en-US/docs/Web/HTTP/Methods/OPTIONS
[SHOULD NOT]: https://www.ietf.org/rfc/rfc2119.txt
*/
package cors
