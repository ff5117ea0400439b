/*
Package cfgerrors provides functionalities for programmatically handling
configuration errors produced by package [github.com/originpolicy/cors].

Most users of package [github.com/originpolicy/cors] have no use for this
package. However, systems that let their operators or tenants edit CORS
policies at run time (e.g. via a dashboard or a configuration store) may find
it useful for surfacing each configuration mistake as a custom,
human-friendly message.
*/
package cfgerrors

import (
	"fmt"
	"iter"
	"time"
)

// An UnacceptableOriginPatternError indicates an unacceptable origin pattern.
// The Reason field may take one of three values:
//   - "missing": neither an origin pattern nor an origin predicate was
//     specified;
//   - "invalid": the origin pattern is invalid;
//   - "prohibited": the origin pattern is prohibited by this library.
//
// For more details, see [github.com/originpolicy/cors.Config.Origins].
type UnacceptableOriginPatternError struct {
	Value  string // the unacceptable value that was specified
	Reason string // missing | invalid | prohibited
}

func (err *UnacceptableOriginPatternError) Error() string {
	if err.Reason == "missing" {
		return "cors: at least one origin pattern or an origin predicate must be specified"
	}
	const tmpl = "cors: %s origin pattern %q"
	return fmt.Sprintf(tmpl, err.Reason, err.Value)
}

// An IncompatibleOriginPatternError indicates an origin pattern that
// conflicts with other elements of the configuration.
// Two cases are possible:
//   - Reason == "credentialed": the wildcard origin pattern, or (absent
//     [github.com/originpolicy/cors.Config.DangerouslyTolerateInsecureOrigins])
//     an insecure origin pattern, was specified together with credentialed
//     access;
//   - Reason == "psl": an origin pattern that encompasses arbitrary
//     subdomains of a public suffix was specified without also setting
//     [github.com/originpolicy/cors.Config.DangerouslyTolerateSubdomainsOfPublicSuffixes].
type IncompatibleOriginPatternError struct {
	Value  string // "*" | some other origin pattern
	Reason string // credentialed | psl
}

func (err *IncompatibleOriginPatternError) Error() string {
	switch {
	case err.Value == "*" && err.Reason == "credentialed":
		return "cors: for security reasons, you cannot both allow all origins and enable credentialed access"
	case err.Reason == "credentialed":
		const tmpl = "cors: for security reasons, insecure origin patterns like %q are by default prohibited when credentialed access is enabled"
		return fmt.Sprintf(tmpl, err.Value)
	case err.Reason == "psl":
		const tmpl = "cors: for security reasons, origin patterns like %q that encompass subdomains of a public suffix are by default prohibited"
		return fmt.Sprintf(tmpl, err.Value)
	default:
		// We never produce such errors; this case only exists to make the
		// compiler happy.
		return "cors: unknown issue"
	}
}

// An UnacceptableMethodError indicates an unacceptable method.
// The Reason field may take one of two values:
//   - "invalid": the method is invalid;
//   - "forbidden": the method is forbidden by [the Fetch standard].
//
// For more details, see [github.com/originpolicy/cors.Config.Methods].
//
// [the Fetch standard]: https://fetch.spec.whatwg.org
type UnacceptableMethodError struct {
	Value  string // the unacceptable value that was specified
	Reason string // invalid | forbidden
}

func (err *UnacceptableMethodError) Error() string {
	const tmpl = "cors: %s method %q"
	return fmt.Sprintf(tmpl, err.Reason, err.Value)
}

// An UnacceptableHeaderNameError indicates an unacceptable header name.
// The Type field may take one of two values:
//   - "request";
//   - "response".
//
// The Reason field may take one of three values:
//   - "invalid": the header name is invalid;
//   - "forbidden": the header name is forbidden by [the Fetch standard];
//   - "prohibited": the header name is prohibited by this library.
//
// For more details, see [github.com/originpolicy/cors.Config.RequestHeaders]
// and [github.com/originpolicy/cors.Config.ResponseHeaders].
//
// [the Fetch standard]: https://fetch.spec.whatwg.org
type UnacceptableHeaderNameError struct {
	Value  string // the unacceptable value that was specified
	Type   string // request | response
	Reason string // invalid | forbidden | prohibited
}

func (err *UnacceptableHeaderNameError) Error() string {
	const tmpl = "cors: %s %s-header name %q"
	return fmt.Sprintf(tmpl, err.Reason, err.Type, err.Value)
}

// An IncompatibleWildcardResponseHeaderNameError indicates an attempt
// to both expose all response headers and enable credentialed access.
// For more details, see
// [github.com/originpolicy/cors.Config.ResponseHeaders].
type IncompatibleWildcardResponseHeaderNameError struct{}

func (*IncompatibleWildcardResponseHeaderNameError) Error() string {
	return "cors: you cannot both expose all response headers and enable credentialed access"
}

// A MaxAgeOutOfBoundsError indicates a max-age value that this library
// cannot represent on the wire or that browsers would refuse to honor.
//
// For more details, see [github.com/originpolicy/cors.Config.MaxAge].
type MaxAgeOutOfBoundsError struct {
	Value time.Duration // the unacceptable value that was specified
	Max   time.Duration // maximum max-age value permitted by this library
}

func (err *MaxAgeOutOfBoundsError) Error() string {
	const tmpl = "cors: out-of-bounds max-age value %v (max: %v; must be a whole number of seconds)"
	return fmt.Sprintf(tmpl, err.Value, err.Max)
}

// An UnacceptablePreflightStatusError indicates a custom preflight-success
// status that falls outside the 2xx range. Browsers fail the CORS-preflight
// check for any other status class.
//
// For more details, see
// [github.com/originpolicy/cors.ExtraConfig.PreflightSuccessStatus].
type UnacceptablePreflightStatusError struct {
	Value int // the unacceptable value that was specified
}

func (err *UnacceptablePreflightStatusError) Error() string {
	const tmpl = "cors: preflight-success status %d is not a 2xx status"
	return fmt.Sprintf(tmpl, err.Value)
}

// All returns an iterator over the CORS-configuration errors contained in
// err's error tree. The order is unspecified and may change from one release
// to the next. All only supports error values returned by
// [github.com/originpolicy/cors.NewMiddleware] and
// [github.com/originpolicy/cors.Middleware.Reconfigure]; it should not be
// called on any other error value.
func All(err error) iter.Seq[error] {
	return func(yield func(error) bool) {
		every(err, yield)
	}
}

func every(err error, f func(error) bool) bool {
	switch err := err.(type) {
	// Note that there's no need for any "interface { Unwrap() error }" case
	// because nowhere do we "wrap" errors; we only ever "join" them.
	case interface{ Unwrap() []error }:
		for _, err := range err.Unwrap() {
			if !every(err, f) {
				return false
			}
		}
		return true
	default:
		return f(err)
	}
}
