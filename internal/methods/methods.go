// Package methods provides method-related checks
// required for CORS-configuration validation.
package methods

import (
	"net/http"

	"github.com/originpolicy/cors/internal/util"
	"golang.org/x/net/http/httpguts"
)

// IsValid reports whether name is a valid method, [per the Fetch standard].
//
// [per the Fetch standard]: https://fetch.spec.whatwg.org/#concept-method
func IsValid(name string) bool {
	// Note: the production is identical to that of header names.
	return httpguts.ValidHeaderFieldName(name)
}

// IsForbidden reports whether name is a forbidden method,
// [per the Fetch standard].
//
// [per the Fetch standard]: https://fetch.spec.whatwg.org/#forbidden-method
func IsForbidden(name string) bool {
	switch util.ByteLowercase(name) {
	case "connect", "trace", "track":
		return true
	default:
		return false
	}
}

// Normalize byte-uppercases name if the result is one of the well-known
// methods, [as the Fetch standard prescribes]; otherwise, it returns name
// unchanged, since method names are case-sensitive in general.
//
// [as the Fetch standard prescribes]: https://fetch.spec.whatwg.org/#concept-method-normalize
func Normalize(name string) string {
	uppercased := util.ByteUppercase(name)
	switch uppercased {
	case http.MethodDelete,
		http.MethodGet,
		http.MethodHead,
		http.MethodOptions,
		http.MethodPost,
		http.MethodPut:
		return uppercased
	default:
		return name
	}
}
