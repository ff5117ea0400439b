package cors_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const (
	// common request headers
	headerOrigin = "Origin"

	// preflight-only request headers
	headerACRM = "Access-Control-Request-Method"
	headerACRH = "Access-Control-Request-Headers"

	// common response headers
	headerACAO = "Access-Control-Allow-Origin"
	headerACAC = "Access-Control-Allow-Credentials"

	// preflight-only response headers
	headerACAM = "Access-Control-Allow-Methods"
	headerACAH = "Access-Control-Allow-Headers"
	headerACMA = "Access-Control-Max-Age"

	// actual-only response headers
	headerACEH = "Access-Control-Expose-Headers"

	headerVary = "Vary"
)

// Headers represents a set of HTTP-header name-value pairs
// in which there are no duplicate names.
type Headers = map[string]string

// corsResponseHeaders lists every response header this library may produce;
// any of them absent from a test case's expectations must be absent from the
// response.
var corsResponseHeaders = []string{
	headerACAO,
	headerACAC,
	headerACAM,
	headerACAH,
	headerACMA,
	headerACEH,
	headerVary,
}

func newRequest(method string, headers Headers) *http.Request {
	const dummyEndpoint = "https://api.example.com/whatever"
	req := httptest.NewRequest(method, dummyEndpoint, nil)
	for name, value := range headers {
		req.Header.Add(name, value)
	}
	return req
}

// A spyHandler stands in for the innermost handler in the chain; it records
// whether it was invoked and the value (if any) of the test1 cookie.
type spyHandler struct {
	called atomic.Bool
	cookie atomic.Value // of type string
}

func (s *spyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.called.Store(true)
	if c, err := r.Cookie("test1"); err == nil {
		s.cookie.Store(c.Value)
	}
	w.Header().Set("X-Response-Time", "42ms")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok")
}

func (s *spyHandler) cookieSeen() string {
	v, _ := s.cookie.Load().(string)
	return v
}

func assertResponseHeaders(t *testing.T, got http.Header, want Headers) {
	t.Helper()
	for name, value := range want {
		if v := got.Get(name); v != value {
			t.Errorf("%s response header: got %q; want %q", name, v, value)
		}
	}
	for _, name := range corsResponseHeaders {
		if _, expected := want[name]; expected {
			continue
		}
		if v := got.Get(name); v != "" {
			t.Errorf("unexpected %s response header %q", name, v)
		}
	}
}
