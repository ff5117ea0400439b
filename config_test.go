package cors_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/originpolicy/cors"
	"github.com/originpolicy/cors/cfgerrors"
)

func TestInvalidConfigs(t *testing.T) {
	cases := []struct {
		desc     string
		cfg      cors.Config
		wantErrs []error
	}{
		{
			desc: "no origin pattern and no origin predicate",
			cfg:  cors.Config{},
			wantErrs: []error{
				&cfgerrors.UnacceptableOriginPatternError{Reason: "missing"},
			},
		}, {
			desc: "wildcard origin pattern with credentialed access",
			cfg: cors.Config{
				Origins:      []string{"*"},
				Credentialed: true,
			},
			wantErrs: []error{
				&cfgerrors.IncompatibleOriginPatternError{
					Value:  "*",
					Reason: "credentialed",
				},
			},
		}, {
			desc: "schemeless origin pattern",
			cfg: cors.Config{
				Origins: []string{"example.com"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableOriginPatternError{
					Value:  "example.com",
					Reason: "invalid",
				},
			},
		}, {
			desc: "null origin",
			cfg: cors.Config{
				Origins: []string{"null"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableOriginPatternError{
					Value:  "null",
					Reason: "prohibited",
				},
			},
		}, {
			desc: "file-scheme origin pattern",
			cfg: cors.Config{
				Origins: []string{"file://somehost"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableOriginPatternError{
					Value:  "file://somehost",
					Reason: "prohibited",
				},
			},
		}, {
			desc: "origin pattern with explicit default port",
			cfg: cors.Config{
				Origins: []string{"https://example.com:443"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableOriginPatternError{
					Value:  "https://example.com:443",
					Reason: "prohibited",
				},
			},
		}, {
			desc: "origin pattern with non-ASCII host",
			cfg: cors.Config{
				Origins: []string{"https://résumé.example"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableOriginPatternError{
					Value:  "https://résumé.example",
					Reason: "invalid",
				},
			},
		}, {
			desc: "origin pattern with host that fails IDNA validation",
			cfg: cors.Config{
				Origins: []string{"https://-foo.example"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableOriginPatternError{
					Value:  "https://-foo.example",
					Reason: "prohibited",
				},
			},
		}, {
			desc: "origin pattern with non-canonical IPv6 host",
			cfg: cors.Config{
				Origins: []string{"http://[0:0:0:0:0:0:0:1]:9090"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableOriginPatternError{
					Value:  "http://[0:0:0:0:0:0:0:1]:9090",
					Reason: "prohibited",
				},
			},
		}, {
			desc: "wildcard subdomains of an IP address",
			cfg: cors.Config{
				Origins: []string{"http://*.127.0.0.1"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableOriginPatternError{
					Value:  "http://*.127.0.0.1",
					Reason: "invalid",
				},
			},
		}, {
			desc: "insecure origin pattern with credentialed access",
			cfg: cors.Config{
				Origins:      []string{"http://example.com"},
				Credentialed: true,
			},
			wantErrs: []error{
				&cfgerrors.IncompatibleOriginPatternError{
					Value:  "http://example.com",
					Reason: "credentialed",
				},
			},
		}, {
			desc: "wildcard subdomains of a public suffix",
			cfg: cors.Config{
				Origins: []string{"https://*.github.io"},
			},
			wantErrs: []error{
				&cfgerrors.IncompatibleOriginPatternError{
					Value:  "https://*.github.io",
					Reason: "psl",
				},
			},
		}, {
			desc: "invalid method",
			cfg: cors.Config{
				Origins: []string{"https://example.com"},
				Methods: []string{"résumé"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableMethodError{
					Value:  "résumé",
					Reason: "invalid",
				},
			},
		}, {
			desc: "forbidden methods",
			cfg: cors.Config{
				Origins: []string{"https://example.com"},
				Methods: []string{"connect", "TRACE", "Track"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableMethodError{
					Value:  "connect",
					Reason: "forbidden",
				},
				&cfgerrors.UnacceptableMethodError{
					Value:  "TRACE",
					Reason: "forbidden",
				},
				&cfgerrors.UnacceptableMethodError{
					Value:  "Track",
					Reason: "forbidden",
				},
			},
		}, {
			desc: "invalid request-header name",
			cfg: cors.Config{
				Origins:        []string{"https://example.com"},
				RequestHeaders: []string{"foo bar"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableHeaderNameError{
					Value:  "foo bar",
					Type:   "request",
					Reason: "invalid",
				},
			},
		}, {
			desc: "forbidden request-header names",
			cfg: cors.Config{
				Origins:        []string{"https://example.com"},
				RequestHeaders: []string{"Cookie", "Sec-Fetch-Mode"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableHeaderNameError{
					Value:  "Cookie",
					Type:   "request",
					Reason: "forbidden",
				},
				&cfgerrors.UnacceptableHeaderNameError{
					Value:  "Sec-Fetch-Mode",
					Type:   "request",
					Reason: "forbidden",
				},
			},
		}, {
			desc: "response-only header name in request headers",
			cfg: cors.Config{
				Origins:        []string{"https://example.com"},
				RequestHeaders: []string{"Access-Control-Allow-Origin"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableHeaderNameError{
					Value:  "Access-Control-Allow-Origin",
					Type:   "request",
					Reason: "prohibited",
				},
			},
		}, {
			desc: "out-of-bounds max age",
			cfg: cors.Config{
				Origins: []string{"https://example.com"},
				MaxAge:  25 * time.Hour,
			},
			wantErrs: []error{
				&cfgerrors.MaxAgeOutOfBoundsError{
					Value: 25 * time.Hour,
					Max:   86400 * time.Second,
				},
			},
		}, {
			desc: "fractional max age",
			cfg: cors.Config{
				Origins: []string{"https://example.com"},
				MaxAge:  1500 * time.Millisecond,
			},
			wantErrs: []error{
				&cfgerrors.MaxAgeOutOfBoundsError{
					Value: 1500 * time.Millisecond,
					Max:   86400 * time.Second,
				},
			},
		}, {
			desc: "wildcard response-header name with credentialed access",
			cfg: cors.Config{
				Origins:         []string{"https://example.com"},
				Credentialed:    true,
				ResponseHeaders: []string{"*"},
			},
			wantErrs: []error{
				&cfgerrors.IncompatibleWildcardResponseHeaderNameError{},
			},
		}, {
			desc: "forbidden response-header name",
			cfg: cors.Config{
				Origins:         []string{"https://example.com"},
				ResponseHeaders: []string{"Set-Cookie"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableHeaderNameError{
					Value:  "Set-Cookie",
					Type:   "response",
					Reason: "forbidden",
				},
			},
		}, {
			desc: "request-only header name in response headers",
			cfg: cors.Config{
				Origins:         []string{"https://example.com"},
				ResponseHeaders: []string{"Access-Control-Request-Method"},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptableHeaderNameError{
					Value:  "Access-Control-Request-Method",
					Type:   "response",
					Reason: "prohibited",
				},
			},
		}, {
			desc: "non-2xx preflight-success status",
			cfg: cors.Config{
				Origins: []string{"https://example.com"},
				ExtraConfig: cors.ExtraConfig{
					PreflightSuccessStatus: http.StatusTeapot,
				},
			},
			wantErrs: []error{
				&cfgerrors.UnacceptablePreflightStatusError{
					Value: http.StatusTeapot,
				},
			},
		}, {
			desc: "multiple faulty fields",
			cfg: cors.Config{
				Origins:      []string{"*"},
				Credentialed: true,
				Methods:      []string{"TRACE"},
				ExtraConfig: cors.ExtraConfig{
					PreflightSuccessStatus: http.StatusMovedPermanently,
				},
			},
			wantErrs: []error{
				&cfgerrors.IncompatibleOriginPatternError{
					Value:  "*",
					Reason: "credentialed",
				},
				&cfgerrors.UnacceptableMethodError{
					Value:  "TRACE",
					Reason: "forbidden",
				},
				&cfgerrors.UnacceptablePreflightStatusError{
					Value: http.StatusMovedPermanently,
				},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			mw, err := cors.NewMiddleware(tc.cfg)
			require.Error(t, err)
			assert.Nil(t, mw)
			var got []error
			for e := range cfgerrors.All(err) {
				got = append(got, e)
			}
			assert.ElementsMatch(t, tc.wantErrs, got)
		})
	}
}

func TestValidConfigsAreToleratedWithFlags(t *testing.T) {
	cases := []struct {
		desc string
		cfg  cors.Config
	}{
		{
			desc: "insecure origin pattern with credentialed access tolerated",
			cfg: cors.Config{
				Origins:                            []string{"http://example.com"},
				Credentialed:                       true,
				DangerouslyTolerateInsecureOrigins: true,
			},
		}, {
			desc: "wildcard subdomains of a public suffix tolerated",
			cfg: cors.Config{
				Origins: []string{"https://*.github.io"},
				DangerouslyTolerateSubdomainsOfPublicSuffixes: true,
			},
		}, {
			desc: "loopback IP with credentialed access",
			cfg: cors.Config{
				Origins:      []string{"http://127.0.0.1:8080"},
				Credentialed: true,
			},
		}, {
			desc: "localhost with credentialed access",
			cfg: cors.Config{
				Origins:      []string{"http://localhost:8080"},
				Credentialed: true,
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			mw, err := cors.NewMiddleware(tc.cfg)
			require.NoError(t, err)
			assert.NotNil(t, mw)
		})
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cases := []struct {
		desc string
		cfg  cors.Config
		want cors.Config // expectation for mw.Config()
	}{
		{
			desc: "well-known methods are normalized to uppercase",
			cfg: cors.Config{
				Origins: []string{"https://example.com"},
				Methods: []string{"get", "post", "GET", "PURGE"},
			},
			want: cors.Config{
				Origins: []string{"https://example.com"},
				Methods: []string{"GET", "POST", "PURGE"},
			},
		}, {
			desc: "request headers are deduplicated case-insensitively",
			cfg: cors.Config{
				Origins:        []string{"https://example.com"},
				RequestHeaders: []string{"X-Foo", "content-type", "x-foo", "X-FOO"},
			},
			want: cors.Config{
				Origins:        []string{"https://example.com"},
				RequestHeaders: []string{"X-Foo", "content-type"},
			},
		}, {
			desc: "safelisted response headers are dropped",
			cfg: cors.Config{
				Origins:         []string{"https://example.com"},
				ResponseHeaders: []string{"Content-Type", "X-Response-Time"},
			},
			want: cors.Config{
				Origins:         []string{"https://example.com"},
				ResponseHeaders: []string{"X-Response-Time"},
			},
		}, {
			desc: "negative max age collapses to minus one second",
			cfg: cors.Config{
				Origins: []string{"https://example.com"},
				MaxAge:  -5 * time.Second,
			},
			want: cors.Config{
				Origins: []string{"https://example.com"},
				MaxAge:  -time.Second,
			},
		}, {
			desc: "wildcard with Authorization survives the round trip",
			cfg: cors.Config{
				Origins:        []string{"https://example.com"},
				RequestHeaders: []string{"Authorization", "*"},
			},
			want: cors.Config{
				Origins:        []string{"https://example.com"},
				RequestHeaders: []string{"*", "Authorization"},
			},
		}, {
			desc: "default preflight-success status is elided",
			cfg: cors.Config{
				Origins: []string{"https://example.com"},
				ExtraConfig: cors.ExtraConfig{
					PreflightSuccessStatus: http.StatusNoContent,
				},
			},
			want: cors.Config{
				Origins: []string{"https://example.com"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			mw, err := cors.NewMiddleware(tc.cfg)
			require.NoError(t, err)
			got := mw.Config()
			require.NotNil(t, got)
			assert.Equal(t, tc.want.Origins, got.Origins)
			assert.Equal(t, tc.want.Credentialed, got.Credentialed)
			assert.Equal(t, tc.want.Methods, got.Methods)
			assert.Equal(t, tc.want.RequestHeaders, got.RequestHeaders)
			assert.Equal(t, tc.want.MaxAge, got.MaxAge)
			assert.Equal(t, tc.want.ResponseHeaders, got.ResponseHeaders)
			assert.Equal(t, tc.want.PreflightSuccessStatus, got.PreflightSuccessStatus)

			// Feeding the result back in must be accepted and stable.
			require.NoError(t, mw.Reconfigure(got))
			assert.Equal(t, got, mw.Config())
		})
	}
}

func TestConfigOfPassthroughMiddleware(t *testing.T) {
	var mw cors.Middleware
	assert.Nil(t, mw.Config())
}
