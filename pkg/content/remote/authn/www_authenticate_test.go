package authn

import (
	"testing"

	testingx "github.com/octohelm/x/testing"
)

func TestWwwAuthenticate(t *testing.T) {
	t.Run("renders with quoted sorted params", func(t *testing.T) {
		a := &WwwAuthenticate{
			AuthType: "Bearer",
			Params: map[string]string{
				"realm":   "http://localhost/token",
				"service": "test",
			},
		}

		testingx.Expect(t, a.String(), testingx.Be(`Bearer realm="http://localhost/token", service="test"`))
	})

	t.Run("parses quoted and bare params", func(t *testing.T) {
		parsed, err := ParseWwwAuthenticate(`Bearer realm="http://localhost/token" service=test`)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, parsed, testingx.Equal(&WwwAuthenticate{
			AuthType: "Bearer",
			Params: map[string]string{
				"realm":   "http://localhost/token",
				"service": "test",
			},
		}))
	})

	t.Run("parses comma separated params with commas inside quotes", func(t *testing.T) {
		parsed, err := ParseWwwAuthenticate(`Digest realm="test@host.com", qop="auth,auth-int", nonce="dcd98b7102dd2f0e8b11d0f600bfb0c093"`)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, parsed, testingx.Equal(&WwwAuthenticate{
			AuthType: "Digest",
			Params: map[string]string{
				"realm": "test@host.com",
				"qop":   "auth,auth-int",
				"nonce": "dcd98b7102dd2f0e8b11d0f600bfb0c093",
			},
		}))
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := ParseWwwAuthenticate("")
		testingx.Expect(t, err, testingx.NotBe[error](nil))
	})

	t.Run("rejects input without auth type", func(t *testing.T) {
		_, err := ParseWwwAuthenticate(`realm="test"`)
		testingx.Expect(t, err, testingx.NotBe[error](nil))
	})
}
