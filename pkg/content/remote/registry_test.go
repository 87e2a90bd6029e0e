package remote

import (
	"testing"

	"github.com/distribution/reference"
	testingx "github.com/octohelm/x/testing"
)

func TestRegistryHosts(t *testing.T) {
	hosts := RegistryHosts{
		"gcr.io": {
			Server: "https://gcr.io",
		},
	}

	t.Run("short name falls back to docker hub under library", func(t *testing.T) {
		named, err := reference.WithName("nginx")
		testingx.Expect(t, err, testingx.Be[error](nil))

		n, rh, err := hosts.Resolve(t.Context(), named)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, rh.Server, testingx.Be("https://registry-1.docker.io"))
		testingx.Expect(t, n.Name(), testingx.Be("library/nginx"))
	})

	t.Run("docker.io name strips the domain", func(t *testing.T) {
		named, err := reference.WithName("docker.io/x/nginx")
		testingx.Expect(t, err, testingx.Be[error](nil))

		n, rh, err := hosts.Resolve(t.Context(), named)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, rh.Server, testingx.Be("https://registry-1.docker.io"))
		testingx.Expect(t, n.Name(), testingx.Be("x/nginx"))
	})

	t.Run("configured host wins", func(t *testing.T) {
		named, err := reference.WithName("gcr.io/x/nginx")
		testingx.Expect(t, err, testingx.Be[error](nil))

		n, rh, err := hosts.Resolve(t.Context(), named)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, rh.Server, testingx.Be("https://gcr.io"))
		testingx.Expect(t, n.Name(), testingx.Be("x/nginx"))
	})

	t.Run("unknown host resolves to https endpoint", func(t *testing.T) {
		named, err := reference.WithName("quay.io/x/nginx")
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, rh, err := hosts.Resolve(t.Context(), named)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, rh.Server, testingx.Be("https://quay.io"))
	})
}
