package remote

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/octohelm/x/ptr"
	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"

	"github.com/octohelm/regkit/pkg/content"
)

func TestClientRetry(t *testing.T) {
	requests := &atomic.Int64{}
	status := &atomic.Int64{}

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requests.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	t.Cleanup(s.Close)

	ns, err := New(t.Context(), Registry{Endpoint: s.URL})
	testingx.Expect(t, err, testingx.Be[error](nil))

	repo, err := ns.Repository(t.Context(), content.Name("library/test"))
	testingx.Expect(t, err, testingx.Be[error](nil))

	blobs, err := repo.Blobs(t.Context())
	testingx.Expect(t, err, testingx.Be[error](nil))

	dgst := digest.FromString("anything")

	t.Run("5xx is retried then reported as upstream unavailable", func(t *testing.T) {
		status.Store(http.StatusServiceUnavailable)
		requests.Store(0)

		_, err := blobs.Info(t.Context(), dgst)
		testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrUpstreamUnavailable{})), testingx.Be(true))
		testingx.Expect(t, requests.Load(), testingx.Be(int64(3)))
	})

	t.Run("404 is final and never retried", func(t *testing.T) {
		status.Store(http.StatusNotFound)
		requests.Store(0)

		_, err := blobs.Info(t.Context(), dgst)
		testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrBlobUnknown{})), testingx.Be(true))
		testingx.Expect(t, requests.Load(), testingx.Be(int64(1)))
	})
}
