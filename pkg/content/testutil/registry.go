package testutil

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/octohelm/courier/pkg/courierhttp/handler/httprouter"
	"github.com/octohelm/unifs/pkg/strfmt"

	"github.com/octohelm/regkit/pkg/content/coordinator"
	"github.com/octohelm/regkit/pkg/registryhttp/apis"
)

// NewRegistry serves the registry apis over a throwaway local store.
func NewRegistry(t testing.TB, patch ...func(c *coordinator.Coordinator)) http.Handler {
	t.Helper()

	c := &coordinator.Coordinator{}

	endpoint, err := strfmt.ParseEndpoint("file://" + t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c.Backend = *endpoint

	for _, p := range patch {
		p(c)
	}

	if err := c.Init(t.Context()); err != nil {
		t.Fatal(err)
	}

	return &registry{coordinator: c}
}

type registry struct {
	coordinator *coordinator.Coordinator
	h           http.Handler
	err         error
	once        sync.Once
}

func (r *registry) ServeHTTP(rw http.ResponseWriter, request *http.Request) {
	r.once.Do(func() {
		h, err := httprouter.New(apis.R, "test-registry")
		if err != nil {
			r.err = err
			return
		}
		r.h = h
	})

	if r.err != nil {
		rw.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(rw, "%s", r.err)
		return
	}

	if strings.HasSuffix(request.URL.Path, "/") {
		request.URL.Path = request.URL.Path[0 : len(request.URL.Path)-1]
	}

	ctx := r.coordinator.InjectContext(request.Context())

	r.h.ServeHTTP(rw, request.WithContext(ctx))
}
