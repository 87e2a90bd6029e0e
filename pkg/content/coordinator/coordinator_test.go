package coordinator_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/distribution/reference"
	"github.com/octohelm/unifs/pkg/strfmt"
	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"
	specv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"golang.org/x/sync/errgroup"

	manifestv1 "github.com/octohelm/regkit/pkg/apis/manifest/v1"
	"github.com/octohelm/regkit/pkg/content"
	"github.com/octohelm/regkit/pkg/content/coordinator"
)

func newCoordinator(t *testing.T, patch func(c *coordinator.Coordinator)) *coordinator.Coordinator {
	t.Helper()

	c := &coordinator.Coordinator{}

	endpoint, err := strfmt.ParseEndpoint("file://" + t.TempDir())
	testingx.Expect(t, err, testingx.Be[error](nil))
	c.Backend = *endpoint

	if patch != nil {
		patch(c)
	}

	err = c.Init(context.Background())
	testingx.Expect(t, err, testingx.Be[error](nil))

	return c
}

func TestCoordinatorRouting(t *testing.T) {
	c := newCoordinator(t, func(c *coordinator.Coordinator) {
		c.Remote.Endpoint = "https://upstream.example.com"
		c.MirrorPatterns = []string{"library/**", "mirrored/*"}
	})

	mirrored, err := reference.WithName("library/nginx")
	testingx.Expect(t, err, testingx.Be[error](nil))
	testingx.Expect(t, c.Mirrored(mirrored), testingx.Be(true))

	alsoMirrored, err := reference.WithName("mirrored/app")
	testingx.Expect(t, err, testingx.Be[error](nil))
	testingx.Expect(t, c.Mirrored(alsoMirrored), testingx.Be(true))

	localOnly, err := reference.WithName("test/app")
	testingx.Expect(t, err, testingx.Be[error](nil))
	testingx.Expect(t, c.Mirrored(localOnly), testingx.Be(false))

	t.Run("without an upstream nothing is mirrored", func(t *testing.T) {
		c := newCoordinator(t, func(c *coordinator.Coordinator) {
			c.MirrorPatterns = []string{"library/**"}
		})

		testingx.Expect(t, c.Mirrored(mirrored), testingx.Be(false))
	})
}

func TestCoordinatorLocalFacet(t *testing.T) {
	ctx := context.Background()

	c := newCoordinator(t, nil)

	named, err := reference.WithName("test/app")
	testingx.Expect(t, err, testingx.Be[error](nil))

	repo, err := c.Namespace().Repository(ctx, named)
	testingx.Expect(t, err, testingx.Be[error](nil))

	blobs, err := repo.Blobs(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	raw := []byte("shared-layer-bytes")
	want := digest.FromBytes(raw)

	t.Run("concurrent identical puts all succeed with one stored copy", func(t *testing.T) {
		eg := &errgroup.Group{}

		for range 8 {
			eg.Go(func() error {
				w, err := blobs.Writer(ctx)
				if err != nil {
					return err
				}
				defer w.Close()

				if _, err := io.Copy(w, bytes.NewBuffer(raw)); err != nil {
					return err
				}

				_, err = w.Commit(ctx, manifestv1.Descriptor{Digest: want})
				return err
			})
		}

		testingx.Expect(t, eg.Wait(), testingx.Be[error](nil))

		d, err := blobs.Info(ctx, want)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d.Digest, testingx.Be(want))
		testingx.Expect(t, d.Size, testingx.Be(int64(len(raw))))
	})

	t.Run("reads stream back under a shared token", func(t *testing.T) {
		r, err := blobs.Open(ctx, want)
		testingx.Expect(t, err, testingx.Be[error](nil))

		data, err := io.ReadAll(r)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, data, testingx.Equal(raw))
		testingx.Expect(t, r.Close(), testingx.Be[error](nil))
	})

	t.Run("manifest put holds every referenced key", func(t *testing.T) {
		m := &manifestv1.OciManifest{}
		m.MediaType = specv1.MediaTypeImageManifest
		m.Config = manifestv1.Descriptor{
			MediaType: specv1.MediaTypeImageConfig,
			Digest:    want,
			Size:      int64(len(raw)),
		}

		manifests, err := repo.Manifests(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		md, err := manifests.Put(ctx, m)
		testingx.Expect(t, err, testingx.Be[error](nil))

		tags, err := repo.Tags(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		err = tags.Tag(ctx, "v1", manifestv1.Descriptor{Digest: md})
		testingx.Expect(t, err, testingx.Be[error](nil))

		d, err := tags.Get(ctx, "v1")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d.Digest, testingx.Be(md))
	})

	t.Run("local facet miss is a miss, no upstream fallback", func(t *testing.T) {
		_, err := blobs.Open(ctx, digest.FromString("never-pushed"))

		cerr := &content.ErrBlobUnknown{}
		testingx.Expect(t, errors.As(err, &cerr), testingx.Be(true))
	})
}
