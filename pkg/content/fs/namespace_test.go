package fs_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/distribution/reference"
	manifestv1 "github.com/octohelm/regkit/pkg/apis/manifest/v1"
	"github.com/octohelm/regkit/pkg/content"
	contentfs "github.com/octohelm/regkit/pkg/content/fs"
	"github.com/octohelm/unifs/pkg/filesystem/local"
	"github.com/octohelm/x/ptr"
	testingx "github.com/octohelm/x/testing"
	specv1 "github.com/opencontainers/image-spec/specs-go/v1"
)

func TestNamespace(t *testing.T) {
	tmp := t.TempDir()
	t.Cleanup(func() {
		_ = os.RemoveAll(tmp)
	})

	ctx := context.Background()

	ns := contentfs.NewNamespace(local.NewFS(tmp))

	named, err := reference.WithName("test/app")
	testingx.Expect(t, err, testingx.Be[error](nil))

	repo, err := ns.Repository(ctx, named)
	testingx.Expect(t, err, testingx.Be[error](nil))

	blobs, err := repo.Blobs(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	manifests, err := repo.Manifests(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	putBlob := func(t *testing.T, raw []byte) manifestv1.Descriptor {
		t.Helper()

		w, err := blobs.Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer w.Close()

		_, err = w.Write(raw)
		testingx.Expect(t, err, testingx.Be[error](nil))

		d, err := w.Commit(ctx, manifestv1.Descriptor{})
		testingx.Expect(t, err, testingx.Be[error](nil))

		return *d
	}

	configDesc := putBlob(t, []byte(`{"architecture":"amd64"}`))
	layerDesc := putBlob(t, []byte("layer-contents"))

	t.Run("manifest referencing a missing blob is rejected whole", func(t *testing.T) {
		m := manifestv1.OciManifest{
			MediaType: specv1.MediaTypeImageManifest,
			Config:    configDesc,
			Layers: []manifestv1.Descriptor{
				{Digest: "sha256:1b0f66f8c4464296a323f93ad39c9fc70054f24a23452eaf52440858c025967b", Size: 1},
			},
		}

		_, err := manifests.Put(ctx, m)
		testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrManifestBlobUnknown{})), testingx.Be(true))
	})

	t.Run("manifest with all blobs present is accepted", func(t *testing.T) {
		m := manifestv1.OciManifest{
			MediaType: specv1.MediaTypeImageManifest,
			Config:    configDesc,
			Layers:    []manifestv1.Descriptor{layerDesc},
		}

		dgst, err := manifests.Put(ctx, m)
		testingx.Expect(t, err, testingx.Be[error](nil))

		got, err := manifests.Get(ctx, dgst)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, got.Type(), testingx.Be(specv1.MediaTypeImageManifest))

		t.Run("tags", func(t *testing.T) {
			tags, err := repo.Tags(ctx)
			testingx.Expect(t, err, testingx.Be[error](nil))

			info, err := manifests.Info(ctx, dgst)
			testingx.Expect(t, err, testingx.Be[error](nil))

			err = tags.Tag(ctx, "latest", *info)
			testingx.Expect(t, err, testingx.Be[error](nil))

			d, err := tags.Get(ctx, "latest")
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, d.Digest, testingx.Be(dgst))

			all, err := tags.All(ctx)
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, all, testingx.Equal([]string{"latest"}))

			t.Run("revisions recorded per tag", func(t *testing.T) {
				revisions, ok := tags.(content.TagRevisionIterable)
				testingx.Expect(t, ok, testingx.Be(true))

				count := 0
				for ld, err := range revisions.TagRevisions(ctx, "latest") {
					testingx.Expect(t, err, testingx.Be[error](nil))
					testingx.Expect(t, ld.Digest, testingx.Be(dgst))
					count++
				}
				testingx.Expect(t, count, testingx.Be(1))
			})

			t.Run("untag removes only the tag", func(t *testing.T) {
				err := tags.Untag(ctx, "latest")
				testingx.Expect(t, err, testingx.Be[error](nil))

				_, err = tags.Get(ctx, "latest")
				testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrTagUnknown{})), testingx.Be(true))

				_, err = manifests.Info(ctx, dgst)
				testingx.Expect(t, err, testingx.Be[error](nil))
			})
		})

		t.Run("repository names enumerated from disk", func(t *testing.T) {
			iterable, ok := ns.(content.RepositoryNameIterable)
			testingx.Expect(t, ok, testingx.Be(true))

			names := make([]string, 0)
			for named, err := range iterable.RepositoryNames(ctx) {
				testingx.Expect(t, err, testingx.Be[error](nil))
				names = append(names, named.Name())
			}
			testingx.Expect(t, names, testingx.Equal([]string{"test/app"}))
		})
	})
}
