package garbagecollector_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/distribution/reference"
	manifestv1 "github.com/octohelm/regkit/pkg/apis/manifest/v1"
	"github.com/octohelm/regkit/pkg/content"
	contentfs "github.com/octohelm/regkit/pkg/content/fs"
	"github.com/octohelm/regkit/pkg/content/fs/driver"
	"github.com/octohelm/regkit/pkg/content/fs/garbagecollector"
	"github.com/octohelm/regkit/pkg/content/fs/layout"
	"github.com/octohelm/unifs/pkg/filesystem/local"
	"github.com/octohelm/x/ptr"
	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"
	specv1 "github.com/opencontainers/image-spec/specs-go/v1"
)

type fixture struct {
	tmp string
	ns  content.Namespace
	d   driver.Driver

	repo      content.Repository
	blobs     content.BlobStore
	manifests content.ManifestService
	tags      content.TagService
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()

	tmp := t.TempDir()
	t.Cleanup(func() {
		_ = os.RemoveAll(tmp)
	})

	fs := local.NewFS(tmp)
	ns := contentfs.NewNamespace(fs)

	ctx := context.Background()

	named, err := reference.WithName(name)
	testingx.Expect(t, err, testingx.Be[error](nil))

	repo, err := ns.Repository(ctx, named)
	testingx.Expect(t, err, testingx.Be[error](nil))

	blobs, err := repo.Blobs(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	manifests, err := repo.Manifests(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	tags, err := repo.Tags(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	return &fixture{
		tmp:       tmp,
		ns:        ns,
		d:         driver.FromFileSystem(fs),
		repo:      repo,
		blobs:     blobs,
		manifests: manifests,
		tags:      tags,
	}
}

func (f *fixture) putBlob(t *testing.T, raw []byte) manifestv1.Descriptor {
	t.Helper()

	ctx := context.Background()

	w, err := f.blobs.Writer(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))
	defer w.Close()

	_, err = w.Write(raw)
	testingx.Expect(t, err, testingx.Be[error](nil))

	d, err := w.Commit(ctx, manifestv1.Descriptor{})
	testingx.Expect(t, err, testingx.Be[error](nil))

	return *d
}

func (f *fixture) putManifest(t *testing.T, config manifestv1.Descriptor, layers ...manifestv1.Descriptor) digest.Digest {
	t.Helper()

	ctx := context.Background()

	dgst, err := f.manifests.Put(ctx, manifestv1.OciManifest{
		MediaType: specv1.MediaTypeImageManifest,
		Config:    config,
		Layers:    layers,
	})
	testingx.Expect(t, err, testingx.Be[error](nil))

	return dgst
}

func TestMarkAndSweep(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, "test/app")

	config := f.putBlob(t, []byte(`{"architecture":"amd64"}`))
	layerKept := f.putBlob(t, []byte("layer-kept"))
	layerDangling := f.putBlob(t, []byte("layer-dangling"))

	tagged := f.putManifest(t, config, layerKept)
	untagged := f.putManifest(t, config, layerDangling)

	info, err := f.manifests.Info(ctx, tagged)
	testingx.Expect(t, err, testingx.Be[error](nil))
	testingx.Expect(t, f.tags.Tag(ctx, "latest", *info), testingx.Be[error](nil))

	t.Run("dry run removes nothing", func(t *testing.T) {
		err := garbagecollector.MarkAndSweepExcludeModifiedIn(ctx, f.ns, f.d, 0, true)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = f.manifests.Info(ctx, untagged)
		testingx.Expect(t, err, testingx.Be[error](nil))
	})

	t.Run("recently modified entries survive", func(t *testing.T) {
		err := garbagecollector.MarkAndSweepExcludeModifiedIn(ctx, f.ns, f.d, time.Hour, false)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = f.manifests.Info(ctx, untagged)
		testingx.Expect(t, err, testingx.Be[error](nil))
	})

	t.Run("full sweep keeps only the tagged graph", func(t *testing.T) {
		err := garbagecollector.MarkAndSweepExcludeModifiedIn(ctx, f.ns, f.d, 0, false)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = f.manifests.Info(ctx, tagged)
		testingx.Expect(t, err, testingx.Be[error](nil))

		d, err := f.tags.Get(ctx, "latest")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d.Digest, testingx.Be(tagged))

		_, err = f.blobs.Info(ctx, layerKept.Digest)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = f.manifests.Info(ctx, untagged)
		testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrManifestUnknownRevision{})), testingx.Be(true))

		_, err = f.blobs.Info(ctx, layerDangling.Digest)
		testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrBlobUnknown{})), testingx.Be(true))
	})
}

func TestMarkAndSweepAbortsOnBrokenMark(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, "test/broken")

	config := f.putBlob(t, []byte(`{"architecture":"amd64"}`))
	layer := f.putBlob(t, []byte("layer-contents"))
	orphan := f.putBlob(t, []byte("orphaned-but-safe"))

	dgst := f.putManifest(t, config, layer)

	info, err := f.manifests.Info(ctx, dgst)
	testingx.Expect(t, err, testingx.Be[error](nil))
	testingx.Expect(t, f.tags.Tag(ctx, "latest", *info), testingx.Be[error](nil))

	// break the revision link behind the tag; marking can no longer resolve it
	named := f.repo.Named()
	revisionPath := filepath.Join(f.tmp, layout.Default.RepositoryManifestRevisionPath(named, dgst))
	testingx.Expect(t, os.RemoveAll(revisionPath), testingx.Be[error](nil))

	err = garbagecollector.MarkAndSweepExcludeModifiedIn(ctx, f.ns, f.d, 0, false)
	testingx.Expect(t, err, testingx.NotBe[error](nil))

	// an aborted run sweeps nothing, even obvious garbage
	_, err = f.blobs.Info(ctx, orphan.Digest)
	testingx.Expect(t, err, testingx.Be[error](nil))
}

func TestExecutorPurgesStaleUploads(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, "test/uploads")

	stale, err := f.blobs.Writer(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))
	_, _ = stale.Write([]byte("went-away"))
	testingx.Expect(t, stale.Close(), testingx.Be[error](nil))

	fresh, err := f.blobs.Writer(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))
	_, _ = fresh.Write([]byte("still-going"))
	testingx.Expect(t, fresh.Close(), testingx.Be[error](nil))

	// age the first session past the expiry window
	startedAtPath := filepath.Join(f.tmp, layout.Default.UploadStartedAtPath(stale.ID()))
	old := time.Now().Add(-3 * time.Hour).Format(time.RFC3339)
	testingx.Expect(t, os.WriteFile(startedAtPath, []byte(old), 0o644), testingx.Be[error](nil))

	e := &garbagecollector.Executor{}

	ectx := content.NamespaceContext.Inject(ctx, f.ns)
	ectx = driver.InjectContext(ectx, f.d)

	testingx.Expect(t, e.Init(ectx), testingx.Be[error](nil))
	testingx.Expect(t, e.Run(ectx), testingx.Be[error](nil))

	_, err = f.blobs.Resume(ctx, stale.ID())
	testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrBlobUploadUnknown{})), testingx.Be(true))

	resumed, err := f.blobs.Resume(ctx, fresh.ID())
	testingx.Expect(t, err, testingx.Be[error](nil))
	_ = resumed.Close()
}
