package mirror_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/distribution/reference"
	"github.com/octohelm/unifs/pkg/filesystem/local"
	"github.com/octohelm/x/ptr"
	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"
	specv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"golang.org/x/sync/errgroup"

	manifestv1 "github.com/octohelm/regkit/pkg/apis/manifest/v1"
	"github.com/octohelm/regkit/pkg/content"
	contentfs "github.com/octohelm/regkit/pkg/content/fs"
	"github.com/octohelm/regkit/pkg/content/mirror"
)

func putBlob(t *testing.T, ctx context.Context, bs content.BlobStore, raw []byte) digest.Digest {
	t.Helper()

	w, err := bs.Writer(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))
	defer w.Close()

	_, err = io.Copy(w, bytes.NewBuffer(raw))
	testingx.Expect(t, err, testingx.Be[error](nil))

	d, err := w.Commit(ctx, manifestv1.Descriptor{})
	testingx.Expect(t, err, testingx.Be[error](nil))

	return d.Digest
}

func TestMirror(t *testing.T) {
	ctx := context.Background()

	upstreamNs := contentfs.NewNamespace(local.NewFS(t.TempDir()))
	localNs := contentfs.NewNamespace(local.NewFS(t.TempDir()))

	named, err := reference.WithName("test/app")
	testingx.Expect(t, err, testingx.Be[error](nil))

	upstreamRepo, err := upstreamNs.Repository(ctx, named)
	testingx.Expect(t, err, testingx.Be[error](nil))
	upstreamBlobs, err := upstreamRepo.Blobs(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	configRaw := []byte(`{"architecture":"amd64"}`)
	layerRaw := []byte("layer-bytes")

	configDigest := putBlob(t, ctx, upstreamBlobs, configRaw)
	layerDigest := putBlob(t, ctx, upstreamBlobs, layerRaw)

	m := &manifestv1.OciManifest{}
	m.MediaType = specv1.MediaTypeImageManifest
	m.Config = manifestv1.Descriptor{
		MediaType: specv1.MediaTypeImageConfig,
		Digest:    configDigest,
		Size:      int64(len(configRaw)),
	}
	m.Layers = []manifestv1.Descriptor{
		{
			MediaType: specv1.MediaTypeImageLayerGzip,
			Digest:    layerDigest,
			Size:      int64(len(layerRaw)),
		},
	}

	upstreamManifests, err := upstreamRepo.Manifests(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))
	manifestDigest, err := upstreamManifests.Put(ctx, m)
	testingx.Expect(t, err, testingx.Be[error](nil))

	upstreamTags, err := upstreamRepo.Tags(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))
	err = upstreamTags.Tag(ctx, "latest", manifestv1.Descriptor{Digest: manifestDigest})
	testingx.Expect(t, err, testingx.Be[error](nil))

	upstream := &countingNamespace{ns: upstreamNs}

	mirrored := mirror.NewFromNamespace(localNs, upstream)

	repo, err := mirrored.Repository(ctx, named)
	testingx.Expect(t, err, testingx.Be[error](nil))
	blobs, err := repo.Blobs(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	t.Run("concurrent pulls of a missing blob fetch upstream once", func(t *testing.T) {
		eg := &errgroup.Group{}

		for range 8 {
			eg.Go(func() error {
				r, err := blobs.Open(ctx, layerDigest)
				if err != nil {
					return err
				}
				defer r.Close()

				data, err := io.ReadAll(r)
				if err != nil {
					return err
				}
				if !bytes.Equal(data, layerRaw) {
					return errors.New("unexpected blob bytes")
				}
				return nil
			})
		}

		testingx.Expect(t, eg.Wait(), testingx.Be[error](nil))
		testingx.Expect(t, upstream.blobOpens.Load(), testingx.Be(int64(1)))

		localRepo, err := localNs.Repository(ctx, named)
		testingx.Expect(t, err, testingx.Be[error](nil))
		localBlobs, err := localRepo.Blobs(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = localBlobs.Info(ctx, layerDigest)
		testingx.Expect(t, err, testingx.Be[error](nil))
	})

	t.Run("cached blob serves without touching upstream again", func(t *testing.T) {
		before := upstream.blobOpens.Load()

		r, err := blobs.Open(ctx, layerDigest)
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer r.Close()

		data, err := io.ReadAll(r)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, data, testingx.Equal(layerRaw))
		testingx.Expect(t, upstream.blobOpens.Load(), testingx.Be(before))
	})

	t.Run("upstream miss stays a miss and caches nothing", func(t *testing.T) {
		unknown := digest.FromString("never-pushed")

		_, err := blobs.Open(ctx, unknown)
		errUnknown := &content.ErrBlobUnknown{}
		testingx.Expect(t, errors.As(err, &errUnknown), testingx.Be(true))

		localRepo, err := localNs.Repository(ctx, named)
		testingx.Expect(t, err, testingx.Be[error](nil))
		localBlobs, err := localRepo.Blobs(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = localBlobs.Info(ctx, unknown)
		testingx.Expect(t, errors.As(err, &errUnknown), testingx.Be(true))
	})

	t.Run("manifest pull caches once referenced blobs are local", func(t *testing.T) {
		// config blob not yet pulled through
		manifests, err := repo.Manifests(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		got, err := manifests.Get(ctx, manifestDigest)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, got.Type(), testingx.Be(specv1.MediaTypeImageManifest))

		r, err := blobs.Open(ctx, configDigest)
		testingx.Expect(t, err, testingx.Be[error](nil))
		_, err = io.ReadAll(r)
		testingx.Expect(t, err, testingx.Be[error](nil))
		_ = r.Close()

		_, err = manifests.Get(ctx, manifestDigest)
		testingx.Expect(t, err, testingx.Be[error](nil))

		localRepo, err := localNs.Repository(ctx, named)
		testingx.Expect(t, err, testingx.Be[error](nil))
		localManifests, err := localRepo.Manifests(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = localManifests.Info(ctx, manifestDigest)
		testingx.Expect(t, err, testingx.Be[error](nil))
	})

	t.Run("tag pull moves the local tag to the upstream digest", func(t *testing.T) {
		tags, err := repo.Tags(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		d, err := tags.Get(ctx, "latest")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d.Digest, testingx.Be(manifestDigest))

		localRepo, err := localNs.Repository(ctx, named)
		testingx.Expect(t, err, testingx.Be[error](nil))
		localTags, err := localRepo.Tags(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		cached, err := localTags.Get(ctx, "latest")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, cached.Digest, testingx.Be(manifestDigest))
	})

	t.Run("tag serves stale from cache when upstream is down", func(t *testing.T) {
		upstream.down.Store(true)
		t.Cleanup(func() {
			upstream.down.Store(false)
		})

		tags, err := repo.Tags(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		d, err := tags.Get(ctx, "latest")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d.Digest, testingx.Be(manifestDigest))
	})

	t.Run("blob miss surfaces unavailable when upstream is down", func(t *testing.T) {
		upstream.down.Store(true)
		t.Cleanup(func() {
			upstream.down.Store(false)
		})

		_, err := blobs.Open(ctx, digest.FromString("missing-while-down"))
		testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrUpstreamUnavailable{})), testingx.Be(true))
	})
}

// countingNamespace fronts an upstream namespace, counting blob opens and
// optionally failing every call as unavailable.
type countingNamespace struct {
	ns content.Namespace

	blobOpens atomic.Int64
	down      atomic.Bool
}

func (c *countingNamespace) Repository(ctx context.Context, named reference.Named) (content.Repository, error) {
	repo, err := c.ns.Repository(ctx, named)
	if err != nil {
		return nil, err
	}
	return &countingRepository{Repository: repo, c: c}, nil
}

type countingRepository struct {
	content.Repository

	c *countingNamespace
}

func (r *countingRepository) Blobs(ctx context.Context) (content.BlobStore, error) {
	bs, err := r.Repository.Blobs(ctx)
	if err != nil {
		return nil, err
	}
	return &countingBlobStore{BlobStore: bs, c: r.c}, nil
}

func (r *countingRepository) Tags(ctx context.Context) (content.TagService, error) {
	tags, err := r.Repository.Tags(ctx)
	if err != nil {
		return nil, err
	}
	return &countingTagService{TagService: tags, c: r.c}, nil
}

type countingBlobStore struct {
	content.BlobStore

	c *countingNamespace
}

func (bs *countingBlobStore) Open(ctx context.Context, dgst digest.Digest) (io.ReadCloser, error) {
	if bs.c.down.Load() {
		return nil, &content.ErrUpstreamUnavailable{Reason: errors.New("connection refused")}
	}
	bs.c.blobOpens.Add(1)
	return bs.BlobStore.Open(ctx, dgst)
}

type countingTagService struct {
	content.TagService

	c *countingNamespace
}

func (ts *countingTagService) Get(ctx context.Context, tag string) (*manifestv1.Descriptor, error) {
	if ts.c.down.Load() {
		return nil, &content.ErrUpstreamUnavailable{Reason: errors.New("connection refused")}
	}
	return ts.TagService.Get(ctx, tag)
}
