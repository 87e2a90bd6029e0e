package mirror

import (
	"context"
	"errors"
	"io"

	"github.com/distribution/reference"
	"github.com/octohelm/x/ptr"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/regkit/pkg/apis/manifest/v1"
	"github.com/octohelm/regkit/pkg/content"
)

var _ content.BlobStore = &blobStore{}

type blobStore struct {
	named reference.Named
	ns    *namespace

	local  content.BlobStore
	remote content.BlobStore
}

func (bs *blobStore) Writer(ctx context.Context) (content.BlobWriter, error) {
	return bs.local.Writer(ctx)
}

func (bs *blobStore) Resume(ctx context.Context, id string) (content.BlobWriter, error) {
	return bs.local.Resume(ctx, id)
}

func (bs *blobStore) Remove(ctx context.Context, dgst digest.Digest) error {
	return bs.local.Remove(ctx, dgst)
}

func (bs *blobStore) Info(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error) {
	desc, err := bs.local.Info(ctx, dgst)
	if err == nil {
		return desc, nil
	}
	if !isBlobUnknown(err) {
		return nil, err
	}
	return bs.remote.Info(ctx, dgst)
}

func (bs *blobStore) Open(ctx context.Context, dgst digest.Digest) (io.ReadCloser, error) {
	blob, err := bs.local.Open(ctx, dgst)
	if err == nil {
		return blob, nil
	}
	if !isBlobUnknown(err) {
		return nil, err
	}

	// one upstream fetch per digest no matter how many pulls are waiting
	if _, err, _ := bs.ns.group.Do("blobs/"+dgst.String(), func() (any, error) {
		return nil, bs.fetch(ctx, dgst)
	}); err != nil {
		return nil, err
	}

	return bs.local.Open(ctx, dgst)
}

func (bs *blobStore) fetch(ctx context.Context, dgst digest.Digest) error {
	// a racing pull may have filled the cache already
	if _, err := bs.local.Info(ctx, dgst); err == nil {
		return nil
	}

	src, err := bs.remote.Open(ctx, dgst)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := bs.local.Writer(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := io.Copy(w, src); err != nil {
		_ = w.Cancel(ctx)
		return err
	}

	if _, err := w.Commit(ctx, manifestv1.Descriptor{Digest: dgst}); err != nil {
		return err
	}

	return nil
}

func isBlobUnknown(err error) bool {
	return errors.As(err, ptr.Ptr(&content.ErrBlobUnknown{})) ||
		errors.As(err, ptr.Ptr(&content.ErrManifestBlobUnknown{}))
}
