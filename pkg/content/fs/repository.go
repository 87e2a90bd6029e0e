package fs

import (
	"context"

	"github.com/distribution/reference"
	"github.com/octohelm/regkit/pkg/content"
)

type repository struct {
	named     reference.Named
	workspace *workspace
}

func (r *repository) Named() reference.Named {
	return r.named
}

func (r *repository) Blobs(ctx context.Context) (content.BlobStore, error) {
	return newLinkedBlobStore(r.workspace, r.named), nil
}

func (r *repository) Manifests(ctx context.Context) (content.ManifestService, error) {
	return &manifestService{
		blobStore: newLinkedBlobStoreAsManifestService(r.workspace, r.named),
	}, nil
}

func (r *repository) Tags(ctx context.Context) (content.TagService, error) {
	ms, err := r.Manifests(ctx)
	if err != nil {
		return nil, err
	}

	return &tagService{
		workspace:       r.workspace,
		named:           r.named,
		manifestService: ms,
	}, nil
}
