package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/distribution/reference"
	"github.com/go-courier/logr"
	"github.com/octohelm/x/ptr"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/regkit/pkg/apis/manifest/v1"
	"github.com/octohelm/regkit/pkg/content"
)

var _ content.ManifestService = &manifestService{}

type manifestService struct {
	named reference.Named
	ns    *namespace

	local  content.ManifestService
	remote content.ManifestService
}

func (ms *manifestService) Put(ctx context.Context, m manifestv1.Manifest) (digest.Digest, error) {
	return ms.local.Put(ctx, m)
}

func (ms *manifestService) Delete(ctx context.Context, dgst digest.Digest) error {
	return ms.local.Delete(ctx, dgst)
}

func (ms *manifestService) Info(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error) {
	info, err := ms.local.Info(ctx, dgst)
	if err == nil {
		return info, nil
	}
	if !isManifestUnknown(err) {
		return nil, err
	}
	return ms.remote.Info(ctx, dgst)
}

func (ms *manifestService) Get(ctx context.Context, dgst digest.Digest) (manifestv1.Manifest, error) {
	m, err := ms.local.Get(ctx, dgst)
	if err == nil {
		return m, nil
	}
	if !isManifestUnknown(err) {
		return nil, err
	}

	fetched, err, _ := ms.ns.group.Do("manifests/"+ms.named.Name()+"@"+dgst.String(), func() (any, error) {
		return ms.fetch(ctx, dgst)
	})
	if err != nil {
		return nil, err
	}

	return fetched.(manifestv1.Manifest), nil
}

func (ms *manifestService) fetch(ctx context.Context, dgst digest.Digest) (manifestv1.Manifest, error) {
	if m, err := ms.local.Get(ctx, dgst); err == nil {
		return m, nil
	}

	m, err := ms.remote.Get(ctx, dgst)
	if err != nil {
		return nil, err
	}

	if _, err := ms.local.Put(ctx, m); err != nil {
		// a manifest ahead of its blobs stays uncached until the blobs land,
		// the local store never holds a dangling reference
		if errors.As(err, ptr.Ptr(&content.ErrManifestBlobUnknown{})) {
			logr.FromContext(ctx).Debug(fmt.Sprintf("serving %s uncached: %v", dgst, err))
			return m, nil
		}
		return nil, err
	}

	return m, nil
}

func isManifestUnknown(err error) bool {
	return errors.As(err, ptr.Ptr(&content.ErrManifestUnknownRevision{})) ||
		errors.As(err, ptr.Ptr(&content.ErrManifestUnknown{}))
}
