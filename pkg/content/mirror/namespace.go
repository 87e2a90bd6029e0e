package mirror

import (
	"context"

	"github.com/distribution/reference"
	"golang.org/x/sync/singleflight"

	"github.com/octohelm/regkit/pkg/content"
	"github.com/octohelm/regkit/pkg/content/remote"
)

// New builds a pull-through namespace over local: cache misses are fetched
// from the upstream registry, written through to local, then served.
// Concurrent misses for the same content coalesce into a single upstream
// fetch. Lock discipline is local's concern, writes go through its writers.
func New(ctx context.Context, local content.Namespace, registry remote.Registry) (content.Namespace, error) {
	r, err := remote.New(ctx, registry)
	if err != nil {
		return nil, err
	}

	return NewFromNamespace(local, r), nil
}

// NewFromNamespace wires the pull-through over an already built upstream.
func NewFromNamespace(local content.Namespace, upstream content.Namespace) content.Namespace {
	return &namespace{
		local:  local,
		remote: upstream,
	}
}

type namespace struct {
	local  content.Namespace
	remote content.Namespace

	group singleflight.Group
}

var _ content.PersistNamespaceWrapper = &namespace{}

func (n *namespace) UnwarpPersistNamespace() content.Namespace {
	if w, ok := n.local.(content.PersistNamespaceWrapper); ok {
		return w.UnwarpPersistNamespace()
	}
	return n.local
}

func (n *namespace) Repository(ctx context.Context, named reference.Named) (content.Repository, error) {
	localRepo, err := n.local.Repository(ctx, named)
	if err != nil {
		return nil, err
	}

	remoteRepo, err := n.remote.Repository(ctx, named)
	if err != nil {
		return nil, err
	}

	return &repository{
		named:      named,
		ns:         n,
		localRepo:  localRepo,
		remoteRepo: remoteRepo,
	}, nil
}

type repository struct {
	named reference.Named
	ns    *namespace

	localRepo  content.Repository
	remoteRepo content.Repository
}

func (r *repository) Named() reference.Named {
	return r.named
}

func (r *repository) Blobs(ctx context.Context) (content.BlobStore, error) {
	l, err := r.localRepo.Blobs(ctx)
	if err != nil {
		return nil, err
	}
	rm, err := r.remoteRepo.Blobs(ctx)
	if err != nil {
		return nil, err
	}

	return &blobStore{
		named:  r.named,
		ns:     r.ns,
		local:  l,
		remote: rm,
	}, nil
}

func (r *repository) Manifests(ctx context.Context) (content.ManifestService, error) {
	l, err := r.localRepo.Manifests(ctx)
	if err != nil {
		return nil, err
	}
	rm, err := r.remoteRepo.Manifests(ctx)
	if err != nil {
		return nil, err
	}

	return &manifestService{
		named:  r.named,
		ns:     r.ns,
		local:  l,
		remote: rm,
	}, nil
}

func (r *repository) Tags(ctx context.Context) (content.TagService, error) {
	localTags, err := r.localRepo.Tags(ctx)
	if err != nil {
		return nil, err
	}
	localManifests, err := r.localRepo.Manifests(ctx)
	if err != nil {
		return nil, err
	}

	remoteTags, err := r.remoteRepo.Tags(ctx)
	if err != nil {
		return nil, err
	}
	remoteManifests, err := r.remoteRepo.Manifests(ctx)
	if err != nil {
		return nil, err
	}

	return &tagService{
		named:           r.named,
		ns:              r.ns,
		local:           localTags,
		localManifests:  localManifests,
		remote:          remoteTags,
		remoteManifests: remoteManifests,
	}, nil
}
