package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/distribution/reference"
	"github.com/go-courier/logr"
	"github.com/octohelm/x/ptr"

	manifestv1 "github.com/octohelm/regkit/pkg/apis/manifest/v1"
	"github.com/octohelm/regkit/pkg/content"
)

var _ content.TagService = &tagService{}

type tagService struct {
	named reference.Named
	ns    *namespace

	local          content.TagService
	localManifests content.ManifestService

	remote          content.TagService
	remoteManifests content.ManifestService
}

func (ts *tagService) Get(ctx context.Context, tag string) (*manifestv1.Descriptor, error) {
	d, err := ts.remote.Get(ctx, tag)
	if err != nil {
		// stale serve only when the upstream cannot answer at all
		if errors.As(err, ptr.Ptr(&content.ErrUpstreamUnavailable{})) {
			return ts.local.Get(ctx, tag)
		}
		return nil, err
	}

	key := "tags/" + ts.named.Name() + ":" + tag + "@" + d.Digest.String()

	if _, err, _ := ts.ns.group.Do(key, func() (any, error) {
		return nil, ts.syncTag(ctx, tag, d)
	}); err != nil {
		logr.FromContext(ctx).Debug(fmt.Sprintf("serving tag %s uncached: %v", tag, err))
	}

	return d, nil
}

// syncTag caches the tagged manifest and moves the local tag to it. The tag
// only moves once the manifest revision is present locally.
func (ts *tagService) syncTag(ctx context.Context, tag string, d *manifestv1.Descriptor) error {
	if current, err := ts.local.Get(ctx, tag); err == nil && current.Digest == d.Digest {
		return nil
	}

	if _, err := ts.localManifests.Info(ctx, d.Digest); err != nil {
		m, err := ts.remoteManifests.Get(ctx, d.Digest)
		if err != nil {
			return err
		}
		if _, err := ts.localManifests.Put(ctx, m); err != nil {
			return err
		}
	}

	return ts.local.Tag(ctx, tag, manifestv1.Descriptor{Digest: d.Digest})
}

func (ts *tagService) Tag(ctx context.Context, tag string, desc manifestv1.Descriptor) error {
	return ts.local.Tag(ctx, tag, desc)
}

func (ts *tagService) Untag(ctx context.Context, tag string) error {
	return ts.local.Untag(ctx, tag)
}

func (ts *tagService) All(ctx context.Context) ([]string, error) {
	return ts.local.All(ctx)
}
