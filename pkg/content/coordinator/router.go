package coordinator

import (
	"context"

	"github.com/distribution/reference"
	"github.com/gobwas/glob"

	"github.com/octohelm/regkit/pkg/content"
)

// router sends each repository to exactly one facet: names matching a mirror
// pattern go to the pull-through, everything else to the authoritative local
// facet. Routing is fixed at construction.
type router struct {
	local    content.Namespace
	mirrored content.Namespace
	patterns []glob.Glob
}

func newRouter(local content.Namespace, mirrored content.Namespace, patterns []string) (*router, error) {
	r := &router{
		local:    local,
		mirrored: mirrored,
	}

	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		r.patterns = append(r.patterns, g)
	}

	return r, nil
}

var _ content.PersistNamespaceWrapper = &router{}

func (r *router) UnwarpPersistNamespace() content.Namespace {
	if w, ok := r.local.(content.PersistNamespaceWrapper); ok {
		return w.UnwarpPersistNamespace()
	}
	return r.local
}

func (r *router) Mirrored(named reference.Named) bool {
	if r.mirrored == nil {
		return false
	}
	for _, g := range r.patterns {
		if g.Match(named.Name()) {
			return true
		}
	}
	return false
}

func (r *router) Repository(ctx context.Context, named reference.Named) (content.Repository, error) {
	if r.Mirrored(named) {
		return r.mirrored.Repository(ctx, named)
	}
	return r.local.Repository(ctx, named)
}
