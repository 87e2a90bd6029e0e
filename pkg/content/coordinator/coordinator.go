package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/distribution/reference"
	"github.com/go-courier/logr"
	"k8s.io/kube-openapi/pkg/validation/strfmt"

	"github.com/octohelm/regkit/pkg/content"
	contentfs "github.com/octohelm/regkit/pkg/content/fs"
	"github.com/octohelm/regkit/pkg/content/lock"
	"github.com/octohelm/regkit/pkg/content/mirror"
	"github.com/octohelm/regkit/pkg/content/remote"
)

// Coordinator owns the shared store, the lock manager and both facets.
// Repositories matching MirrorPatterns are served pull-through from Remote,
// the rest are authoritative local. All of it is fixed at process start.
type Coordinator struct {
	contentfs.NamespaceProvider

	Remote remote.Registry

	// Repository name globs served by the pull-through facet
	MirrorPatterns []string `flags:",omitzero"`
	// Ceiling for every lock acquisition
	AcquireTimeout strfmt.Duration `flags:",omitzero"`
	// Queued requests older than this make a store-wide lease wait
	LeaseGrace strfmt.Duration `flags:",omitzero"`

	locks  *lock.Manager
	router *router
}

func (c *Coordinator) SetDefaults() {
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = strfmt.Duration(lock.DefaultAcquireTimeout)
	}
	if c.LeaseGrace == 0 {
		c.LeaseGrace = strfmt.Duration(lock.DefaultLeaseGrace)
	}
}

func (c *Coordinator) Init(ctx context.Context) error {
	c.SetDefaults()

	if err := c.NamespaceProvider.Init(ctx); err != nil {
		return err
	}

	c.locks = lock.NewManager(lock.Options{
		AcquireTimeout: time.Duration(c.AcquireTimeout),
		LeaseGrace:     time.Duration(c.LeaseGrace),
	})

	local := newLockedNamespace(c.NamespaceProvider.Namespace(), c.locks)

	var mirrored content.Namespace
	if c.Remote.Endpoint != "" {
		m, err := mirror.New(ctx, local, c.Remote)
		if err != nil {
			return err
		}
		mirrored = m

		logr.FromContext(ctx).
			WithValues(slog.String("remote", c.Remote.Endpoint)).
			Info("mirroring %d patterns", len(c.MirrorPatterns))
	}

	r, err := newRouter(local, mirrored, c.MirrorPatterns)
	if err != nil {
		return err
	}
	c.router = r

	return nil
}

func (c *Coordinator) InjectContext(ctx context.Context) context.Context {
	ctx = c.NamespaceProvider.InjectContext(ctx)
	ctx = lock.InjectContext(ctx, c.locks)
	return content.NamespaceContext.Inject(ctx, c.router)
}

func (c *Coordinator) Namespace() content.Namespace {
	return c.router
}

// Mirrored reports whether named would be served by the pull-through facet.
func (c *Coordinator) Mirrored(named reference.Named) bool {
	return c.router.Mirrored(named)
}

func (c *Coordinator) Locks() *lock.Manager {
	return c.locks
}
