package garbagecollector

import (
	"context"
	"time"

	"github.com/go-courier/logr"
	"github.com/innoai-tech/infra/pkg/agent"
	"github.com/innoai-tech/infra/pkg/cron"
	"github.com/octohelm/exp/xiter"
	"github.com/octohelm/regkit/pkg/content"
	"github.com/octohelm/regkit/pkg/content/fs/driver"
	"github.com/octohelm/regkit/pkg/content/lock"
	"k8s.io/kube-openapi/pkg/validation/strfmt"
)

// GarbageCollector sweeps unreferenced manifests and blobs on a schedule.
// While a sweep runs, the lock manager is quiesced so no write can slip in
// between mark and sweep.
type GarbageCollector struct {
	agent.Agent

	Period            cron.Spec       `flags:",omitzero"`
	ExcludeModifiedIn strfmt.Duration `flags:",omitzero"`
	DryRun            bool            `flags:",omitzero"`

	driver    driver.Driver
	namespace content.Namespace
	locks     *lock.Manager
}

func (a *GarbageCollector) Disabled(ctx context.Context) bool {
	return a.driver == nil || a.namespace == nil || a.Period.Schedule() == nil
}

func (a *GarbageCollector) SetDefaults() {
	if a.Period.IsZero() {
		a.Period = "@midnight"
	}

	if a.ExcludeModifiedIn == 0 {
		a.ExcludeModifiedIn = strfmt.Duration(time.Hour)
	}
}

func (a *GarbageCollector) Init(ctx context.Context) error {
	a.SetDefaults()

	if a.namespace == nil {
		a.namespace, _ = content.NamespaceContext.MayFrom(ctx)
	}
	if a.driver == nil {
		a.driver, _ = driver.FromContext(ctx)
	}
	if a.locks == nil {
		a.locks, _ = lock.FromContext(ctx)
	}

	if a.Disabled(ctx) {
		return nil
	}

	a.Host("Remove untagged", func(ctx context.Context) error {
		for range xiter.Merge(
			xiter.Of(time.Now()),
			a.Period.Times(ctx),
		) {
			a.Go(ctx, func(ctx context.Context) error {
				ctx, l := logr.FromContext(ctx).Start(ctx, "removing")
				defer l.End()

				return a.MarkAndSweepExcludeModifiedIn(ctx, time.Duration(a.ExcludeModifiedIn))
			})
		}

		return nil
	})

	return nil
}

func (a *GarbageCollector) MarkAndSweepExcludeModifiedIn(ctx context.Context, excludeModifiedIn time.Duration) error {
	if a.locks != nil {
		lease, err := a.locks.Quiesce(ctx)
		if err != nil {
			return err
		}
		defer lease.Release(ctx)
	}

	return MarkAndSweepExcludeModifiedIn(ctx, a.namespace, a.driver, excludeModifiedIn, a.DryRun)
}
