package garbagecollector

import (
	"context"
	"time"

	"k8s.io/kube-openapi/pkg/validation/strfmt"

	"github.com/octohelm/regkit/pkg/content"
	"github.com/octohelm/regkit/pkg/content/fs/driver"
	"github.com/octohelm/regkit/pkg/content/fs/uploadpurger"
	"github.com/octohelm/regkit/pkg/content/lock"
)

// Executor runs one mark and sweep pass then returns. Used by the gc command.
type Executor struct {
	ExcludeModifiedIn strfmt.Duration `flags:",omitzero"`
	UploadExpiresIn   strfmt.Duration `flags:",omitzero"`
	DryRun            bool            `flags:",omitzero"`

	driver    driver.Driver
	namespace content.Namespace
	locks     *lock.Manager
}

func (e *Executor) SetDefaults() {
	if e.ExcludeModifiedIn == 0 {
		e.ExcludeModifiedIn = strfmt.Duration(time.Hour)
	}
	if e.UploadExpiresIn == 0 {
		e.UploadExpiresIn = strfmt.Duration(2 * time.Hour)
	}
}

func (e *Executor) Init(ctx context.Context) error {
	e.SetDefaults()

	if e.namespace == nil {
		e.namespace, _ = content.NamespaceContext.MayFrom(ctx)
	}
	if e.driver == nil {
		e.driver, _ = driver.FromContext(ctx)
	}
	if e.locks == nil {
		e.locks, _ = lock.FromContext(ctx)
	}

	return nil
}

func (e *Executor) Run(ctx context.Context) error {
	if e.locks != nil {
		lease, err := e.locks.Quiesce(ctx)
		if err != nil {
			return err
		}
		defer lease.Release(ctx)
	}

	if err := MarkAndSweepExcludeModifiedIn(ctx, e.namespace, e.driver, time.Duration(e.ExcludeModifiedIn), e.DryRun); err != nil {
		return err
	}

	if e.DryRun {
		return nil
	}

	return uploadpurger.PurgeExpired(ctx, e.driver, time.Duration(e.UploadExpiresIn))
}
