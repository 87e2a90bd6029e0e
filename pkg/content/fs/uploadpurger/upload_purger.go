package uploadpurger

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"path"
	"time"

	"github.com/go-courier/logr"
	"github.com/innoai-tech/infra/pkg/agent"
	"github.com/innoai-tech/infra/pkg/cron"
	"github.com/octohelm/exp/xiter"
	"github.com/octohelm/regkit/pkg/content/fs/driver"
	"github.com/octohelm/regkit/pkg/content/fs/layout"
	"k8s.io/kube-openapi/pkg/validation/strfmt"
)

// UploadPurger removes upload sessions which were started but never
// committed or cancelled.
type UploadPurger struct {
	agent.Agent

	ExpiresIn strfmt.Duration `flags:",omitzero"`
	Period    cron.Spec       `flags:",omitzero"`

	driver driver.Driver
}

func (u *UploadPurger) Disabled(ctx context.Context) bool {
	return u.driver == nil
}

func (u *UploadPurger) SetDefaults() {
	if u.ExpiresIn == 0 {
		u.ExpiresIn = strfmt.Duration(2 * time.Hour)
	}

	if u.Period.IsZero() {
		u.Period = "@every 10m"
	}
}

func (r *UploadPurger) Init(ctx context.Context) error {
	r.SetDefaults()

	if r.driver == nil {
		r.driver, _ = driver.FromContext(ctx)
	}

	if r.Disabled(ctx) {
		return nil
	}

	r.Host("Purge Uploads", func(ctx context.Context) error {
		for range xiter.Merge(
			xiter.Of(time.Now()),
			r.Period.Times(ctx),
		) {
			r.Go(ctx, func(ctx context.Context) error {
				ctx, l := logr.FromContext(ctx).Start(ctx, "purging")
				defer l.End()

				return r.Purge(ctx)
			})
		}

		return nil
	})

	return nil
}

func (r *UploadPurger) Purge(ctx context.Context) error {
	return PurgeExpired(ctx, r.driver, time.Duration(r.ExpiresIn))
}

// PurgeExpired removes every upload session started before the expiry window.
func PurgeExpired(ctx context.Context, d driver.Driver, expiresIn time.Duration) error {
	expiredAt := time.Now().Add(-expiresIn)

	for bu, err := range blobUploads(ctx, d) {
		if err != nil {
			return err
		}
		if bu.startedAt.Before(expiredAt) {
			if err := d.Delete(ctx, bu.path); err != nil {
				return err
			}
		}
	}

	return nil
}

func blobUploads(ctx context.Context, dr driver.Driver) iter.Seq2[*blobUpload, error] {
	return func(yield func(*blobUpload, error) bool) {
		yieldBlobUpload := func(bu *blobUpload) bool {
			return yield(bu, nil)
		}

		err := dr.WalkDir(ctx, layout.Default.UploadPath(), func(pathname string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fs.SkipAll
				}
				return err
			}

			if pathname == "." {
				return nil
			}

			if d.IsDir() {
				bu := &blobUpload{}
				bu.id = pathname
				bu.path = path.Dir(layout.Default.UploadDataPath(bu.id))

				content, _ := dr.GetContent(ctx, layout.Default.UploadStartedAtPath(bu.id))
				if len(content) > 0 {
					bu.startedAt, _ = time.Parse(time.RFC3339, string(content))
				}

				if !yieldBlobUpload(bu) {
					return fs.SkipAll
				}

				return fs.SkipDir
			}

			return nil
		})
		if err != nil {
			if errors.Is(err, fs.SkipDir) {
				return
			}

			if !yield(nil, err) {
				return
			}
		}
	}
}

type blobUpload struct {
	id        string
	path      string
	startedAt time.Time
}
