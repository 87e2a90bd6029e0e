package fs

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/regkit/pkg/apis/manifest/v1"
	"github.com/octohelm/regkit/pkg/content"
	"github.com/octohelm/regkit/pkg/content/fs/driver"
)

type blobWriter struct {
	ctx context.Context

	id        string
	startedAt time.Time

	digester   digest.Digester
	fileWriter driver.FileWriter
	path       string

	written int64

	workspace *workspace

	resumable bool

	closeOnce sync.Once
	err       error
}

func (bw *blobWriter) ID() string {
	return bw.id
}

func (bw *blobWriter) Write(p []byte) (n int, err error) {
	if err := bw.resumeDigestIfNeed(bw.ctx); err != nil {
		return 0, err
	}

	n, err = bw.fileWriter.Write(p)
	bw.digester.Hash().Write(p[:n])
	bw.written += int64(n)

	if err != nil {
		return n, mapCapacityErr(err)
	}

	return n, nil
}

func (bw *blobWriter) Digest(ctx context.Context) digest.Digest {
	return bw.digester.Digest()
}

func (bw *blobWriter) Size(ctx context.Context) int64 {
	return bw.fileWriter.Size()
}

func (bw *blobWriter) Cancel(ctx context.Context) error {
	return bw.fileWriter.Cancel(ctx)
}

func (bw *blobWriter) Close() error {
	bw.closeOnce.Do(func() {
		if err := bw.fileWriter.Close(); err != nil {
			bw.err = mapCapacityErr(err)
			return
		}

		if err := bw.storeHashState(bw.ctx); err != nil {
			bw.err = err
			return
		}
	})
	return bw.err
}

func (bw *blobWriter) Commit(ctx context.Context, expected manifestv1.Descriptor) (*manifestv1.Descriptor, error) {
	if err := bw.fileWriter.Commit(ctx); err != nil {
		return nil, mapCapacityErr(err)
	}

	if err := bw.Close(); err != nil {
		return nil, err
	}

	defer func() {
		// remove full uploaded
		_ = bw.cleanUpload(ctx)
	}()

	desc := &manifestv1.Descriptor{
		Size:      bw.Size(ctx),
		Digest:    bw.Digest(ctx),
		MediaType: expected.MediaType,
	}

	if expected.Size > 0 && expected.Size != desc.Size {
		return nil, &content.ErrBlobInvalidLength{
			Reason: fmt.Sprintf("unexpected commit size %d, expected %d", desc.Size, expected.Size),
		}
	}

	if expected.Digest != "" && expected.Digest != desc.Digest {
		return nil, &content.ErrBlobInvalidDigest{
			Digest: desc.Digest,
			Reason: fmt.Errorf("not match %s", expected.Digest),
		}
	}

	if err := bw.moveBlob(ctx, desc); err != nil {
		return nil, err
	}

	return desc, nil
}

func (bw *blobWriter) cleanUpload(ctx context.Context) error {
	return bw.workspace.Delete(ctx, path.Dir(bw.path))
}

func (bw *blobWriter) moveBlob(ctx context.Context, desc *manifestv1.Descriptor) error {
	blobDataPath := bw.workspace.layout.BlobDataPath(desc.Digest)

	// a blob already stored under this digest wins; the upload is dropped.
	// mismatched size for the same digest means one of the two is damaged,
	// keep the stored one untouched and report it.
	if existing, err := bw.workspace.Stat(ctx, blobDataPath); err == nil {
		if existing.Size() != desc.Size {
			return &content.ErrCorruption{
				Digest: desc.Digest,
				Reason: fmt.Errorf("stored size %d differs from committed size %d", existing.Size(), desc.Size),
			}
		}
		return nil
	}

	return mapCapacityErr(bw.workspace.Move(ctx, bw.path, blobDataPath))
}
