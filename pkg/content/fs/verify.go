package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"syscall"

	"github.com/go-courier/logr"
	"github.com/octohelm/regkit/pkg/content"
	"github.com/opencontainers/go-digest"
)

func mapCapacityErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ENOSPC) {
		return &content.ErrCapacityExceeded{
			Reason: err,
		}
	}
	return err
}

// verifiedReader re-hashes blob bytes as they stream out. A digest mismatch
// at end of stream quarantines the stored data and surfaces the corruption
// instead of handing damaged bytes to the caller as complete.
func (bs *blobStore) verifiedReader(ctx context.Context, dgst digest.Digest, file io.ReadCloser) io.ReadCloser {
	return &verifiedReader{
		ctx:       ctx,
		dgst:      dgst,
		file:      file,
		verifier:  dgst.Verifier(),
		blobStore: bs,
	}
}

type verifiedReader struct {
	ctx  context.Context
	dgst digest.Digest

	file     io.ReadCloser
	verifier digest.Verifier

	blobStore *blobStore
}

func (vr *verifiedReader) Read(p []byte) (int, error) {
	n, err := vr.file.Read(p)
	if n > 0 {
		_, _ = vr.verifier.Write(p[:n])
	}

	if err == io.EOF {
		if !vr.verifier.Verified() {
			if qErr := vr.blobStore.quarantine(vr.ctx, vr.dgst); qErr != nil {
				logr.FromContext(vr.ctx).Error(fmt.Errorf("quarantine failed for %s: %w", vr.dgst, qErr))
			}

			return n, &content.ErrCorruption{
				Digest: vr.dgst,
				Reason: errors.New("stored bytes no longer hash to digest"),
			}
		}
	}

	return n, err
}

func (vr *verifiedReader) Close() error {
	return vr.file.Close()
}

func (bs *blobStore) quarantine(ctx context.Context, dgst digest.Digest) error {
	src := bs.workspace.layout.BlobDataPath(dgst)
	dst := bs.workspace.layout.QuarantinePath(dgst)

	if err := bs.workspace.Move(ctx, src, dst); err != nil {
		return err
	}

	logr.FromContext(ctx).
		WithValues(
			slog.String("digest", string(dgst)),
			slog.String("quarantined", dst),
		).
		Warn(errors.New("corrupted blob moved to quarantine"))

	return nil
}
