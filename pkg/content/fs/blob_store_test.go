package fs_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	manifestv1 "github.com/octohelm/regkit/pkg/apis/manifest/v1"
	"github.com/octohelm/regkit/pkg/content"
	contentfs "github.com/octohelm/regkit/pkg/content/fs"
	"github.com/octohelm/regkit/pkg/content/fs/layout"
	"github.com/octohelm/unifs/pkg/filesystem/local"
	"github.com/octohelm/x/ptr"
	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

func TestBlobStore(t *testing.T) {
	tmp := t.TempDir()
	t.Cleanup(func() {
		_ = os.RemoveAll(tmp)
	})

	fs := local.NewFS(tmp)

	s := contentfs.NewBlobStore(fs)

	str := "12345678"

	t.Run("put contents", func(t *testing.T) {
		ctx := context.Background()

		w, err := s.Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer w.Close()

		buf := bytes.NewBufferString(str)
		_, _ = io.Copy(w, buf)

		d, err := w.Commit(ctx, manifestv1.Descriptor{})
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d.Size, testingx.Be(int64(len(str))))
		testingx.Expect(t, d.Digest, testingx.Be(digest.FromString(str)))

		t.Run("info", func(t *testing.T) {
			d, err := s.Info(ctx, digest.FromString(str))
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, d.Size, testingx.Be(int64(len(str))))
		})

		t.Run("open", func(t *testing.T) {
			r, err := s.Open(ctx, digest.FromString(str))
			testingx.Expect(t, err, testingx.Be[error](nil))
			defer r.Close()

			data, err := io.ReadAll(r)
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, string(data), testingx.Be(str))
		})
	})

	t.Run("commit with wrong expected digest fails and stores nothing", func(t *testing.T) {
		ctx := context.Background()

		w, err := s.Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer w.Close()

		_, _ = w.Write([]byte("other-contents"))

		_, err = w.Commit(ctx, manifestv1.Descriptor{
			Digest: digest.FromString("not-these-contents"),
		})
		testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrBlobInvalidDigest{})), testingx.Be(true))

		_, err = s.Info(ctx, digest.FromString("other-contents"))
		testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrBlobUnknown{})), testingx.Be(true))
	})

	t.Run("abandoned writer leaves the digest unknown", func(t *testing.T) {
		ctx := context.Background()

		w, err := s.Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, _ = w.Write([]byte("abandoned"))

		err = w.Cancel(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = s.Info(ctx, digest.FromString("abandoned"))
		testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrBlobUnknown{})), testingx.Be(true))
	})

	t.Run("concurrent identical puts all succeed with one stored copy", func(t *testing.T) {
		ctx := context.Background()

		payload := "concurrently-stored"

		eg := &errgroup.Group{}
		for range 8 {
			eg.Go(func() error {
				w, err := s.Writer(ctx)
				if err != nil {
					return err
				}
				defer w.Close()

				if _, err := w.Write([]byte(payload)); err != nil {
					return err
				}

				_, err = w.Commit(ctx, manifestv1.Descriptor{})
				return err
			})
		}
		testingx.Expect(t, eg.Wait(), testingx.Be[error](nil))

		d, err := s.Info(ctx, digest.FromString(payload))
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d.Size, testingx.Be(int64(len(payload))))
	})

	t.Run("resume continues an interrupted upload", func(t *testing.T) {
		ctx := context.Background()

		w, err := s.Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, _ = w.Write([]byte("first-"))
		testingx.Expect(t, w.Close(), testingx.Be[error](nil))

		resumed, err := s.Resume(ctx, w.ID())
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer resumed.Close()

		_, _ = resumed.Write([]byte("second"))

		d, err := resumed.Commit(ctx, manifestv1.Descriptor{})
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d.Digest, testingx.Be(digest.FromString("first-second")))
	})

	t.Run("resume of unknown upload id", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.Resume(ctx, "no-such-upload")
		testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrBlobUploadUnknown{})), testingx.Be(true))
	})
}

func TestBlobStoreConflictingPut(t *testing.T) {
	tmp := t.TempDir()
	t.Cleanup(func() {
		_ = os.RemoveAll(tmp)
	})

	fs := local.NewFS(tmp)
	s := contentfs.NewBlobStore(fs)

	ctx := context.Background()

	str := "stored-first"
	dgst := digest.FromString(str)

	w, err := s.Writer(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))
	defer w.Close()

	_, _ = w.Write([]byte(str))
	_, err = w.Commit(ctx, manifestv1.Descriptor{})
	testingx.Expect(t, err, testingx.Be[error](nil))

	// truncate the stored copy so the next commit of the same digest
	// sees a size that cannot belong to it
	dataPath := filepath.Join(tmp, layout.Default.BlobDataPath(dgst))
	testingx.Expect(t, os.WriteFile(dataPath, []byte("short"), 0o644), testingx.Be[error](nil))

	t.Run("re-commit of the same digest reports corruption", func(t *testing.T) {
		w, err := s.Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer w.Close()

		_, _ = w.Write([]byte(str))

		_, err = w.Commit(ctx, manifestv1.Descriptor{Digest: dgst})
		testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrCorruption{})), testingx.Be(true))
	})

	t.Run("the stored copy is left in place for inspection", func(t *testing.T) {
		stored, err := os.ReadFile(dataPath)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, string(stored), testingx.Be("short"))
	})
}

func TestBlobStoreCorruption(t *testing.T) {
	tmp := t.TempDir()
	t.Cleanup(func() {
		_ = os.RemoveAll(tmp)
	})

	fs := local.NewFS(tmp)
	s := contentfs.NewBlobStore(fs)

	ctx := context.Background()

	str := "to-be-damaged"
	dgst := digest.FromString(str)

	w, err := s.Writer(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))
	defer w.Close()

	_, _ = w.Write([]byte(str))
	_, err = w.Commit(ctx, manifestv1.Descriptor{})
	testingx.Expect(t, err, testingx.Be[error](nil))

	// flip the stored bytes behind the store's back
	dataPath := filepath.Join(tmp, layout.Default.BlobDataPath(dgst))
	testingx.Expect(t, os.WriteFile(dataPath, []byte("damaged-bytes"), 0o644), testingx.Be[error](nil))

	t.Run("read detects the damage", func(t *testing.T) {
		r, err := s.Open(ctx, dgst)
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer r.Close()

		_, err = io.ReadAll(r)
		testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrCorruption{})), testingx.Be(true))
	})

	t.Run("damaged data is quarantined not deleted", func(t *testing.T) {
		_, err := s.Info(ctx, dgst)
		testingx.Expect(t, errors.As(err, ptr.Ptr(&content.ErrBlobUnknown{})), testingx.Be(true))

		quarantined, err := os.ReadFile(filepath.Join(tmp, layout.Default.QuarantinePath(dgst)))
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, string(quarantined), testingx.Be("damaged-bytes"))
	})
}
