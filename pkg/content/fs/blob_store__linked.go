package fs

import (
	"context"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/distribution/reference"
	manifestv1 "github.com/octohelm/regkit/pkg/apis/manifest/v1"
	"github.com/octohelm/regkit/pkg/content"
	"github.com/opencontainers/go-digest"
)

func newLinkedBlobStore(w *workspace, named reference.Named) *linkedBlobStore {
	return &linkedBlobStore{
		workspace: w,
		blobStore: &blobStore{workspace: w},
		linkPathFunc: func(dgst digest.Digest) string {
			return w.layout.RepositoryLayerLinkPath(named, dgst)
		},
		linkRootPath: w.layout.RepositoryLayersPath(named),
		errUnknownFunc: func(dgst digest.Digest) error {
			return &content.ErrBlobUnknown{
				Digest: dgst,
			}
		},
	}
}

func newLinkedBlobStoreAsManifestService(w *workspace, named reference.Named) *linkedBlobStore {
	return &linkedBlobStore{
		workspace: w,
		blobStore: &blobStore{workspace: w},
		linkPathFunc: func(dgst digest.Digest) string {
			return w.layout.RepositoryManifestRevisionLinkPath(named, dgst)
		},
		linkRootPath: w.layout.RepositoryManifestRevisionsPath(named),
		errUnknownFunc: func(dgst digest.Digest) error {
			return &content.ErrManifestUnknownRevision{
				Name:     named.Name(),
				Revision: dgst,
			}
		},
	}
}

type linkedBlobStore struct {
	workspace      *workspace
	blobStore      *blobStore
	errUnknownFunc func(dgst digest.Digest) error
	linkPathFunc   func(dgst digest.Digest) string
	linkRootPath   string
}

var _ content.LinkedDigestIterable = &linkedBlobStore{}

func (lbs *linkedBlobStore) LinkedDigests(ctx context.Context) iter.Seq2[content.LinkedDigest, error] {
	return walkLinks(ctx, lbs.workspace, lbs.linkRootPath)
}

func (lbs *linkedBlobStore) Remove(ctx context.Context, dgst digest.Digest) error {
	return lbs.workspace.Delete(ctx, filepath.Dir(lbs.linkPathFunc(dgst)))
}

func (lbs *linkedBlobStore) Info(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error) {
	link := lbs.linkPathFunc(dgst)

	_, err := lbs.workspace.Stat(ctx, link)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lbs.errUnknownFunc(dgst)
		}
		return nil, err
	}

	return lbs.blobStore.Info(ctx, dgst)
}

func (lbs *linkedBlobStore) Open(ctx context.Context, dgst digest.Digest) (io.ReadCloser, error) {
	link := lbs.linkPathFunc(dgst)

	_, err := lbs.workspace.Stat(ctx, link)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lbs.errUnknownFunc(dgst)
		}
		return nil, err
	}

	return lbs.blobStore.Open(ctx, dgst)
}

func (lbs *linkedBlobStore) Resume(ctx context.Context, id string) (content.BlobWriter, error) {
	w, err := lbs.blobStore.Resume(ctx, id)
	if err != nil {
		return nil, err
	}

	return &linkedBlobWriter{
		linkedBlobStore: lbs,
		BlobWriter:      w,
	}, nil
}

func (lbs *linkedBlobStore) Writer(ctx context.Context) (content.BlobWriter, error) {
	w, err := lbs.blobStore.Writer(ctx)
	if err != nil {
		return nil, err
	}

	return &linkedBlobWriter{
		linkedBlobStore: lbs,
		BlobWriter:      w,
	}, nil
}

type linkedBlobWriter struct {
	content.BlobWriter

	linkedBlobStore *linkedBlobStore
}

func (w *linkedBlobWriter) Commit(ctx context.Context, expected manifestv1.Descriptor) (*manifestv1.Descriptor, error) {
	d, err := w.BlobWriter.Commit(ctx, expected)
	if err != nil {
		return nil, err
	}

	if err := w.linkedBlobStore.workspace.PutContent(ctx, w.linkedBlobStore.linkPathFunc(d.Digest), []byte(d.Digest)); err != nil {
		return nil, mapCapacityErr(err)
	}

	return d, nil
}

// walkLinks yields the digest and last modification time of every link file
// below root. Layout below root is {algorithm}/{hex}/link.
func walkLinks(ctx context.Context, w *workspace, root string) iter.Seq2[content.LinkedDigest, error] {
	return func(yield func(content.LinkedDigest, error) bool) {
		err := w.WalkDir(ctx, root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return fs.SkipAll
				}
				return err
			}

			if path == "." || d.IsDir() {
				return nil
			}

			dir, base := filepath.Split(path)
			if base != "link" {
				return nil
			}

			parentDir, hex := filepath.Split(strings.TrimSuffix(dir, string(filepath.Separator)))
			alg := filepath.Base(strings.TrimSuffix(parentDir, string(filepath.Separator)))

			dgst := digest.NewDigestFromHex(alg, hex)
			if err := dgst.Validate(); err != nil {
				// stray file, not a link
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}

			if !yield(content.LinkedDigest{Digest: dgst, ModTime: info.ModTime()}, nil) {
				return fs.SkipAll
			}

			return nil
		})
		if err != nil {
			if !yield(content.LinkedDigest{}, err) {
				return
			}
		}
	}
}
