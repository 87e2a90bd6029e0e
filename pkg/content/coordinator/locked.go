package coordinator

import (
	"context"
	"io"
	"sync"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/regkit/pkg/apis/manifest/v1"
	"github.com/octohelm/regkit/pkg/content"
	"github.com/octohelm/regkit/pkg/content/lock"
)

// newLockedNamespace wraps ns so every operation holds the right tokens
// before touching the store. Reads take shared tokens, mutations exclusive
// ones, multi-key mutations acquire in sorted order.
func newLockedNamespace(ns content.Namespace, locks *lock.Manager) content.Namespace {
	return &lockedNamespace{ns: ns, locks: locks}
}

type lockedNamespace struct {
	ns    content.Namespace
	locks *lock.Manager
}

var _ content.PersistNamespaceWrapper = &lockedNamespace{}

func (n *lockedNamespace) UnwarpPersistNamespace() content.Namespace {
	if w, ok := n.ns.(content.PersistNamespaceWrapper); ok {
		return w.UnwarpPersistNamespace()
	}
	return n.ns
}

func (n *lockedNamespace) Repository(ctx context.Context, named reference.Named) (content.Repository, error) {
	repo, err := n.ns.Repository(ctx, named)
	if err != nil {
		return nil, err
	}
	return &lockedRepository{repo: repo, locks: n.locks}, nil
}

type lockedRepository struct {
	repo  content.Repository
	locks *lock.Manager
}

func (r *lockedRepository) Named() reference.Named {
	return r.repo.Named()
}

func (r *lockedRepository) Blobs(ctx context.Context) (content.BlobStore, error) {
	bs, err := r.repo.Blobs(ctx)
	if err != nil {
		return nil, err
	}
	return &lockedBlobStore{bs: bs, locks: r.locks}, nil
}

func (r *lockedRepository) Manifests(ctx context.Context) (content.ManifestService, error) {
	ms, err := r.repo.Manifests(ctx)
	if err != nil {
		return nil, err
	}
	return &lockedManifestService{ms: ms, locks: r.locks}, nil
}

func (r *lockedRepository) Tags(ctx context.Context) (content.TagService, error) {
	ts, err := r.repo.Tags(ctx)
	if err != nil {
		return nil, err
	}
	return &lockedTagService{named: r.repo.Named(), ts: ts, locks: r.locks}, nil
}

type lockedBlobStore struct {
	bs    content.BlobStore
	locks *lock.Manager
}

var _ content.BlobStore = &lockedBlobStore{}

func (bs *lockedBlobStore) Info(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error) {
	tok, err := bs.locks.Acquire(ctx, lock.BlobKey(dgst), lock.Shared)
	if err != nil {
		return nil, err
	}
	defer bs.locks.Release(ctx, tok)

	return bs.bs.Info(ctx, dgst)
}

func (bs *lockedBlobStore) Open(ctx context.Context, dgst digest.Digest) (io.ReadCloser, error) {
	tok, err := bs.locks.Acquire(ctx, lock.BlobKey(dgst), lock.Shared)
	if err != nil {
		return nil, err
	}

	r, err := bs.bs.Open(ctx, dgst)
	if err != nil {
		bs.locks.Release(ctx, tok)
		return nil, err
	}

	lr := &lockedReadCloser{ReadCloser: r}
	lr.release = func() {
		bs.locks.Release(ctx, tok)
	}
	return lr, nil
}

func (bs *lockedBlobStore) Remove(ctx context.Context, dgst digest.Digest) error {
	tok, err := bs.locks.Acquire(ctx, lock.BlobKey(dgst), lock.Exclusive)
	if err != nil {
		return err
	}
	defer bs.locks.Release(ctx, tok)

	return bs.bs.Remove(ctx, dgst)
}

func (bs *lockedBlobStore) Writer(ctx context.Context) (content.BlobWriter, error) {
	w, err := bs.bs.Writer(ctx)
	if err != nil {
		return nil, err
	}
	return &lockedBlobWriter{BlobWriter: w, locks: bs.locks}, nil
}

func (bs *lockedBlobStore) Resume(ctx context.Context, id string) (content.BlobWriter, error) {
	w, err := bs.bs.Resume(ctx, id)
	if err != nil {
		return nil, err
	}
	return &lockedBlobWriter{BlobWriter: w, locks: bs.locks}, nil
}

type lockedBlobWriter struct {
	content.BlobWriter

	locks *lock.Manager
}

// Commit serializes on the blob key: identical concurrent commits line up and
// each observes either an empty slot or the already stored copy.
func (w *lockedBlobWriter) Commit(ctx context.Context, expected manifestv1.Descriptor) (*manifestv1.Descriptor, error) {
	dgst := expected.Digest
	if dgst == "" {
		dgst = w.Digest(ctx)
	}

	tok, err := w.locks.Acquire(ctx, lock.BlobKey(dgst), lock.Exclusive)
	if err != nil {
		return nil, err
	}
	defer w.locks.Release(ctx, tok)

	return w.BlobWriter.Commit(ctx, expected)
}

type lockedManifestService struct {
	ms    content.ManifestService
	locks *lock.Manager
}

var _ content.ManifestService = &lockedManifestService{}

func (ms *lockedManifestService) Info(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error) {
	tok, err := ms.locks.Acquire(ctx, lock.BlobKey(dgst), lock.Shared)
	if err != nil {
		return nil, err
	}
	defer ms.locks.Release(ctx, tok)

	return ms.ms.Info(ctx, dgst)
}

func (ms *lockedManifestService) Get(ctx context.Context, dgst digest.Digest) (manifestv1.Manifest, error) {
	tok, err := ms.locks.Acquire(ctx, lock.BlobKey(dgst), lock.Shared)
	if err != nil {
		return nil, err
	}
	defer ms.locks.Release(ctx, tok)

	return ms.ms.Get(ctx, dgst)
}

// Put pins the manifest digest and every referenced digest before the
// referential integrity check runs, so a sweeping collector or concurrent
// delete cannot invalidate the check mid-write.
func (ms *lockedManifestService) Put(ctx context.Context, m manifestv1.Manifest) (digest.Digest, error) {
	p, err := manifestv1.From(m)
	if err != nil {
		return "", err
	}

	_, dgst, err := p.Payload()
	if err != nil {
		return "", err
	}

	keys := []string{lock.BlobKey(dgst)}
	for ref := range m.References() {
		keys = append(keys, lock.BlobKey(ref.Digest))
	}

	tokens, err := ms.locks.AcquireAll(ctx, keys, lock.Exclusive)
	if err != nil {
		return "", err
	}
	defer ms.locks.ReleaseAll(ctx, tokens)

	return ms.ms.Put(ctx, m)
}

func (ms *lockedManifestService) Delete(ctx context.Context, dgst digest.Digest) error {
	tok, err := ms.locks.Acquire(ctx, lock.BlobKey(dgst), lock.Exclusive)
	if err != nil {
		return err
	}
	defer ms.locks.Release(ctx, tok)

	return ms.ms.Delete(ctx, dgst)
}

type lockedTagService struct {
	named reference.Named
	ts    content.TagService
	locks *lock.Manager
}

var _ content.TagService = &lockedTagService{}

func (ts *lockedTagService) Get(ctx context.Context, tag string) (*manifestv1.Descriptor, error) {
	tok, err := ts.locks.Acquire(ctx, lock.TagKey(ts.named.Name(), tag), lock.Shared)
	if err != nil {
		return nil, err
	}
	defer ts.locks.Release(ctx, tok)

	return ts.ts.Get(ctx, tag)
}

func (ts *lockedTagService) Tag(ctx context.Context, tag string, desc manifestv1.Descriptor) error {
	tok, err := ts.locks.Acquire(ctx, lock.TagKey(ts.named.Name(), tag), lock.Exclusive)
	if err != nil {
		return err
	}
	defer ts.locks.Release(ctx, tok)

	return ts.ts.Tag(ctx, tag, desc)
}

func (ts *lockedTagService) Untag(ctx context.Context, tag string) error {
	tok, err := ts.locks.Acquire(ctx, lock.TagKey(ts.named.Name(), tag), lock.Exclusive)
	if err != nil {
		return err
	}
	defer ts.locks.Release(ctx, tok)

	return ts.ts.Untag(ctx, tag)
}

func (ts *lockedTagService) All(ctx context.Context) ([]string, error) {
	return ts.ts.All(ctx)
}

type lockedReadCloser struct {
	io.ReadCloser

	once    sync.Once
	release func()
}

func (r *lockedReadCloser) Close() error {
	defer r.once.Do(r.release)
	return r.ReadCloser.Close()
}
