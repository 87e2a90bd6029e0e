package content

import (
	"context"
	"io"
	"iter"

	manifestv1 "github.com/octohelm/regkit/pkg/apis/manifest/v1"
	"github.com/opencontainers/go-digest"
)

type BlobStore interface {
	Ingester
	Provider
	Remover
}

type Provider interface {
	Info(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error)
	Open(ctx context.Context, dgst digest.Digest) (io.ReadCloser, error)
}

type Ingester interface {
	Writer(ctx context.Context) (BlobWriter, error)
	Resume(ctx context.Context, id string) (BlobWriter, error)
}

type Remover interface {
	Remove(ctx context.Context, dgst digest.Digest) error
}

type DigestIterable interface {
	Digests(ctx context.Context) iter.Seq2[digest.Digest, error]
}

type BlobWriter interface {
	io.WriteCloser

	ID() string
	Digest(ctx context.Context) digest.Digest
	Size(ctx context.Context) int64

	// Commit verifies the written bytes against the expected descriptor and
	// links the blob into the store. A partial write is never visible.
	Commit(ctx context.Context, expected manifestv1.Descriptor) (*manifestv1.Descriptor, error)
	Cancel(ctx context.Context) error
}
