package content

import (
	"context"
	"iter"

	"github.com/distribution/reference"
)

type Namespace interface {
	Repository(ctx context.Context, named reference.Named) (Repository, error)
}

type RepositoryNameIterable interface {
	RepositoryNames(ctx context.Context) iter.Seq2[reference.Named, error]
}

// PersistNamespaceWrapper is implemented by namespaces which front a
// persisted one (the mirror facet fronts the shared store); housekeeping
// always operates on the persisted namespace.
type PersistNamespaceWrapper interface {
	UnwarpPersistNamespace() Namespace
}

var NamespaceContext = contextFor[Namespace]{}

var RepositoryContext = contextFor[Repository]{}
