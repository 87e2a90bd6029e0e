package fs

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/distribution/reference"
	"github.com/octohelm/regkit/pkg/content"
	"github.com/octohelm/regkit/pkg/content/fs/layout"
	"github.com/octohelm/unifs/pkg/filesystem"
	"github.com/opencontainers/go-digest"
)

func NewNamespace(fs filesystem.FileSystem) content.Namespace {
	return &namespace{workspace: newWorkspace(fs, layout.Default)}
}

type namespace struct {
	workspace *workspace
}

func (n *namespace) Repository(ctx context.Context, named reference.Named) (content.Repository, error) {
	return &repository{
		named:     named,
		workspace: n.workspace,
	}, nil
}

var _ content.DigestIterable = &namespace{}

func (n *namespace) Digests(ctx context.Context) iter.Seq2[digest.Digest, error] {
	bs := &blobStore{workspace: n.workspace}
	return bs.Digests(ctx)
}

var _ content.RepositoryNameIterable = &namespace{}

// RepositoryNames yields every repository below the storage root. A
// repository is any directory carrying a _layers or _manifests subtree;
// names may nest, so the walk only stops descending at those markers.
func (n *namespace) RepositoryNames(ctx context.Context) iter.Seq2[reference.Named, error] {
	root := n.workspace.layout.RepositorysPath()

	return func(yield func(reference.Named, error) bool) {
		seen := map[string]struct{}{}

		err := n.workspace.WalkDir(ctx, root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return fs.SkipAll
				}
				return err
			}

			if path == "." || !d.IsDir() {
				return nil
			}

			base := filepath.Base(path)
			if base != "_layers" && base != "_manifests" {
				return nil
			}

			name := filepath.ToSlash(filepath.Dir(path))
			if _, ok := seen[name]; ok {
				return fs.SkipDir
			}
			seen[name] = struct{}{}

			named, parseErr := reference.WithName(strings.TrimPrefix(name, "/"))
			if parseErr != nil {
				// leftovers from a renamed layout, skip
				return fs.SkipDir
			}

			if !yield(named, nil) {
				return fs.SkipAll
			}

			return fs.SkipDir
		})
		if err != nil {
			if !yield(nil, err) {
				return
			}
		}
	}
}
