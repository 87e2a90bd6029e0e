// Package lock arbitrates access to the shared content-addressed store.
//
// Every facet takes a token for each digest or repository key it intends to
// touch before doing any blob-store I/O. Exclusive tokens serialize writers
// per key, shared tokens let readers overlap, and the garbage collector takes
// a store-wide lease that drains everything before a sweep.
package lock

import (
	"fmt"

	"github.com/octohelm/courier/pkg/statuserror"
	"github.com/opencontainers/go-digest"
)

type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// BlobKey and TagKey build lock keys so that digest keys always sort before
// repository tag keys. Multi-key operations acquire in sorted order.
func BlobKey(dgst digest.Digest) string {
	return "blobs/" + string(dgst)
}

func TagKey(name string, tag string) string {
	return "repositories/" + name + "/tags/" + tag
}

// ErrBusy reports that a conflicting holder outlived the acquire ceiling.
// Retryable by the caller.
type ErrBusy struct {
	statuserror.TooManyRequests

	Key  string
	Mode Mode
}

func (ErrBusy) ErrCode() string {
	return "TOOMANYREQUESTS"
}

func (err *ErrBusy) Error() string {
	return fmt.Sprintf("lock busy: %s on %s", err.Mode, err.Key)
}
