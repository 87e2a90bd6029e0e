package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/octohelm/courier/pkg/courierhttp"

	"github.com/octohelm/regkit/pkg/content"
	"github.com/octohelm/regkit/pkg/content/util"
)

type UploadPatchBlob struct {
	courierhttp.MethodPatch `path:"/{name...}/blobs/uploads/{id}"`

	NameScoped

	ID           string        `name:"id" in:"path"`
	ContentRange util.Range    `name:"Content-Range,omitempty" in:"header"`
	Chunk        io.ReadCloser `in:"body"`
}

func (req *UploadPatchBlob) Output(ctx context.Context) (any, error) {
	defer req.Chunk.Close()

	repo, err := req.Repository(ctx)
	if err != nil {
		return nil, err
	}

	blobs, err := repo.Blobs(ctx)
	if err != nil {
		return nil, err
	}

	w, err := blobs.Resume(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	// chunks must connect, a gap or overlap invalidates the session offset
	if !req.ContentRange.IsZero() && req.ContentRange.Start != w.Size(ctx) {
		return nil, &content.ErrBlobInvalidLength{
			Reason: fmt.Sprintf("expect chunk started at %d, but got %d", w.Size(ctx), req.ContentRange.Start),
		}
	}

	if _, err := io.Copy(w, req.Chunk); err != nil {
		return nil, err
	}

	written := util.Range{Start: 0, Length: max(w.Size(ctx), 1)}

	return courierhttp.Wrap[any](nil,
		courierhttp.WithStatusCode(http.StatusAccepted),
		courierhttp.WithMetadata("Location", fmt.Sprintf("/v2/%s/blobs/uploads/%s", repo.Named().Name(), w.ID())),
		courierhttp.WithMetadata("Range", written.String()),
	), nil
}
