package registry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/octohelm/courier/pkg/courierhttp"

	"github.com/octohelm/regkit/pkg/content/util"
)

type GetUploadBlob struct {
	courierhttp.MethodGet `path:"/{name...}/blobs/uploads/{id}"`

	NameScoped

	ID string `name:"id" in:"path"`
}

func (req *GetUploadBlob) Output(ctx context.Context) (any, error) {
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

	written := util.Range{Start: 0, Length: max(w.Size(ctx), 1)}

	return courierhttp.Wrap[any](nil,
		courierhttp.WithStatusCode(http.StatusAccepted),
		courierhttp.WithMetadata("Location", fmt.Sprintf("/v2/%s/blobs/uploads/%s", repo.Named().Name(), w.ID())),
		courierhttp.WithMetadata("Range", written.String()),
	), nil
}
