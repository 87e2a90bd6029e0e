package registry

import (
	"context"

	"github.com/octohelm/courier/pkg/courierhttp"

	"github.com/octohelm/regkit/pkg/content"
	"github.com/octohelm/regkit/pkg/content/collect"
)

type Catalog struct {
	courierhttp.MethodGet `path:"/_catalog"`
}

func (r *Catalog) Output(ctx context.Context) (any, error) {
	names, err := collect.Catalogs(ctx, content.NamespaceContext.From(ctx))
	if err != nil {
		return nil, err
	}
	return &CatalogResponse{Repositories: names}, nil
}

type CatalogResponse struct {
	Repositories []string `json:"repositories"`
}
