package registry

import (
	"context"

	"github.com/octohelm/courier/pkg/courierhttp"
	"github.com/octohelm/regkit/pkg/content"
)

type BaseURL struct {
	courierhttp.MethodGet
}

func (r *BaseURL) Output(ctx context.Context) (any, error) {
	return map[string]string{}, nil
}

type NameScoped struct {
	Name content.Name `name:"name" in:"path"`
}

func (req *NameScoped) Repository(ctx context.Context) (content.Repository, error) {
	return content.NamespaceContext.From(ctx).Repository(ctx, req.Name)
}
