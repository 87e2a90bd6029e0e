package registry

import (
	"github.com/octohelm/courier/pkg/courier"

	manifestv1 "github.com/octohelm/regkit/pkg/apis/manifest/v1"
	"github.com/octohelm/regkit/pkg/content"
)

// response data bindings for client-side use through courier.Client

func (*GetManifest) ResponseData() *manifestv1.Payload { return &manifestv1.Payload{} }

func (*ListTag) ResponseData() *content.TagList { return &content.TagList{} }

func (*Catalog) ResponseData() *CatalogResponse { return &CatalogResponse{} }

func (*HeadManifest) ResponseData() *courier.NoContent { return &courier.NoContent{} }

func (*PutManifest) ResponseData() *courier.NoContent { return &courier.NoContent{} }

func (*DeleteManifest) ResponseData() *courier.NoContent { return &courier.NoContent{} }

func (*HeadBlob) ResponseData() *courier.NoContent { return &courier.NoContent{} }

func (*DeleteBlob) ResponseData() *courier.NoContent { return &courier.NoContent{} }

func (*UploadBlob) ResponseData() *courier.NoContent { return &courier.NoContent{} }

func (*CancelUploadBlob) ResponseData() *courier.NoContent { return &courier.NoContent{} }
