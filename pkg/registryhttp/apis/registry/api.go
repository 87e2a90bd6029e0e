package registry

import (
	"github.com/octohelm/courier/pkg/courier"
	"github.com/octohelm/courier/pkg/courierhttp"
)

var R = courier.NewRouter(
	courierhttp.Group("/v2"),
)

func init() {
	R.Register(courier.NewRouter(&BaseURL{}))

	R.Register(courier.NewRouter(&Catalog{}))
	R.Register(courier.NewRouter(&ListTag{}))

	R.Register(courier.NewRouter(&GetManifest{}))
	R.Register(courier.NewRouter(&HeadManifest{}))
	R.Register(courier.NewRouter(&PutManifest{}))
	R.Register(courier.NewRouter(&DeleteManifest{}))

	R.Register(courier.NewRouter(&GetBlob{}))
	R.Register(courier.NewRouter(&HeadBlob{}))
	R.Register(courier.NewRouter(&DeleteBlob{}))

	R.Register(courier.NewRouter(&UploadBlob{}))
	R.Register(courier.NewRouter(&GetUploadBlob{}))
	R.Register(courier.NewRouter(&UploadPatchBlob{}))
	R.Register(courier.NewRouter(&UploadPutBlob{}))
	R.Register(courier.NewRouter(&CancelUploadBlob{}))
}
