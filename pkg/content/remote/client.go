package remote

import (
	"context"
	"errors"
	"net/url"

	"github.com/cenkalti/backoff/v5"
	"github.com/innoai-tech/infra/pkg/http/middleware"
	"github.com/octohelm/courier/pkg/courier"
	"github.com/octohelm/courier/pkg/courierhttp/client"
	"github.com/octohelm/courier/pkg/statuserror"

	"github.com/octohelm/regkit/pkg/content"
	"github.com/octohelm/regkit/pkg/content/remote/authn"
)

type Client struct {
	Registry

	RoundTripperCreateFunc client.RoundTripperCreateFunc

	c courier.Client
}

func (c *Client) GetEndpoint() string {
	return c.Endpoint
}

func (c *Client) Init(ctx context.Context) error {
	if c.c == nil {
		u, err := url.Parse(c.Endpoint)
		if err != nil {
			return err
		}
		u.Path = "/v2"

		transports := []client.HttpTransport{
			middleware.NewLogRoundTripper(),
		}

		if c.Username != "" {
			a := &authn.Authn{}
			a.CheckEndpoint = u.String()
			a.ClientID = c.Username
			a.ClientSecret = c.Password

			transports = append(transports, a.AsHttpTransport())
		}

		c.c = &client.Client{
			Endpoint:       u.String(),
			HttpTransports: transports,
		}
	}

	return nil
}

func (c *Client) Do(ctx context.Context, req any, metas ...courier.Metadata) courier.Result {
	if c.RoundTripperCreateFunc != nil {
		return c.c.Do(client.ContextWithRoundTripperCreator(ctx, c.RoundTripperCreateFunc), req, metas...)
	}
	return c.c.Do(ctx, req, metas...)
}

type response[Data any] struct {
	data *Data
	meta courier.Metadata
}

// Do sends req through c, retrying transport failures and upstream 5xx with
// exponential backoff. Statuses below 500 are final and returned as-is, so a
// remote 404 never burns retries. Once retries run out the failure comes back
// as content.ErrUpstreamUnavailable.
func Do[Data any, Op interface{ ResponseData() *Data }](ctx context.Context, c courier.Client, req Op, metas ...courier.Metadata) (*Data, courier.Metadata, error) {
	resp, err := backoff.Retry(ctx, func() (*response[Data], error) {
		data := new(Data)

		var into any = data
		if _, ok := any(data).(*courier.NoContent); ok {
			into = nil
		}

		meta, err := c.Do(ctx, req, metas...).Into(into)
		if err != nil {
			return nil, permanentIfFinal(err)
		}

		return &response[Data]{data: data, meta: meta}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
	if err != nil {
		return nil, nil, asUpstreamErr(c, err)
	}

	return resp.data, resp.meta, nil
}

func permanentIfFinal(err error) error {
	errd := &statuserror.Descriptor{}
	if errors.As(err, &errd) && errd.StatusCode() < 500 {
		return backoff.Permanent(err)
	}
	return err
}

func asUpstreamErr(c courier.Client, err error) error {
	errd := &statuserror.Descriptor{}
	if errors.As(err, &errd) && errd.StatusCode() < 500 {
		return err
	}

	endpoint := ""
	if e, ok := c.(interface{ GetEndpoint() string }); ok {
		endpoint = e.GetEndpoint()
	}

	return &content.ErrUpstreamUnavailable{
		Endpoint: endpoint,
		Reason:   err,
	}
}

func isStatus(err error, code int) bool {
	errd := &statuserror.Descriptor{}
	return errors.As(err, &errd) && errd.StatusCode() == code
}
