package transport

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/goliatone/go-shopify-auth/core"
)

const (
	adminAPIBasePath      = "/admin/api"
	storefrontAPIBasePath = "/api"
)

// GraphqlQuerier is the part of GraphqlClient other packages depend on.
type GraphqlQuerier interface {
	Query(ctx context.Context, data any, headers map[string]string) (*Response, error)
}

type GraphqlClient struct {
	client   *Client
	auth     AuthHeaderBuilder
	basePath string
}

// NewGraphqlClient builds an Admin API client. A token is required unless
// the app is private.
func NewGraphqlClient(shop string, cfg core.Config, accessToken string, doer HTTPDoer, opts ...ClientOption) (*GraphqlClient, error) {
	if !cfg.IsPrivateApp && strings.TrimSpace(accessToken) == "" {
		return nil, core.NewArgumentError("transport: missing access token when creating GraphQL client", nil)
	}
	return newGraphqlClient(shop, cfg, AdminAccessToken{Token: accessToken}, adminAPIBasePath, doer, opts...)
}

func NewStorefrontClient(shop string, cfg core.Config, accessToken string, doer HTTPDoer, opts ...ClientOption) (*GraphqlClient, error) {
	if !cfg.IsPrivateApp && strings.TrimSpace(accessToken) == "" {
		return nil, core.NewArgumentError("transport: missing access token when creating storefront client", nil)
	}
	return newGraphqlClient(shop, cfg, StorefrontAccessToken{Token: accessToken}, storefrontAPIBasePath, doer, opts...)
}

func newGraphqlClient(
	shop string,
	cfg core.Config,
	auth AuthHeaderBuilder,
	basePath string,
	doer HTTPDoer,
	opts ...ClientOption,
) (*GraphqlClient, error) {
	client, err := NewClient(shop, cfg, doer, opts...)
	if err != nil {
		return nil, err
	}
	return &GraphqlClient{client: client, auth: auth, basePath: basePath}, nil
}

func (g *GraphqlClient) Path() string {
	return g.basePath + "/" + g.client.Config().Version().String() + "/graphql.json"
}

// Query posts data to the GraphQL endpoint. A string is sent as a raw
// GraphQL document, anything else as a JSON body. Caller headers win over
// the auth header.
func (g *GraphqlClient) Query(ctx context.Context, data any, headers map[string]string) (*Response, error) {
	dataType := DataTypeJSON
	switch typed := data.(type) {
	case nil:
		return nil, core.NewArgumentError("transport: query missing", nil)
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil, core.NewArgumentError("transport: query missing", nil)
		}
		dataType = DataTypeGraphQL
	case []byte:
		if len(typed) == 0 {
			return nil, core.NewArgumentError("transport: query missing", nil)
		}
		data = json.RawMessage(typed)
	case json.RawMessage:
		if len(typed) == 0 {
			return nil, core.NewArgumentError("transport: query missing", nil)
		}
	}

	name, value, err := g.auth.BuildAuthHeader(g.client.Config())
	if err != nil {
		return nil, err
	}
	merged := map[string]string{name: value}
	for key, header := range headers {
		merged[key] = header
	}
	return g.client.Post(ctx, Request{
		Path:    g.Path(),
		Type:    dataType,
		Data:    data,
		Headers: merged,
	})
}

// GraphqlResponse is the standard GraphQL envelope.
type GraphqlResponse struct {
	Data       json.RawMessage `json:"data"`
	Errors     []GraphqlError  `json:"errors,omitempty"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}

type GraphqlError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

func DecodeGraphqlResponse(res *Response) (*GraphqlResponse, error) {
	out := &GraphqlResponse{}
	if err := res.Decode(out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ GraphqlQuerier = (*GraphqlClient)(nil)
