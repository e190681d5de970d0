package transport

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/goliatone/go-shopify-auth/core"
)

var linkHeaderPattern = regexp.MustCompile(`<([^<]+)>; rel="([^"]+)"`)

// RestClient is a thin Admin REST helper, paths are given without the
// /admin/api/{version} prefix and .json suffix.
type RestClient struct {
	client *Client
	auth   AuthHeaderBuilder
}

func NewRestClient(shop string, cfg core.Config, accessToken string, doer HTTPDoer, opts ...ClientOption) (*RestClient, error) {
	if !cfg.IsPrivateApp && strings.TrimSpace(accessToken) == "" {
		return nil, core.NewArgumentError("transport: missing access token when creating REST client", nil)
	}
	client, err := NewClient(shop, cfg, doer, opts...)
	if err != nil {
		return nil, err
	}
	return &RestClient{client: client, auth: AdminAccessToken{Token: accessToken}}, nil
}

type RestResponse struct {
	*Response
	PageInfo *PageInfo
}

// PageInfo holds the cursors parsed from a Link header.
type PageInfo struct {
	Limit        string
	Fields       []string
	NextPageURL  string
	PrevPageURL  string
	NextPageInfo url.Values
	PrevPageInfo url.Values
}

func (r *RestClient) Get(ctx context.Context, path string, query url.Values) (*RestResponse, error) {
	return r.do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

func (r *RestClient) Post(ctx context.Context, path string, data any) (*RestResponse, error) {
	return r.do(ctx, Request{Method: http.MethodPost, Path: path, Type: DataTypeJSON, Data: data})
}

func (r *RestClient) Put(ctx context.Context, path string, data any) (*RestResponse, error) {
	return r.do(ctx, Request{Method: http.MethodPut, Path: path, Type: DataTypeJSON, Data: data})
}

func (r *RestClient) Delete(ctx context.Context, path string, query url.Values) (*RestResponse, error) {
	return r.do(ctx, Request{Method: http.MethodDelete, Path: path, Query: query})
}

func (r *RestClient) do(ctx context.Context, req Request) (*RestResponse, error) {
	name, value, err := r.auth.BuildAuthHeader(r.client.Config())
	if err != nil {
		return nil, err
	}
	req.Headers = map[string]string{name: value}
	req.Path = r.restPath(req.Path)
	res, err := r.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &RestResponse{Response: res}
	if link := res.Headers.Get("Link"); link != "" {
		out.PageInfo = parsePageInfo(link, req.Query)
	}
	return out, nil
}

func (r *RestClient) restPath(path string) string {
	cleaned := strings.TrimSuffix(strings.Trim(strings.TrimSpace(path), "/"), ".json")
	if strings.HasPrefix("/"+cleaned, adminAPIBasePath+"/") {
		return "/" + cleaned + ".json"
	}
	return adminAPIBasePath + "/" + r.client.Config().Version().String() + "/" + cleaned + ".json"
}

func parsePageInfo(link string, query url.Values) *PageInfo {
	info := &PageInfo{Limit: "50"}
	if query != nil {
		if limit := query.Get("limit"); limit != "" {
			info.Limit = limit
		}
		if fields := query.Get("fields"); fields != "" {
			info.Fields = strings.Split(fields, ",")
		}
	}
	for _, match := range linkHeaderPattern.FindAllStringSubmatch(link, -1) {
		parsed, err := url.Parse(match[1])
		if err != nil {
			continue
		}
		switch match[2] {
		case "next":
			info.NextPageURL = match[1]
			info.NextPageInfo = parsed.Query()
		case "previous":
			info.PrevPageURL = match[1]
			info.PrevPageInfo = parsed.Query()
		}
	}
	return info
}
