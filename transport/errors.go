package transport

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-shopify-auth/core"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	return core.NewError(message, category, code, transportTextCode(category), metadata)
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	return core.WrapError(source, category, message, code, transportTextCode(category), metadata)
}

// responseError reports a non 2xx answer from the shop.
func responseError(res *Response, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["status_code"] = res.StatusCode
	if len(res.Body) > 0 {
		metadata["body"] = truncateBody(res.Body)
	}
	if retryAfter := res.Headers.Get("Retry-After"); retryAfter != "" {
		metadata["retry_after"] = retryAfter
	}
	category := goerrors.CategoryExternal
	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		category = goerrors.CategoryRateLimit
	case res.StatusCode == http.StatusUnauthorized:
		category = goerrors.CategoryAuth
	case res.StatusCode == http.StatusForbidden:
		category = goerrors.CategoryAuthz
	case res.StatusCode == http.StatusNotFound:
		category = goerrors.CategoryNotFound
	case res.StatusCode >= 400 && res.StatusCode < 500:
		category = goerrors.CategoryBadInput
	}
	return core.NewError(
		"transport: received an error response from shopify",
		category,
		res.StatusCode,
		core.ErrorHTTPResponse,
		metadata,
	)
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ErrorMissingArgument
	case goerrors.CategoryExternal:
		return core.ErrorHTTPRequest
	default:
		return core.ErrorInternal
	}
}

// ResponseStatus returns the upstream status code carried by err, or 0.
func ResponseStatus(err error) int {
	var rich *goerrors.Error
	if err == nil || !goerrors.As(err, &rich) || rich.TextCode != core.ErrorHTTPResponse {
		return 0
	}
	return rich.Code
}

func truncateBody(body []byte) string {
	const limit = 2048
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
