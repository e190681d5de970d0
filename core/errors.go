package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorConfiguration         = "SHOPIFY_CONFIGURATION"
	ErrorMissingArgument       = "SHOPIFY_MISSING_ARGUMENT"
	ErrorSessionStorage        = "SHOPIFY_SESSION_STORAGE"
	ErrorSessionNotFound       = "SHOPIFY_SESSION_NOT_FOUND"
	ErrorCookieNotFound        = "SHOPIFY_COOKIE_NOT_FOUND"
	ErrorInvalidHmac           = "SHOPIFY_INVALID_HMAC"
	ErrorInvalidCallback       = "SHOPIFY_INVALID_OAUTH_CALLBACK"
	ErrorInvalidSignature      = "SHOPIFY_INVALID_SIGNATURE"
	ErrorInvalidToken          = "SHOPIFY_INVALID_JWT"
	ErrorMissingToken          = "SHOPIFY_MISSING_JWT"
	ErrorInvalidWebhook        = "SHOPIFY_INVALID_WEBHOOK"
	ErrorInvalidSession        = "SHOPIFY_INVALID_SESSION"
	ErrorUnsupportedClientType = "SHOPIFY_UNSUPPORTED_CLIENT_TYPE"
	ErrorHTTPRequest           = "SHOPIFY_HTTP_REQUEST"
	ErrorHTTPResponse          = "SHOPIFY_HTTP_RESPONSE"
	ErrorInternal              = "SHOPIFY_INTERNAL_ERROR"
)

// NewError builds a go-errors envelope with the given kind.
func NewError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return StampTextCode(err)
}

func WrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	if source == nil {
		return NewError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return StampTextCode(err)
}

// StampTextCode copies the SHOPIFY_* text code of err into its metadata.
// goerrors.Wrap clones a wrapped envelope and callers such as go-command
// overwrite its TextCode, metadata is kept.
func StampTextCode(err *goerrors.Error) *goerrors.Error {
	if err != nil && strings.HasPrefix(err.TextCode, textCodePrefix) {
		err.WithMetadata(map[string]any{textCodeMetadataKey: err.TextCode})
	}
	return err
}

func NewConfigurationError(message string, metadata map[string]any) error {
	return NewError(message, goerrors.CategoryInternal, http.StatusInternalServerError, ErrorConfiguration, metadata)
}

func NewInternalError(source error, message string) error {
	return WrapError(source, goerrors.CategoryInternal, message, http.StatusInternalServerError, ErrorInternal, nil)
}

func NewArgumentError(message string, metadata map[string]any) error {
	return NewError(message, goerrors.CategoryBadInput, http.StatusBadRequest, ErrorMissingArgument, metadata)
}

func NewSessionStorageError(message string, source error, metadata map[string]any) error {
	return WrapError(source, goerrors.CategoryOperation, message, http.StatusInternalServerError, ErrorSessionStorage, metadata)
}

func NewSessionNotFoundError(id string) error {
	return NewError(
		"core: session not found",
		goerrors.CategoryNotFound,
		http.StatusNotFound,
		ErrorSessionNotFound,
		map[string]any{"session_id": strings.TrimSpace(id)},
	)
}

func NewCookieNotFoundError(message string, metadata map[string]any) error {
	return NewError(message, goerrors.CategoryAuth, http.StatusUnauthorized, ErrorCookieNotFound, metadata)
}

func NewInvalidHmacError(message string) error {
	return NewError(message, goerrors.CategoryBadInput, http.StatusBadRequest, ErrorInvalidHmac, nil)
}

func NewInvalidCallbackError(message string, metadata map[string]any) error {
	return NewError(message, goerrors.CategoryAuth, http.StatusUnauthorized, ErrorInvalidCallback, metadata)
}

func NewInvalidSignatureError(message string, metadata map[string]any) error {
	return NewError(message, goerrors.CategoryAuthz, http.StatusForbidden, ErrorInvalidSignature, metadata)
}

func NewInvalidTokenError(source error, message string, reason string) error {
	return WrapError(source, goerrors.CategoryAuth, message, http.StatusUnauthorized, ErrorInvalidToken, map[string]any{
		"reason": reason,
	})
}

func NewMissingTokenError(message string) error {
	return NewError(message, goerrors.CategoryAuth, http.StatusUnauthorized, ErrorMissingToken, nil)
}

func NewInvalidWebhookError(message string, code int, metadata map[string]any) error {
	category := goerrors.CategoryBadInput
	if code == http.StatusForbidden {
		category = goerrors.CategoryAuthz
	}
	return NewError(message, category, code, ErrorInvalidWebhook, metadata)
}

func NewInvalidSessionError(message string, metadata map[string]any) error {
	return NewError(message, goerrors.CategoryAuth, http.StatusUnauthorized, ErrorInvalidSession, metadata)
}

func NewUnsupportedClientTypeError(message string, metadata map[string]any) error {
	return NewError(message, goerrors.CategoryBadInput, http.StatusBadRequest, ErrorUnsupportedClientType, metadata)
}

// TextCode returns the outermost SHOPIFY_* text code in the chain of err.
// Envelopes added by other layers (go-command wraps handler failures) are
// skipped; when the chain has no SHOPIFY_* code the outermost code is used.
func TextCode(err error) string {
	fallback := ""
	for _, rich := range errorEnvelopes(err) {
		if code := envelopeTextCode(rich); code != "" {
			return code
		}
		if fallback == "" {
			fallback = rich.TextCode
		}
	}
	return fallback
}

// HasTextCode reports whether any envelope in the chain of err carries textCode.
func HasTextCode(err error, textCode string) bool {
	for _, rich := range errorEnvelopes(err) {
		if rich.TextCode == textCode || envelopeTextCode(rich) == textCode {
			return true
		}
	}
	return false
}

func IsSessionNotFound(err error) bool {
	return TextCode(err) == ErrorSessionNotFound
}

// ErrorReason returns the first "reason" metadata attached to an envelope
// in the chain of err.
func ErrorReason(err error) string {
	for _, rich := range errorEnvelopes(err) {
		if reason, ok := rich.Metadata["reason"].(string); ok && reason != "" {
			return reason
		}
	}
	return ""
}

const (
	textCodePrefix      = "SHOPIFY_"
	textCodeMetadataKey = "shopify_text_code"
)

// envelopeTextCode prefers the envelope's own SHOPIFY_* code, then the one
// stamped in its metadata.
func envelopeTextCode(rich *goerrors.Error) string {
	if strings.HasPrefix(rich.TextCode, textCodePrefix) {
		return rich.TextCode
	}
	if stamped, ok := rich.Metadata[textCodeMetadataKey].(string); ok {
		return stamped
	}
	return ""
}

// errorEnvelopes lists the envelopes in the chain of err, outermost first.
func errorEnvelopes(err error) []*goerrors.Error {
	var out []*goerrors.Error
	pending := []error{err}
	for len(pending) > 0 {
		current := pending[0]
		pending = pending[1:]
		if current == nil {
			continue
		}
		if rich, ok := current.(*goerrors.Error); ok && rich != nil {
			out = append(out, rich)
		}
		switch wrapped := current.(type) {
		case interface{ Unwrap() error }:
			pending = append(pending, wrapped.Unwrap())
		case interface{ Unwrap() []error }:
			pending = append(pending, wrapped.Unwrap()...)
		}
	}
	return out
}

// MapError converts any error into an envelope with an HTTP code and text code.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if code := TextCode(err); code != rich.TextCode && strings.HasPrefix(code, textCodePrefix) {
			rich = rich.Clone().WithTextCode(code)
		}
		return ensureErrorEnvelope(rich)
	}
	if errors.Is(err, http.ErrNoCookie) {
		return ensureErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryAuth).WithTextCode(ErrorCookieNotFound))
	}
	return ensureErrorEnvelope(goerrors.MapToError(err, goerrors.DefaultErrorMappers()))
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorMissingArgument
	case goerrors.CategoryNotFound:
		return ErrorSessionNotFound
	case goerrors.CategoryAuth:
		return ErrorInvalidToken
	case goerrors.CategoryAuthz:
		return ErrorInvalidSignature
	case goerrors.CategoryExternal:
		return ErrorHTTPResponse
	default:
		return ErrorInternal
	}
}

func httpStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
