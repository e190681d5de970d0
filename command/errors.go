package command

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-shopify-auth/core"
)

func commandDependencyError(message string) error {
	return core.StampTextCode(goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ErrorInternal))
}

func commandValidationError(field string, message string) error {
	return core.StampTextCode(goerrors.NewValidation("command: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ErrorMissingArgument).
		WithSeverity(goerrors.SeverityError))
}
