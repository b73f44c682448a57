package http

import (
	"context"
	"errors"
	"net/http"

	"expenseflow/internal/core"
	"expenseflow/internal/log"
)

// writeError maps a service error to its HTTP status. Unexpected errors
// are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		FieldError(ve.Field, ve.Message).Write(w)
	case errors.Is(err, core.ErrUnauthorized):
		ErrorResponse(http.StatusUnauthorized, "unauthorized", "authentication required").Write(w)
	case errors.Is(err, core.ErrForbidden):
		ErrorResponse(http.StatusForbidden, "forbidden", "you are not allowed to do this").Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("resource not found").Write(w)
	case errors.Is(err, core.ErrConflict):
		ErrorResponse(http.StatusConflict, "conflict", "resource already exists").Write(w)
	case errors.Is(err, core.ErrUnavailable):
		logger.WarnContext(ctx, "Dependency unavailable", log.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable").Write(w)
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
		w.WriteHeader(499)
	default:
		logger.ErrorContext(ctx, "Request failed", log.FieldPath, r.URL.Path, log.FieldError, err)
		InternalServerError().Write(w)
	}
}
