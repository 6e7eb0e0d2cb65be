package http

import (
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

// validationErrors are reported to the client verbatim with 400.
var validationErrors = []error{
	core.ErrInvalidKind,
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrEmptyTitle,
	core.ErrTitleTooLong,
	core.ErrEmptyCategory,
	core.ErrEmptyPatch,
	core.ErrMissingUser,
	core.ErrEmptyEmail,
	core.ErrInvalidEmail,
	core.ErrEmptyName,
	core.ErrWeakPassword,
	core.ErrLongPassword,
	core.ErrPictureTooLarge,
}

// errorResponse maps an error to its client-facing response. notFound is
// the message used when the store reports a missing record.
func errorResponse(err error, notFound string) *JSONResponseBuilder {
	switch {
	case errors.Is(err, errMissingFields):
		return BadRequestError("Missing required fields")
	case errors.Is(err, errMalformedBody):
		return BadRequestError("Invalid request body")
	case errors.Is(err, errBodyTooLarge):
		return ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large")
	case errors.Is(err, store.ErrEmailTaken):
		return BadRequestError("Email already registered")
	case errors.Is(err, services.ErrInvalidCredentials):
		return UnauthorizedError("Invalid credentials")
	case errors.Is(err, services.ErrWrongPassword):
		return UnauthorizedError("Current password is incorrect")
	case errors.Is(err, auth.ErrMissingToken):
		return UnauthorizedError("Missing authorization token")
	case errors.Is(err, auth.ErrInvalidToken):
		return UnauthorizedError("Invalid or expired token")
	case errors.Is(err, store.ErrNotFound):
		return NotFoundError(notFound)
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return BadRequestError(v.Error())
		}
	}
	return InternalServerError()
}

// writeError logs unexpected failures before answering with 500.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	resp := errorResponse(err, notFound)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err.Error(),
			applog.FieldErrorType, applog.ErrorTypeInternal,
			applog.FieldPath, r.URL.Path)
	}
	resp.Write(w)
}
