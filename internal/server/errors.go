package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/vr-training-admin/internal/apiclient"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrForbidden indicates the caller's token lacks a permission
type ErrForbidden struct {
	Permission string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("permission %q required", e.Permission)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		verr  *ErrValidation
		averr *apiclient.ValidationError
		ferr  *ErrForbidden
		serr  *apiclient.ServerError
		terr  *apiclient.TransportError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr), errors.As(err, &averr):
		return http.StatusBadRequest
	case errors.As(err, &ferr):
		return http.StatusForbidden
	case errors.Is(err, apiclient.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.As(err, &serr):
		// upstream client errors are the caller's problem, anything else is ours
		if serr.StatusCode >= 400 && serr.StatusCode < 500 {
			return serr.StatusCode
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &terr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
