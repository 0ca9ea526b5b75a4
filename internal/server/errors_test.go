package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jonathan/vr-training-admin/internal/apiclient"
	"github.com/stretchr/testify/assert"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "pageSize", Message: "must be positive"}
	assert.Equal(t, "validation error: pageSize - must be positive", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestErrForbidden(t *testing.T) {
	err := &ErrForbidden{Permission: "archive"}
	assert.Equal(t, `permission "archive" required`, err.Error())
	assert.Equal(t, http.StatusForbidden, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil", err: nil, expected: http.StatusOK},
		{name: "local validation", err: &apiclient.ValidationError{Field: "data", Message: "empty"}, expected: http.StatusBadRequest},
		{name: "expired token", err: apiclient.ErrTokenExpired, expected: http.StatusUnauthorized},
		{name: "upstream not found", err: &apiclient.ServerError{StatusCode: 404}, expected: http.StatusNotFound},
		{name: "upstream conflict wrapped", err: fmt.Errorf("archive: %w", &apiclient.ServerError{StatusCode: 409}), expected: http.StatusConflict},
		{name: "upstream failure", err: &apiclient.ServerError{StatusCode: 503}, expected: http.StatusBadGateway},
		{name: "undecodable upstream body", err: &apiclient.ServerError{StatusCode: 200, Cause: errors.New("bad json")}, expected: http.StatusBadGateway},
		{name: "transport", err: &apiclient.TransportError{Cause: errors.New("refused")}, expected: http.StatusBadGateway},
		{name: "timeout", err: &apiclient.TransportError{Cause: context.DeadlineExceeded}, expected: http.StatusGatewayTimeout},
		{name: "unknown", err: assert.AnError, expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}
