package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docask/internal/ai"
	appErr "github.com/xxxsen/docask/internal/pkg/errors"
)

func runHandleError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/ask", nil)
	handleError(c, err)
	return w
}

func TestHandleErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: appErr.ErrNotFound, want: http.StatusNotFound},
		{name: "invalid", err: appErr.ErrInvalid, want: http.StatusBadRequest},
		{name: "unsupported format", err: fmt.Errorf("%w: application/zip", appErr.ErrUnsupportedFormat), want: http.StatusUnsupportedMediaType},
		{name: "decode failed", err: fmt.Errorf("%w: bad pdf", appErr.ErrDecodeFailed), want: http.StatusBadRequest},
		{name: "conflict", err: appErr.ErrConflict, want: http.StatusConflict},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, runHandleError(t, tt.err).Code)
		})
	}
}

func TestHandleErrorUnconfiguredProviderIsBadGateway(t *testing.T) {
	// A provider without credentials surfaces through the service wrapped;
	// it must still map to 502, not a generic 500.
	err := fmt.Errorf("completion: %w", ai.ErrUnavailable)
	w := runHandleError(t, err)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Contains(t, w.Body.String(), "ai_unavailable")
}
