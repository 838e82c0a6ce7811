package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/prefabstore/internal/http/handlers"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("no route to host") }

	serve := func(checks map[string]handlers.Check) *httptest.ResponseRecorder {
		h := handlers.NewHealthHandler(checks)
		r := gin.New()
		r.GET("/readyz", h.Readyz)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		return w
	}

	w := serve(map[string]handlers.Check{"postgres": up})
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(map[string]handlers.Check{"postgres": up, "redis": down})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"down"`)
	assert.NotContains(t, w.Body.String(), "no route")
}
