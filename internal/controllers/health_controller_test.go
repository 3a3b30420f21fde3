package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthController(t *testing.T) {
	healthy := NewHealthController(func(ctx context.Context) error { return nil })
	w := httptest.NewRecorder()
	send(healthy.handleHealth)(w, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	down := NewHealthController(func(ctx context.Context) error { return errors.New("db down") })
	w = httptest.NewRecorder()
	send(down.handleHealth)(w, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
