package controller

import (
	"context"
	"errors"
	"evacuation-dashboard/internal/adapters/gateway"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadServerErrorReachesNotifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"db down"}`))
	}))
	defer srv.Close()

	client := gateway.New(gateway.Options{BaseURL: srv.URL + "/api", Logger: zap.NewNop()})
	rec := &recorder{}
	c, err := New(Options{Gateway: client.Plans, Notifier: rec, Logger: zap.NewNop()})
	require.NoError(t, err)

	err = c.Load(context.Background())
	require.Error(t, err)
	assert.False(t, c.Loading())
	assert.Empty(t, c.Plans())

	notices := rec.All()
	require.Len(t, notices, 1)
	assert.Equal(t, "load plans", notices[0].op)
	assert.EqualError(t, notices[0].err, "db down")

	var apiErr *gateway.APIError
	require.True(t, errors.As(notices[0].err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}
