package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"evacuation-dashboard/internal/domain"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/api/", Headers: map[string]string{"X-Client": "dashboard"}}), srv
}

func TestListReturnsPlans(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/evacuation-plans", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "dashboard", r.Header.Get("X-Client"))
		_, _ = io.WriteString(w, `[{"id":"plan-1","name":"Mumbai Coastal Evacuation Plan","area":"Mumbai Coastal Areas",
			"capacity":50000,"shelters":[],"routes":[],"status":"active","lastUpdated":"2024-12-10T00:00:00.123456Z"}]`)
	})

	plans, err := c.Plans.List(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "plan-1", plans[0].ID)
	assert.Equal(t, domain.PlanActive, plans[0].Status)
	assert.Equal(t, 2024, plans[0].LastUpdated.Year())
}

func TestListNullBodyIsEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `null`)
	})

	plans, err := c.Plans.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, plans)
	assert.Empty(t, plans)
}

func TestErrorBodyMessageSurfaces(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"db down"}`)
	})

	_, err := c.Plans.List(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "db down", apiErr.Message)
	assert.Equal(t, "db down", err.Error())
}

func TestErrorBodyMessageField(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"name is required"}`)
	})

	_, err := c.Plans.Create(context.Background(), domain.EvacuationPlan{})
	require.Error(t, err)
	assert.Equal(t, "name is required", err.Error())
}

func TestErrorBodyUnparseableFallsBack(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `<html>bad gateway</html>`)
	})

	_, err := c.Plans.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, "HTTP error, status 502", err.Error())
}

func TestSuccessBodyUnparseable(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"not":"an array"`)
	})

	_, err := c.Plans.List(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.Status)
	assert.Contains(t, apiErr.Message, "decode GET /evacuation-plans")
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url})
	_, err := c.Plans.List(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.Status)
	assert.Contains(t, apiErr.Message, "network error")
	assert.NotNil(t, errors.Unwrap(err))
}

func TestSingleAttemptNoRetry(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Plans.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	c := func() *Client {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		t.Cleanup(srv.Close)
		t.Cleanup(func() { close(release) })
		return New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	}()

	_, err := c.Plans.List(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.Status)
}

func TestCreateSendsPlan(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var got domain.EvacuationPlan
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "Test", got.Name)
		assert.NotNil(t, got.Shelters)

		got.LastUpdated = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(got)
	})

	draft := domain.PlanDraft{Name: "Test", Area: "Zone1", Capacity: 100}
	created, err := c.Plans.Create(context.Background(), draft.NewPlan("id-1", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "id-1", created.ID)
	assert.Equal(t, 2026, created.LastUpdated.Year())
}

func TestUpdateAckShapes(t *testing.T) {
	var body string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/evacuation-plans/plan%2F1", r.URL.EscapedPath())
		_, _ = io.WriteString(w, body)
	})

	plan := domain.EvacuationPlan{ID: "plan/1", Status: domain.PlanActive}

	body = `{"message":"Evacuation plan updated successfully"}`
	ack, err := c.Plans.Update(context.Background(), plan.ID, plan)
	require.NoError(t, err)
	assert.Equal(t, "Evacuation plan updated successfully", ack.Message)
	assert.Nil(t, ack.Plan)

	body = `{"id":"plan/1","name":"X","status":"active","lastUpdated":"2026-01-01T00:00:00Z"}`
	ack, err = c.Plans.Update(context.Background(), plan.ID, plan)
	require.NoError(t, err)
	require.NotNil(t, ack.Plan)
	assert.Equal(t, domain.PlanActive, ack.Plan.Status)

	body = ``
	ack, err = c.Plans.Update(context.Background(), plan.ID, plan)
	require.NoError(t, err)
	assert.Empty(t, ack.Message)
}

func TestDeleteAndHealth(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/evacuation-plans/plan-1":
			assert.Equal(t, http.MethodDelete, r.Method)
			_, _ = io.WriteString(w, `{"message":"Evacuation plan deleted successfully"}`)
		case "/api/health":
			_, _ = io.WriteString(w, `{"status":"ok","message":"Server is running"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Evacuation plan not found"}`)
		}
	})

	ack, err := c.Plans.Delete(context.Background(), "plan-1")
	require.NoError(t, err)
	assert.Equal(t, "Evacuation plan deleted successfully", ack.Message)

	_, err = c.Plans.Delete(context.Background(), "missing")
	require.EqualError(t, err, "Evacuation plan not found")

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}

func TestNewDefaults(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.session.Timeout)
}
