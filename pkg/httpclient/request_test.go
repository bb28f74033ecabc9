package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequestDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	var out struct {
		Status string `json:"status"`
	}
	err := New(nil).DoRequest(context.Background(), http.MethodGet, srv.URL, map[string]string{"X-Api-Key": "secret"}, nil, &out)
	require.NoError(t, err)
	require.Equal(t, "ok", out.Status)
}

func TestDoRequestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","message":"bad key"}`))
	}))
	defer srv.Close()

	err := New(nil).DoRequest(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusUnauthorized, se.StatusCode)
	require.Equal(t, "bad key", se.Message)
}

func TestDoRequestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(nil).DoRequest(ctx, http.MethodGet, "http://127.0.0.1:1", nil, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
}
