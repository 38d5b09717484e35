package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/storage-config-detail/detail"
	"github.com/ruteri/storage-config-detail/interfaces"
	"github.com/ruteri/storage-config-detail/notify"
)

func newStubServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()

	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.RequestURI())
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/storage/configs/cfg-1":
			json.NewEncoder(w).Encode(detail.Snapshot{ConfigID: "cfg-1", State: detail.StateReady})
		case r.Method == http.MethodGet && r.URL.Path == "/api/storage/configs/missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"configuration not found"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/storage/configs/cfg-1/resync":
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"resync already in progress"}`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/api/notifications":
			json.NewEncoder(w).Encode([]notify.Notification{
				{Kind: interfaces.NotifySuccess, Title: "Sync completed"},
			})
		default:
			w.WriteHeader(http.StatusTeapot)
			w.Write([]byte("unexpected"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestDetailClient(t *testing.T) {
	srv, requests := newStubServer(t)
	c := &DetailClient{ServerAddr: srv.URL}
	ctx := context.Background()

	s, err := c.GetConfig(ctx, "cfg-1", true)
	require.NoError(t, err)
	assert.Equal(t, "cfg-1", s.ConfigID)
	assert.Equal(t, detail.StateReady, s.State)

	_, err = c.GetConfig(ctx, "missing", false)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "configuration not found")

	_, err = c.Resync(ctx, "cfg-1")
	assert.True(t, IsStatus(err, http.StatusConflict))

	require.NoError(t, c.CloseConfig(ctx, "cfg-1"))

	items, err := c.Notifications(ctx, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Sync completed", items[0].Title)

	assert.Equal(t, []string{
		"GET /api/storage/configs/cfg-1?reload=1",
		"GET /api/storage/configs/missing",
		"POST /api/storage/configs/cfg-1/resync",
		"DELETE /api/storage/configs/cfg-1",
		"GET /api/notifications?drain=1",
	}, *requests)
}

func TestDetailClient_Unreachable(t *testing.T) {
	c := &DetailClient{ServerAddr: "http://127.0.0.1:1"}
	_, err := c.GetConfig(context.Background(), "cfg-1", false)
	require.Error(t, err)
	assert.False(t, IsStatus(err, http.StatusNotFound))
}
