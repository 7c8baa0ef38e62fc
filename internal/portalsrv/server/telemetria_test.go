package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEventUnauthenticatedIsAccepted(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	req := jsonRequest(t, http.MethodPost, "/telemetria/event", map[string]any{"page_path": "/portal"})
	rr := executeTestRequest(t, s, req)
	require.Equal(t, http.StatusAccepted, rr.Code)
	var rsp map[string]any
	decodeBody(t, rr, &rsp)
	assert.Equal(t, true, rsp["success"])
	assert.Equal(t, true, rsp["ignored"])
	assert.Empty(t, store.events)
}

func TestRecordEventStoresHashedIdentifiers(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	req := withAdminSession(t, jsonRequest(t, http.MethodPost, "/telemetria/event", map[string]any{
		"page_path":  "/projetos/p1",
		"page_title": "Projeto P1",
	}))
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rr := executeTestRequest(t, s, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var rsp map[string]any
	decodeBody(t, rr, &rsp)
	assert.Equal(t, true, rsp["success"])
	assert.NotContains(t, rsp, "ignored")

	require.Len(t, store.events, 1)
	event := store.events[0]
	assert.Equal(t, "admin@localhost", event.UserEmail)
	assert.Equal(t, "/projetos/p1", event.PagePath)
	assert.Equal(t, "page_view", event.EventType)
	assert.Len(t, event.IPHash, 64, "client ip is stored as sha256")
	assert.NotContains(t, event.IPHash, "203.0.113.7")
	assert.Len(t, event.SessionID, 64, "session token is stored as sha256")
}

func TestRecordEventOutsideAllowListIsIgnored(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	req := withAdminSession(t, jsonRequest(t, http.MethodPost, "/telemetria/event", map[string]any{
		"page_path": "/admin/itens",
	}))
	rr := executeTestRequest(t, s, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var rsp map[string]any
	decodeBody(t, rr, &rsp)
	assert.Equal(t, true, rsp["ignored"])
	assert.Empty(t, store.events)
}

func TestTelemetryOverview(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	req := withAdminSession(t, jsonRequest(t, http.MethodPost, "/telemetria/event", map[string]any{
		"page_path": "/portal",
	}))
	require.Equal(t, http.StatusOK, executeTestRequest(t, s, req).Code)

	rr := executeTestRequest(t, s, httptest.NewRequest(http.MethodGet, "/admin/telemetria/overview?days=1000", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "overview is admin only")

	req = withAdminSession(t, httptest.NewRequest(http.MethodGet, "/admin/telemetria/overview?days=1000", nil))
	rr = executeTestRequest(t, s, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var overview map[string]any
	decodeBody(t, rr, &overview)
	assert.EqualValues(t, 180, overview["days"], "window is clamped")
	assert.EqualValues(t, 1, overview["events"])
}
