package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersion(t *testing.T) {
	s := newTestServer(t, newFakeStore())
	rr := executeTestRequest(t, s, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var rsp GetVersionRsp
	decodeBody(t, rr, &rsp)
	assert.Equal(t, "Portal Data Server: 0.1.0", rsp.ServerVersion)
	assert.Equal(t, "v1", rsp.ApiVersion)
}

func TestLoginIssuesSessionCookie(t *testing.T) {
	s := newTestServer(t, newFakeStore())

	rr := executeTestRequest(t, s, jsonRequest(t, http.MethodPost, "/auth/login", map[string]any{
		"email":      "admin@localhost",
		"access_key": "dev-access-key",
	}))
	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "portal_session", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestLoginRejectsBadKey(t *testing.T) {
	s := newTestServer(t, newFakeStore())
	rr := executeTestRequest(t, s, jsonRequest(t, http.MethodPost, "/auth/login", map[string]any{
		"email":      "admin@localhost",
		"access_key": "wrong",
	}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	s := newTestServer(t, newFakeStore())
	rr := executeTestRequest(t, s, jsonRequest(t, http.MethodPost, "/auth/login", map[string]any{
		"email":      "stranger@localhost",
		"access_key": "dev-access-key",
	}))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
