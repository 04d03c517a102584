package fakeapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	api := NewServer("test-secret", nil)
	require.NoError(t, api.SeedUser("dev@example.com", "password", "Dev User", "user"))
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return api, srv
}

func TestLoginIssuesUsableToken(t *testing.T) {
	_, srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{
		"email":    "dev@example.com",
		"password": "password",
	})
	resp, err := http.Post(srv.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	require.NotEmpty(t, login.Token)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/check-token", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	check, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer check.Body.Close()
	require.Equal(t, http.StatusOK, check.StatusCode)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	_, srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{
		"email":    "dev@example.com",
		"password": "wrong",
	})
	resp, err := http.Post(srv.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckTokenReportsExpiry(t *testing.T) {
	api, srv := newTestServer(t)

	token, err := api.Mint("dev@example.com", -time.Hour)
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/check-token", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body struct {
		Expired bool `json:"expired"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Expired)
}

func TestCheckTokenRejectsGarbage(t *testing.T) {
	_, srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/check-token", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
