package wachat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/contacts", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var payload struct {
			Blocking string   `json:"blocking"`
			Contacts []string `json:"contacts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "wait", payload.Blocking)
		assert.Equal(t, []string{"+14155550134"}, payload.Contacts)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"registered": true,
			"wa_id": "14155550134",
			"verified": true,
			"is_business": true,
			"profile_name": "Acme Corp"
		}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))

	resp, err := c.Lookup(context.Background(), "+14155550134", "test-token")
	require.NoError(t, err)
	assert.True(t, resp.Registered)
	assert.True(t, resp.Verified)
	assert.True(t, resp.BusinessHint)
	assert.Equal(t, "Acme Corp", resp.ProfileName)
}

func TestLookupAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code": "token_expired", "message": "access token expired"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))

	_, err := c.Lookup(context.Background(), "+14155550134", "stale-token")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "token_expired", apiErr.Code)
}
