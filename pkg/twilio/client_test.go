package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/PhoneNumbers/+14155550134", r.URL.Path)
		assert.Equal(t, "line_type_intelligence", r.URL.Query().Get("Fields"))

		sid, secret, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "test-sid", sid)
		assert.Equal(t, "test-secret", secret)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"valid": true,
			"phone_number": "+14155550134",
			"country_code": "US",
			"line_type_intelligence": {
				"type": "mobile",
				"carrier_name": "AT&T Mobility"
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))

	resp, err := c.Lookup(context.Background(), "+14155550134", "test-sid", "test-secret")
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, "mobile", resp.LineTypeIntelligence.Type)
	assert.Equal(t, "AT&T Mobility", resp.LineTypeIntelligence.CarrierName)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/PhoneNumbers/+14155550134/Status", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"reachable": false, "active": false, "ported": true, "status_reason": "deactivated"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))

	resp, err := c.Status(context.Background(), "+14155550134", "test-sid", "test-secret")
	require.NoError(t, err)
	assert.False(t, resp.Active)
	assert.True(t, resp.Ported)
	assert.Equal(t, "deactivated", resp.StatusReason)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"code": 20429, "message": "Too Many Requests"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))

	_, err := c.Lookup(context.Background(), "+14155550134", "test-sid", "test-secret")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, 20429, apiErr.Code)
}
