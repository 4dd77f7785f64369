package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/store"
)

type stubValidator struct {
	result *model.ValidationResult
	err    error
}

func (s *stubValidator) Validate(ctx context.Context, req model.InputRequest) (*model.ValidationResult, error) {
	return s.result, s.err
}

func newServeEnv(t *testing.T, ctx context.Context, v validator) (*httptest.Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	srv := httptest.NewServer(newServeMux(ctx, st, v))
	t.Cleanup(srv.Close)
	return srv, st
}

func TestServeHealth(t *testing.T) {
	srv, _ := newServeEnv(t, context.Background(), &stubValidator{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeWebhookValidate(t *testing.T) {
	v := &stubValidator{result: &model.ValidationResult{
		Success:    true,
		Confidence: model.ConfidenceRecord{Score: 90},
	}}
	srv, st := newServeEnv(t, context.Background(), v)

	resp, err := http.Post(srv.URL+"/webhook/validate", "application/json",
		strings.NewReader(`{"number": "+14155550134"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	require.NotEmpty(t, accepted.RunID)

	require.Eventually(t, func() bool {
		run, err := st.GetRun(context.Background(), accepted.RunID)
		return err == nil && run.Status == model.RunStatusComplete
	}, time.Second, 10*time.Millisecond)

	run, err := st.GetRun(context.Background(), accepted.RunID)
	require.NoError(t, err)
	require.NotNil(t, run.Result)
	assert.Equal(t, 90, run.Result.Confidence.Score)
}

func TestServeWebhookPersistsResultAfterShutdown(t *testing.T) {
	// A shutdown cancels the server context mid-validation. The run must
	// still reach a terminal status instead of staying "running".
	ctx, cancel := context.WithCancel(context.Background())
	v := &stubValidator{
		result: &model.ValidationResult{Success: false, ErrorCode: "SYSTEM_FAILURE"},
		err:    context.Canceled,
	}
	srv, st := newServeEnv(t, ctx, v)
	cancel()

	resp, err := http.Post(srv.URL+"/webhook/validate", "application/json",
		strings.NewReader(`{"number": "+14155550134"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))

	require.Eventually(t, func() bool {
		run, err := st.GetRun(context.Background(), accepted.RunID)
		return err == nil && run.Status == model.RunStatusFailed
	}, time.Second, 10*time.Millisecond)
}

func TestServeWebhookRejectsBadInput(t *testing.T) {
	srv, _ := newServeEnv(t, context.Background(), &stubValidator{})

	resp, err := http.Post(srv.URL+"/webhook/validate", "application/json",
		strings.NewReader(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/webhook/validate", "application/json",
		strings.NewReader(`{"country_hint": "US"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeGetRunNotFound(t *testing.T) {
	srv, _ := newServeEnv(t, context.Background(), &stubValidator{})

	resp, err := http.Get(srv.URL + "/runs/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
