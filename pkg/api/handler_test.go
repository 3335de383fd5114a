package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/eip3074-protection/pkg/api"
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum"
	"github.com/ethpandaops/eip3074-protection/pkg/report"
	"github.com/ethpandaops/eip3074-protection/pkg/runner"
)

type fakeTrigger struct {
	store report.Store
	err   error
	runs  int
}

func (f *fakeTrigger) Run(ctx context.Context) (*runner.Result, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.runs++

	result := &runner.Result{ID: fmt.Sprintf("run-%d", f.runs), Network: "dev", ChainID: 1337}

	return result, f.store.Save(ctx, result)
}

func newServer(t *testing.T, trigger *fakeTrigger, store report.Store) *httptest.Server {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	mux := http.NewServeMux()
	api.NewHandler(log, trigger, store).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestHandler_LatestEmpty(t *testing.T) {
	store := report.NewMemoryStore(10)
	srv := newServer(t, &fakeTrigger{store: store}, store)

	resp, err := http.Get(srv.URL + "/api/v1/runs/latest")
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_TriggerThenLatest(t *testing.T) {
	store := report.NewMemoryStore(10)
	srv := newServer(t, &fakeTrigger{store: store}, store)

	for i := 0; i < 2; i++ {
		resp, err := http.Post(srv.URL+"/api/v1/runs", "application/json", nil)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/api/v1/runs/latest")
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var latest runner.Result

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&latest))
	assert.Equal(t, "run-2", latest.ID)
	assert.Equal(t, uint64(1337), latest.ChainID)
}

func TestHandler_ListRuns(t *testing.T) {
	store := report.NewMemoryStore(10)
	trigger := &fakeTrigger{store: store}
	srv := newServer(t, trigger, store)

	for i := 0; i < 3; i++ {
		_, err := trigger.Run(context.Background())
		require.NoError(t, err)
	}

	resp, err := http.Get(srv.URL + "/api/v1/runs?limit=2")
	require.NoError(t, err)

	defer resp.Body.Close()

	var list api.ListRunsResponse

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "run-3", list.Runs[0].ID)

	bad, err := http.Get(srv.URL + "/api/v1/runs?limit=abc")
	require.NoError(t, err)
	require.NoError(t, bad.Body.Close())
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestHandler_TriggerErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not ready", err: fmt.Errorf("deploy OnlyEOAs: %w", ethereum.ErrNodeNotReady), status: http.StatusServiceUnavailable},
		{name: "failure", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := report.NewMemoryStore(10)
			srv := newServer(t, &fakeTrigger{store: store, err: tt.err}, store)

			resp, err := http.Post(srv.URL+"/api/v1/runs", "application/json", nil)
			require.NoError(t, err)

			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)

			var body api.ErrorResponse

			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Contains(t, body.Error, tt.err.Error())
		})
	}
}
