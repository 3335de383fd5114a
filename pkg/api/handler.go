package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/eip3074-protection/pkg/ethereum"
	"github.com/ethpandaops/eip3074-protection/pkg/report"
	"github.com/ethpandaops/eip3074-protection/pkg/runner"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// Trigger runs the scenario on demand.
type Trigger interface {
	Run(ctx context.Context) (*runner.Result, error)
}

type Handler struct {
	log    logrus.FieldLogger
	runner Trigger
	store  report.Store
}

func NewHandler(log logrus.FieldLogger, trigger Trigger, store report.Store) *Handler {
	return &Handler{
		log:    log,
		runner: trigger,
		store:  store,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/runs", h.listRuns)
	mux.HandleFunc("GET /api/v1/runs/latest", h.latestRun)
	mux.HandleFunc("POST /api/v1/runs", h.triggerRun)
}

type ListRunsResponse struct {
	Count int              `json:"count"`
	Runs  []*runner.Result `json:"runs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) latestRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.store.Latest(r.Context())
	if err != nil {
		if errors.Is(err, report.ErrNoResults) {
			h.writeError(w, http.StatusNotFound, "no runs recorded yet")

			return
		}

		h.log.WithError(err).Error("Failed to read latest run")
		h.writeError(w, http.StatusInternalServerError, "failed to read latest run")

		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultListLimit)

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")

			return
		}

		limit = min(parsed, maxListLimit)
	}

	results, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to list runs")
		h.writeError(w, http.StatusInternalServerError, "failed to list runs")

		return
	}

	if results == nil {
		results = []*runner.Result{}
	}

	h.writeJSON(w, http.StatusOK, ListRunsResponse{Count: len(results), Runs: results})
}

func (h *Handler) triggerRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Run(r.Context())
	if err != nil {
		if errors.Is(err, ethereum.ErrNodeNotReady) {
			h.writeError(w, http.StatusServiceUnavailable, err.Error())

			return
		}

		h.writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.WithError(err).Error("failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{Error: message})
}
