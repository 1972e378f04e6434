package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"applyflow-engine/internal/domain"
	"applyflow-engine/internal/events"
	"applyflow-engine/internal/run"
	"applyflow-engine/internal/store"
)

// Orchestrator is the slice of run.Orchestrator the API needs.
type Orchestrator interface {
	Start(ctx context.Context, userID int64) (string, error)
	Status(ctx context.Context, runID string) (domain.Run, error)
	Cancel(runID string) error
}

type RunsHandler struct {
	Orch Orchestrator
	Runs *store.RunStore
	Hub  *events.Hub
}

type startRunRequest struct {
	UserID int64 `json:"user_id"`
}

type startRunResponse struct {
	RunID string `json:"run_id"`
}

func (h *RunsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if req.UserID <= 0 {
		WriteError(w, http.StatusBadRequest, "invalid_user", "user_id must be positive")
		return
	}

	runID, err := h.Orch.Start(r.Context(), req.UserID)
	if err != nil {
		var already *run.AlreadyRunningError
		switch {
		case errors.As(err, &already):
			WriteError(w, http.StatusConflict, "already_running", err.Error())
		case errors.Is(err, store.ErrNotFound):
			WriteError(w, http.StatusNotFound, "profile_not_found", "no filter profile for user")
		default:
			WriteError(w, http.StatusInternalServerError, "start_failed", err.Error())
		}
		return
	}
	if h.Hub != nil {
		h.Hub.Publish(events.MakeEvent(RequestIDFrom(r.Context()), events.TypeRunCreated, 1, map[string]any{
			"run_id":  runID,
			"user_id": req.UserID,
		}))
	}
	writeJSON(w, http.StatusAccepted, startRunResponse{RunID: runID})
}

func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID, ok := pathTail(r.URL.Path, "/runs/")
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "missing run id")
		return
	}
	rec, err := h.Orch.Status(r.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "no such run")
			return
		}
		WriteError(w, http.StatusInternalServerError, "lookup_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *RunsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	tail, ok := pathTail(r.URL.Path, "/runs/")
	if !ok || !strings.HasSuffix(tail, "/cancel") {
		WriteError(w, http.StatusNotFound, "not_found", "missing run id")
		return
	}
	runID := strings.TrimSuffix(tail, "/cancel")
	runID = strings.Trim(runID, "/")
	if runID == "" {
		WriteError(w, http.StatusNotFound, "not_found", "missing run id")
		return
	}

	rec, err := h.Orch.Status(r.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "no such run")
			return
		}
		WriteError(w, http.StatusInternalServerError, "lookup_failed", err.Error())
		return
	}
	if rec.Status.Terminal() {
		WriteError(w, http.StatusConflict, "run_finished", "run already finished")
		return
	}
	if err := h.Orch.Cancel(runID); err != nil {
		WriteError(w, http.StatusConflict, "not_active", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (h *RunsHandler) ListByUser(w http.ResponseWriter, r *http.Request, userID int64) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	recs, err := h.Runs.ListByUser(r.Context(), userID, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	if recs == nil {
		recs = []domain.Run{}
	}
	writeJSON(w, http.StatusOK, recs)
}
