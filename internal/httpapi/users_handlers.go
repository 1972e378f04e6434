package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"applyflow-engine/internal/domain"
	"applyflow-engine/internal/events"
	"applyflow-engine/internal/recommend"
	"applyflow-engine/internal/store"
)

type UsersHandler struct {
	Profiles        *store.ProfileStore
	Applications    *store.ApplicationLedger
	Recommendations *store.RecommendationStore
	Matcher         *recommend.Matcher
	Runs            *RunsHandler
	Hub             *events.Hub
	SetSecret       func(userID int64, password string) error
}

// ServeHTTP routes /users/{id}/... subresources by hand. The engine's surface
// is small enough that a router dependency would be dead weight.
func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tail, ok := pathTail(r.URL.Path, "/users/")
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "missing user id")
		return
	}
	parts := strings.Split(tail, "/")
	userID, err := parseUserID(parts[0])
	if err != nil || userID <= 0 {
		WriteError(w, http.StatusBadRequest, "invalid_user", "user id must be a positive integer")
		return
	}

	sub := strings.Join(parts[1:], "/")
	switch {
	case sub == "profile" && r.Method == http.MethodGet:
		h.getProfile(w, r, userID)
	case sub == "profile" && r.Method == http.MethodPut:
		h.putProfile(w, r, userID)
	case sub == "applications" && r.Method == http.MethodGet:
		h.listApplications(w, r, userID)
	case sub == "recommendations" && r.Method == http.MethodGet:
		h.listRecommendations(w, r, userID)
	case sub == "recommendations/regenerate" && r.Method == http.MethodPost:
		h.regenerate(w, r, userID)
	case sub == "runs" && r.Method == http.MethodGet:
		h.Runs.ListByUser(w, r, userID)
	case sub == "secrets/portal" && r.Method == http.MethodPost:
		h.setPortalSecret(w, r, userID)
	default:
		WriteError(w, http.StatusNotFound, "not_found", "no such resource")
	}
}

func (h *UsersHandler) getProfile(w http.ResponseWriter, r *http.Request, userID int64) {
	p, err := h.Profiles.GetFilterProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "no filter profile for user")
			return
		}
		WriteError(w, http.StatusInternalServerError, "lookup_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *UsersHandler) putProfile(w http.ResponseWriter, r *http.Request, userID int64) {
	var p domain.FilterProfile
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	p.UserID = userID
	if strings.TrimSpace(p.PortalUsername) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_profile", "portal_username is required")
		return
	}
	if len(p.Keywords) == 0 {
		WriteError(w, http.StatusBadRequest, "invalid_profile", "at least one keyword is required")
		return
	}
	if err := h.Profiles.Save(r.Context(), p); err != nil {
		WriteError(w, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *UsersHandler) listApplications(w http.ResponseWriter, r *http.Request, userID int64) {
	recs, err := h.Applications.List(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	if recs == nil {
		recs = []domain.ApplicationRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *UsersHandler) listRecommendations(w http.ResponseWriter, r *http.Request, userID int64) {
	recs, err := h.Recommendations.List(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	if recs == nil {
		recs = []domain.RecommendationRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *UsersHandler) regenerate(w http.ResponseWriter, r *http.Request, userID int64) {
	profile, err := h.Profiles.GetFilterProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "no filter profile for user")
			return
		}
		WriteError(w, http.StatusInternalServerError, "lookup_failed", err.Error())
		return
	}
	n, err := h.Matcher.Regenerate(r.Context(), userID, profile)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "regenerate_failed", err.Error())
		return
	}
	if h.Hub != nil {
		h.Hub.Publish(events.MakeEvent(RequestIDFrom(r.Context()), events.TypeRecsReplaced, 1, map[string]any{
			"user_id": userID,
			"count":   n,
		}))
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}

type portalSecretRequest struct {
	Password string `json:"password"`
}

func (h *UsersHandler) setPortalSecret(w http.ResponseWriter, r *http.Request, userID int64) {
	var req portalSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if req.Password == "" {
		WriteError(w, http.StatusBadRequest, "invalid_secret", "password must not be empty")
		return
	}
	if err := h.SetSecret(userID, req.Password); err != nil {
		WriteError(w, http.StatusInternalServerError, "keyring_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}
