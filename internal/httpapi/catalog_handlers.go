package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"applyflow-engine/internal/domain"
	"applyflow-engine/internal/portal"
	"applyflow-engine/internal/store"
)

type CatalogHandler struct {
	Catalog *store.JobCatalog
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	postings, err := h.Catalog.ListAll(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	if postings == nil {
		postings = []domain.JobPosting{}
	}
	writeJSON(w, http.StatusOK, postings)
}

// Ingest upserts a batch of postings into the shared catalog. URLs are
// canonicalized the same way the runner does, so catalog rows dedupe
// against each other and line up with the application ledger.
func (h *CatalogHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var postings []domain.JobPosting
	if err := json.NewDecoder(r.Body).Decode(&postings); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	stored := 0
	for _, p := range postings {
		p.URL = portal.CanonicalURL(p.URL)
		if p.URL == "" || strings.TrimSpace(p.Title) == "" {
			continue
		}
		if err := h.Catalog.Upsert(r.Context(), p); err != nil {
			WriteError(w, http.StatusInternalServerError, "upsert_failed", err.Error())
			return
		}
		stored++
	}
	writeJSON(w, http.StatusOK, map[string]int{"stored": stored})
}
