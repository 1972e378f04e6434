package httpapi

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"sync/atomic"

	"applyflow-engine/internal/config"
)

type ConfigHandler struct {
	CfgVal      *atomic.Value // stores config.Config
	UserCfgPath string
}

func (h ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cur := h.CfgVal.Load().(config.Config)
	writeJSON(w, http.StatusOK, cur)
}

// Put persists a full replacement config. Settings that feed long-lived
// components (worker slots, redis URL, port) take effect on restart; the
// saved file is still validated and reloaded here so GET reflects it.
func (h ConfigHandler) Put(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var incoming config.Config
	if err := dec.Decode(&incoming); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if dec.More() {
		WriteError(w, http.StatusBadRequest, "invalid_json", "trailing data")
		return
	}

	if err := config.Validate(incoming); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_config", err.Error())
		return
	}

	if err := config.SaveAtomic(h.UserCfgPath, incoming); err != nil {
		WriteError(w, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}

	saved, err := config.Load(h.UserCfgPath)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "reload_failed", "saved but reload failed: "+err.Error())
		return
	}
	h.CfgVal.Store(saved)
	writeJSON(w, http.StatusOK, saved)
}

func (h ConfigHandler) Path(w http.ResponseWriter, r *http.Request) {
	abs, _ := filepath.Abs(h.UserCfgPath)
	writeJSON(w, http.StatusOK, map[string]any{"path": abs})
}

func (h ConfigHandler) Validate(w http.ResponseWriter, r *http.Request) {
	cur := h.CfgVal.Load().(config.Config)
	body := map[string]any{"ok": true, "warnings": config.Warnings(cur)}
	if err := config.Validate(cur); err != nil {
		body["ok"] = false
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}
