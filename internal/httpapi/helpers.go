package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[httpapi] encode response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// methodMux dispatches on HTTP method for a single path.
type methodMux map[string]http.HandlerFunc

func (m methodMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := m[r.Method]; ok {
		h(w, r)
		return
	}
	allowed := make([]string, 0, len(m))
	for k := range m {
		allowed = append(allowed, k)
	}
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

// pathTail returns the remainder of the URL path after prefix, with any
// trailing slash stripped. ok is false when the path does not start with
// prefix or the remainder is empty.
func pathTail(path, prefix string) (string, bool) {
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return "", false
	}
	return rest, true
}

func parseUserID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
