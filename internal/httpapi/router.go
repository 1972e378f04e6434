package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still wrap it in middleware.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Runs
	rh := &RunsHandler{Orch: d.Orch, Runs: d.Runs, Hub: d.Hub}
	mux.Handle("/runs", methodMux{
		http.MethodPost: rh.Start,
	})
	mux.Handle("/runs/", methodMux{
		http.MethodGet:  rh.Get,    // /runs/{id}
		http.MethodPost: rh.Cancel, // /runs/{id}/cancel
	})

	// Users: profile, applications, recommendations, secrets
	uh := &UsersHandler{
		Profiles:        d.Profiles,
		Applications:    d.Applications,
		Recommendations: d.Recommendations,
		Matcher:         d.Matcher,
		Runs:            rh,
		Hub:             d.Hub,
		SetSecret:       d.SetSecret,
	}
	mux.Handle("/users/", uh)

	// Shared job catalog
	ch := &CatalogHandler{Catalog: d.Catalog}
	mux.Handle("/catalog", methodMux{
		http.MethodGet:  ch.List,
		http.MethodPost: ch.Ingest,
	})

	// Config
	cfh := ConfigHandler{CfgVal: d.CfgVal, UserCfgPath: d.UserCfgPath}
	mux.Handle("/config", methodMux{
		http.MethodGet: cfh.Get,
		http.MethodPut: cfh.Put,
	})
	mux.Handle("/config/path", methodMux{
		http.MethodGet: cfh.Path,
	})
	mux.Handle("/config/validate", methodMux{
		http.MethodGet: cfh.Validate,
	})

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.Handle("/events", methodMux{
		http.MethodGet: eh.ServeSSE,
	})

	hh := HealthHandler{}
	mux.Handle("/health", methodMux{
		http.MethodGet: hh.Health,
	})

	return mux
}
