package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"leadgenius-engine/internal/events"
	"leadgenius-engine/internal/scout"
)

// NewMux returns the raw mux so serve can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Hub == nil {
		d.Hub = events.NewHub()
	}
	if d.ScoutStatus == nil {
		d.ScoutStatus = &scout.StatusTracker{}
	}
	mux := http.NewServeMux()

	hh := HealthHandler{Hub: d.Hub}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Leads
	lh := LeadsHandler{Leads: d.Leads, Scout: d.Scout, Hub: d.Hub, Config: d.Config}
	mux.HandleFunc("/leads", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.List,
	}))
	mux.HandleFunc("/leads/{id}", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.Get,
	}))
	mux.HandleFunc("/leads/{id}/save", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: lh.ToggleSave,
	}))
	mux.HandleFunc("/leads/{id}/intelligence", methodMux(map[string]http.HandlerFunc{
		http.MethodPatch: lh.PatchIntelligence,
	}))
	mux.HandleFunc("/leads/{id}/competitor", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: lh.Competitor,
	}))

	// Scouting
	sch := ScoutHandler{Scout: d.Scout, Tracker: d.ScoutStatus, Hub: d.Hub, Log: d.Logger}
	mux.HandleFunc("/scout", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sch.Run,
	}))
	mux.HandleFunc("/scout/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sch.Status,
	}))

	// Assistant
	cth := ChatHandler{Assistant: d.Assistant, Greeting: d.Greeting, Log: d.Logger}
	mux.HandleFunc("/chat", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  cth.Greet,
		http.MethodPost: cth.Turn,
	}))

	// Snapshots. Import replaces everything, so it is loopback only.
	dh := DBHandler{Snapshots: d.Snapshots, Hub: d.Hub, Log: d.Logger}
	mux.HandleFunc("/db/export", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: dh.Export,
	}))
	mux.HandleFunc("/db/import", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: LocalOnly(dh.Import),
	}))

	// Config
	if d.Config != nil {
		ch := ConfigHandler{Config: d.Config, OnSaved: d.OnConfigSaved}
		mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
			http.MethodGet: ch.Get,
			http.MethodPut: ch.Put,
		}))
		mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
			http.MethodGet: ch.Path,
		}))
		mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
			http.MethodGet: ch.Validate,
		}))
	}

	// Secrets
	if d.Keys != nil {
		sh := SecretsHandler{Keys: d.Keys}
		mux.HandleFunc("/api/secrets/apikey", methodMux(map[string]http.HandlerFunc{
			http.MethodGet:    sh.Status,
			http.MethodPost:   LocalOnly(sh.SetAPIKey),
			http.MethodDelete: LocalOnly(sh.DeleteAPIKey),
		}))
	}

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	mux.Handle("/metrics", d.Metrics.Handler())

	return mux
}

// Handler wraps the mux with the standard middleware stack.
func Handler(mux http.Handler, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return Chain(mux, RequestID, Recover(log), AccessLog(log), Cors)
}
