package httpapi

import (
	"net/http"

	"leadgenius-engine/internal/events"
)

type HealthHandler struct {
	Hub *events.Hub
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"ok":          true,
		"subscribers": h.Hub.Subscribers(),
	})
}
