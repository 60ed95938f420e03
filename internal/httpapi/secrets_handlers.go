package httpapi

import (
	"net/http"
	"strings"

	"leadgenius-engine/internal/secrets"
)

type SecretsHandler struct {
	Keys KeyStore
}

type setAPIKeyReq struct {
	APIKey string `json:"apiKey"`
}

// Status never returns the key itself.
func (h SecretsHandler) Status(w http.ResponseWriter, r *http.Request) {
	_, src, err := h.Keys.Lookup()
	writeJSON(w, map[string]any{
		"configured": err == nil && src != secrets.SourceNone,
		"source":     string(src),
	})
}

func (h SecretsHandler) SetAPIKey(w http.ResponseWriter, r *http.Request) {
	var req setAPIKeyReq
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_params", "apiKey is required")
		return
	}
	if err := h.Keys.Set(req.APIKey); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "keyring_failed", "failed to store key: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := h.Keys.Delete(); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "keyring_failed", "failed to delete key: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
