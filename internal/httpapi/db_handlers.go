package httpapi

import (
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"leadgenius-engine/internal/backup"
	"leadgenius-engine/internal/events"
)

// maxImport bounds an uploaded snapshot.
const maxImport = 256 << 20

type DBHandler struct {
	Snapshots Snapshotter
	Hub       *events.Hub
	Log       *zap.Logger
}

func (h DBHandler) Export(w http.ResponseWriter, r *http.Request) {
	blob, err := h.Snapshots.ExportSnapshot(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", backup.ExportMIME)
	w.Header().Set("Content-Disposition", `attachment; filename="`+backup.ExportFilename(time.Now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	_, _ = w.Write(blob)
}

// Import replaces the whole store. It accepts the raw file as the body or a
// multipart form with a "file" field.
func (h DBHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImport)
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, _, err := r.FormFile("file")
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_format", "missing file field: "+err.Error())
			return
		}
		defer f.Close()
		src = f
	}
	blob, err := io.ReadAll(src)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_format", "could not read upload: "+err.Error())
		return
	}
	if err := h.Snapshots.ImportSnapshot(r.Context(), blob); err != nil {
		writeErr(w, r, err)
		return
	}
	h.Log.Info("store imported", zap.Int("bytes", len(blob)), zap.String("request_id", RequestIDFrom(r.Context())))
	h.Hub.Emit(RequestIDFrom(r.Context()), events.LeadsImported, map[string]any{"bytes": len(blob)})
	writeJSON(w, map[string]any{"ok": true})
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
