package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ostrand/zmapd/internal/zmap"
)

// InfoHandler handles engine introspection endpoints.
type InfoHandler struct {
	zmap   *zmap.ZMap
	logger *slog.Logger
}

// NewInfoHandler creates a new info handler.
func NewInfoHandler(z *zmap.ZMap, logger *slog.Logger) *InfoHandler {
	return &InfoHandler{
		zmap:   z,
		logger: logger.With("handler", "info"),
	}
}

// ProbeModules handles GET /api/v1/probe-modules.
func (h *InfoHandler) ProbeModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.zmap.ProbeModules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}

// OutputModules handles GET /api/v1/output-modules.
func (h *InfoHandler) OutputModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.zmap.OutputModules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}

// OutputFields handles GET /api/v1/output-fields?probe_module=<name>.
func (h *InfoHandler) OutputFields(w http.ResponseWriter, r *http.Request) {
	probeModule := r.URL.Query().Get("probe_module")

	fields, err := h.zmap.OutputFields(r.Context(), probeModule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

// Interfaces handles GET /api/v1/interfaces.
func (h *InfoHandler) Interfaces(w http.ResponseWriter, r *http.Request) {
	names, err := zmap.Interfaces()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// Version handles GET /api/v1/version.
func (h *InfoHandler) Version(w http.ResponseWriter, r *http.Request) {
	version, err := h.zmap.Version(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"version": version})
}
