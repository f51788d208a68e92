// Package handlers provides HTTP request handlers for the zmapd API.
// This file implements synchronous scan execution and the scan registry
// listing.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ostrand/zmapd/internal/errors"
	"github.com/ostrand/zmapd/internal/zmap"
)

// ScanHandler handles scan execution endpoints.
type ScanHandler struct {
	zmap     *zmap.ZMap
	registry *ScanRegistry
	logger   *slog.Logger
	validate *validator.Validate
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(z *zmap.ZMap, registry *ScanRegistry, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{
		zmap:     z,
		registry: registry,
		logger:   logger.With("handler", "scan"),
		validate: validator.New(),
	}
}

// ScanRequest represents a synchronous scan request. Config carries the
// full scan configuration; the remaining fields are per-call run inputs.
type ScanRequest struct {
	Config         *zmap.ScanConfig `json:"config,omitempty"`
	Subnets        []string         `json:"subnets,omitempty" validate:"omitempty,dive,cidr"`
	OutputFile     string           `json:"output_file,omitempty"`
	BlocklistFile  string           `json:"blocklist_file,omitempty"`
	AllowlistFile  string           `json:"allowlist_file,omitempty"`
	ProbeModule    string           `json:"probe_module,omitempty"`
	OutputModule   string           `json:"output_module,omitempty"`
	OutputFields   []string         `json:"output_fields,omitempty"`
	TimeoutSeconds int              `json:"timeout_seconds,omitempty" validate:"gte=0"`
}

// ScanResponse represents a scan outcome.
type ScanResponse struct {
	ScanID     uuid.UUID       `json:"scan_id"`
	Status     zmap.ScanStatus `json:"status"`
	IPsFound   []string        `json:"ips_found"`
	Records    []zmap.Record   `json:"records,omitempty"`
	OutputFile string          `json:"output_file,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// RunScan handles POST /api/v1/scan - run a scan synchronously and return
// the discovered targets.
func (h *ScanHandler) RunScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := parseJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	cfg := req.Config
	if cfg == nil {
		cfg = &zmap.ScanConfig{}
	}
	// Same validation path as direct construction; malformed payloads
	// fail here before any process is started.
	if err := cfg.Validate(); err != nil {
		writeError(w, err)
		return
	}

	opts := zmap.ScanOptions{
		RunOptions: zmap.RunOptions{
			Subnets:       req.Subnets,
			OutputFile:    req.OutputFile,
			BlocklistFile: req.BlocklistFile,
			AllowlistFile: req.AllowlistFile,
			ProbeModule:   req.ProbeModule,
			OutputModule:  req.OutputModule,
			OutputFields:  req.OutputFields,
		},
		Timeout: time.Duration(req.TimeoutSeconds) * time.Second,
	}

	scanID := h.registry.Start()
	h.logger.Info("Running scan", "scan_id", scanID)

	result, err := h.zmap.Scan(r.Context(), cfg, opts)
	if err != nil {
		h.registry.Finish(scanID, string(zmap.StatusFailed), 0, result.OutputFile, result.Error)
		h.logger.Error("Scan failed", "scan_id", scanID, "code", errors.GetCode(err), "error", err)

		response := ScanResponse{
			ScanID:     scanID,
			Status:     zmap.StatusFailed,
			OutputFile: result.OutputFile,
			Error:      result.Error,
		}
		writeJSON(w, errors.HTTPStatus(err), response)
		return
	}

	h.registry.Finish(scanID, string(result.Status), len(result.Targets), result.OutputFile, "")
	h.logger.Info("Scan finished", "scan_id", scanID, "targets", len(result.Targets))

	writeJSON(w, http.StatusOK, ScanResponse{
		ScanID:     scanID,
		Status:     result.Status,
		IPsFound:   result.Targets,
		Records:    result.Records,
		OutputFile: result.OutputFile,
	})
}

// ListScans handles GET /api/v1/scans - list registry records, newest
// first.
func (h *ScanHandler) ListScans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scans":     h.registry.Snapshot(),
		"timestamp": time.Now().UTC(),
	})
}
