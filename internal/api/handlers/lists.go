package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ostrand/zmapd/internal/zmap"
)

// ListsHandler handles blocklist and allowlist file endpoints.
type ListsHandler struct {
	zmap     *zmap.ZMap
	logger   *slog.Logger
	validate *validator.Validate
}

// NewListsHandler creates a new lists handler.
func NewListsHandler(z *zmap.ZMap, logger *slog.Logger) *ListsHandler {
	return &ListsHandler{
		zmap:     z,
		logger:   logger.With("handler", "lists"),
		validate: validator.New(),
	}
}

// SubnetListRequest represents a blocklist or allowlist creation request.
type SubnetListRequest struct {
	Subnets    []string `json:"subnets" validate:"required,min=1,dive,cidr"`
	OutputFile string   `json:"output_file,omitempty"`
}

// StandardBlocklistRequest represents a standard blocklist request.
type StandardBlocklistRequest struct {
	OutputFile string `json:"output_file,omitempty"`
}

// CreateBlocklist handles POST /api/v1/blocklist.
func (h *ListsHandler) CreateBlocklist(w http.ResponseWriter, r *http.Request) {
	h.createSubnetList(w, r, h.zmap.CreateBlocklist, "blocklist")
}

// CreateAllowlist handles POST /api/v1/allowlist.
func (h *ListsHandler) CreateAllowlist(w http.ResponseWriter, r *http.Request) {
	h.createSubnetList(w, r, h.zmap.CreateAllowlist, "allowlist")
}

func (h *ListsHandler) createSubnetList(
	w http.ResponseWriter,
	r *http.Request,
	create func([]string, string) (string, error),
	kind string,
) {
	var req SubnetListRequest
	if err := parseJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	path, err := create(req.Subnets, req.OutputFile)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("Subnet list created", "kind", kind, "path", path, "subnets", len(req.Subnets))
	writeJSON(w, http.StatusOK, FileResponse{
		FilePath: path,
		Message:  fmt.Sprintf("%s file created with %d subnets", kind, len(req.Subnets)),
	})
}

// GenerateStandardBlocklist handles POST /api/v1/standard-blocklist.
func (h *ListsHandler) GenerateStandardBlocklist(w http.ResponseWriter, r *http.Request) {
	var req StandardBlocklistRequest
	if err := parseJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	path, err := h.zmap.GenerateStandardBlocklist(req.OutputFile)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("Standard blocklist created", "path", path)
	writeJSON(w, http.StatusOK, FileResponse{
		FilePath: path,
		Message:  "standard blocklist file created",
	})
}
