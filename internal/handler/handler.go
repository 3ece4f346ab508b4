// Package handler provides HTTP handlers for the storefront bridge API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"storefront-bridge/internal/adapter"
	"storefront-bridge/internal/model"
	"storefront-bridge/internal/reconcile"
	"storefront-bridge/internal/tabular"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	upstream   adapter.Adapter
	reconciler *reconcile.Reconciler
	extractor  *tabular.Extractor
	logger     *slog.Logger
}

// New creates a Handler wired to the upstream adapter.
func New(upstream adapter.Adapter, reconciler *reconcile.Reconciler, extractor *tabular.Extractor, logger *slog.Logger) *Handler {
	return &Handler{
		upstream:   upstream,
		reconciler: reconciler,
		extractor:  extractor,
		logger:     logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Address book operations
	mux.HandleFunc("GET /customers/{email}/addresses", h.handleListAddresses)
	mux.HandleFunc("POST /customers/{email}/addresses/import", h.handleImportAddresses)
	mux.HandleFunc("POST /customers/{email}/addresses/import-file", h.handleImportFile)
	mux.HandleFunc("GET /customers/{email}/addresses/export", h.handleExportAddresses)

	// Distribution and cart operations
	mux.HandleFunc("POST /customers/{email}/distribution/validate", h.handleValidateDistribution)
	mux.HandleFunc("POST /customers/{email}/cart/items", h.handleCartItems)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// errorResponse is the JSON structure for error responses. Upstream carries
// the platform's status and payload when the failure crossed that boundary.
type errorResponse struct {
	OK       bool                  `json:"ok"`
	Code     string                `json:"code"`
	Error    string                `json:"error"`
	Status   int                   `json:"status"`
	Upstream *model.UpstreamDetail `json:"upstream,omitempty"`
}

// writeError sends an error response, extracting status/code from APIError if
// present. Uses errors.As() to unwrap error chains.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError

	if !errors.As(err, &apiErr) {
		apiErr = &model.APIError{
			Code:       "INTERNAL_ERROR",
			Message:    "an internal error occurred",
			StatusCode: http.StatusInternalServerError,
		}
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Code:     apiErr.Code,
		Error:    apiErr.Message,
		Status:   apiErr.StatusCode,
		Upstream: apiErr.Upstream,
	})
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// MaxUploadSize limits multipart file uploads to 10MB.
const MaxUploadSize = 10 << 20 // 10MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
func decodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// customerEmail extracts and validates the email path segment.
func customerEmail(r *http.Request) (string, error) {
	email := strings.TrimSpace(r.PathValue("email"))
	if email == "" || !strings.Contains(email, "@") {
		return "", model.NewValidationError("email", "a customer email address is required")
	}
	return email, nil
}

// === Health ===

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

const serviceVersion = "1.0.0"

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Service: "storefront-bridge",
		Version: serviceVersion,
	})
}
