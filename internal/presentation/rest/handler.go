package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bibbank/risk-orchestrator/internal/application/dto"
	"github.com/bibbank/risk-orchestrator/internal/application/usecase"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
)

// Decision headers set on successful evaluations.
const (
	HeaderCorrelationID  = "X-Correlation-ID"
	HeaderTier           = "X-Risk-Tier"
	HeaderRecommendation = "X-Risk-Recommendation"
	HeaderDegraded       = "X-Risk-Degraded"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// RiskHandler serves the risk evaluation and alert lookup endpoints.
type RiskHandler struct {
	evaluateRisk *usecase.EvaluateRisk
	getAlert     *usecase.GetAlert
	logger       *slog.Logger
}

// NewRiskHandler creates a new REST handler.
func NewRiskHandler(evaluateRisk *usecase.EvaluateRisk, getAlert *usecase.GetAlert, logger *slog.Logger) *RiskHandler {
	return &RiskHandler{evaluateRisk: evaluateRisk, getAlert: getAlert, logger: logger}
}

// Evaluate handles POST /v1/risk/evaluate. The correlation id falls back to
// the X-Correlation-ID header when the body omits it.
func (h *RiskHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req dto.EvaluateRiskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.CorrelationID == "" {
		req.CorrelationID = r.Header.Get(HeaderCorrelationID)
	}

	result, err := h.evaluateRisk.Execute(r.Context(), req)
	if err != nil {
		var rejection *usecase.RejectionError
		if errors.As(err, &rejection) {
			writeError(w, http.StatusBadRequest, rejection.Validation.Error(), rejection.Field())
			return
		}
		h.logger.Error("failed to evaluate risk",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	w.Header().Set(HeaderCorrelationID, result.CorrelationID)
	w.Header().Set(HeaderTier, result.Tier)
	w.Header().Set(HeaderRecommendation, result.Recommendation)
	w.Header().Set(HeaderDegraded, strconv.FormatBool(result.Degraded))
	writeJSON(w, http.StatusOK, result)
}

// GetAlert handles GET /v1/alerts/{correlationId}.
func (h *RiskHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	correlationID := chi.URLParam(r, "correlationId")

	result, err := h.getAlert.Execute(r.Context(), dto.GetAlertRequest{CorrelationID: correlationID})
	if err != nil {
		if errors.Is(err, port.ErrAlertNotFound) {
			writeError(w, http.StatusNotFound, "alert not found", "")
			return
		}
		h.logger.Error("failed to get alert",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg, field string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Field: field})
}
