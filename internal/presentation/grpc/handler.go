package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/bibbank/risk-orchestrator/internal/application/dto"
	"github.com/bibbank/risk-orchestrator/internal/application/usecase"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
	"github.com/bibbank/risk-orchestrator/pkg/auth"
)

// Response header metadata keys set on Evaluate.
const (
	HeaderTier           = "x-risk-tier"
	HeaderRecommendation = "x-risk-recommendation"
	HeaderDegraded       = "x-risk-degraded"
)

// Roles allowed to call RiskService when auth is enabled. Auditors may read alerts.
var (
	callerRoles = []string{auth.RoleAdmin, auth.RoleOperator, auth.RoleAPIClient}
	readerRoles = []string{auth.RoleAdmin, auth.RoleOperator, auth.RoleAPIClient, auth.RoleAuditor}
)

// requireRole checks that the caller has at least one of the given roles.
func requireRole(ctx context.Context, roles ...string) error {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "authentication required")
	}
	if !claims.HasAnyRole(roles...) {
		return status.Error(codes.PermissionDenied, "insufficient permissions")
	}
	return nil
}

// Compile-time assertion that RiskServiceHandler implements RiskServiceServer.
var _ RiskServiceServer = (*RiskServiceHandler)(nil)

// RiskServiceHandler implements the gRPC RiskServiceServer interface.
type RiskServiceHandler struct {
	UnimplementedRiskServiceServer
	evaluateRisk *usecase.EvaluateRisk
	getAlert     *usecase.GetAlert
	logger       *slog.Logger
	requireAuth  bool
}

// NewRiskServiceHandler creates a new gRPC handler. When requireAuth is set
// every call must carry claims with a caller role.
func NewRiskServiceHandler(
	evaluateRisk *usecase.EvaluateRisk,
	getAlert *usecase.GetAlert,
	requireAuth bool,
	logger *slog.Logger,
) *RiskServiceHandler {
	return &RiskServiceHandler{
		evaluateRisk: evaluateRisk,
		getAlert:     getAlert,
		requireAuth:  requireAuth,
		logger:       logger,
	}
}

// EvaluateRequest represents the proto EvaluateRequest message.
type EvaluateRequest struct {
	OccurredAt    *timestamppb.Timestamp `json:"occurred_at"`
	Context       map[string]string      `json:"context,omitempty"`
	Amount        *string                `json:"amount,omitempty"`
	SubjectID     string                 `json:"subject_id"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Currency      string                 `json:"currency"`
}

// DecisionMsg represents the proto RiskDecision message.
type DecisionMsg struct {
	ProducedAt     *timestamppb.Timestamp `json:"produced_at"`
	CorrelationID  string                 `json:"correlation_id"`
	Tier           string                 `json:"tier"`
	Recommendation string                 `json:"recommendation"`
	Confidence     string                 `json:"confidence"`
	Reasons        []string               `json:"reasons"`
	Score          int32                  `json:"score"`
	Degraded       bool                   `json:"degraded"`
}

// EvaluateResponse represents the proto EvaluateResponse message.
type EvaluateResponse struct {
	Decision *DecisionMsg `json:"decision"`
}

// GetAlertRequest represents the proto GetAlertRequest message.
type GetAlertRequest struct {
	CorrelationID string `json:"correlation_id"`
}

// AlertMsg represents the proto Alert message.
type AlertMsg struct {
	CreatedAt     *timestamppb.Timestamp `json:"created_at"`
	Decision      *DecisionMsg           `json:"decision"`
	AlertID       string                 `json:"alert_id"`
	CorrelationID string                 `json:"correlation_id"`
	SubjectID     string                 `json:"subject_id"`
	Status        string                 `json:"status"`
}

// GetAlertResponse represents the proto GetAlertResponse message.
type GetAlertResponse struct {
	Alert *AlertMsg `json:"alert"`
}

func toDecisionMsg(d dto.RiskDecisionResponse) *DecisionMsg {
	return &DecisionMsg{
		CorrelationID:  d.CorrelationID,
		Score:          int32(d.Score),
		Tier:           d.Tier,
		Recommendation: d.Recommendation,
		Confidence:     d.Confidence,
		Reasons:        d.Reasons,
		Degraded:       d.Degraded,
		ProducedAt:     timestamppb.New(d.ProducedAt),
	}
}

// occurredAt converts the wire timestamp. A missing or out-of-range value
// becomes the zero time, which validation rejects.
func occurredAt(ts *timestamppb.Timestamp) time.Time {
	if ts == nil || ts.CheckValid() != nil {
		return time.Time{}
	}
	return ts.AsTime()
}

// Evaluate handles a risk evaluation request.
func (h *RiskServiceHandler) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	if h.requireAuth {
		if err := requireRole(ctx, callerRoles...); err != nil {
			return nil, err
		}
	}

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := h.evaluateRisk.Execute(ctx, dto.EvaluateRiskRequest{
		SubjectID:     req.SubjectID,
		CorrelationID: req.CorrelationID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		OccurredAt:    occurredAt(req.OccurredAt),
		Context:       req.Context,
	})
	if err != nil {
		var rejection *usecase.RejectionError
		if errors.As(err, &rejection) {
			return nil, status.Error(codes.InvalidArgument, rejection.Validation.Error())
		}
		h.logger.Error("failed to evaluate risk",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("error", err.Error()),
		)
		return nil, status.Error(codes.Internal, "internal error")
	}

	if err := grpclib.SetHeader(ctx, metadata.Pairs(
		HeaderTier, result.Tier,
		HeaderRecommendation, result.Recommendation,
		HeaderDegraded, strconv.FormatBool(result.Degraded),
	)); err != nil {
		h.logger.Warn("failed to set decision headers", slog.String("error", err.Error()))
	}

	return &EvaluateResponse{Decision: toDecisionMsg(result)}, nil
}

// GetAlert handles an alert lookup by correlation id.
func (h *RiskServiceHandler) GetAlert(ctx context.Context, req *GetAlertRequest) (*GetAlertResponse, error) {
	if h.requireAuth {
		if err := requireRole(ctx, readerRoles...); err != nil {
			return nil, err
		}
	}

	if req == nil || req.CorrelationID == "" {
		return nil, status.Error(codes.InvalidArgument, "correlation_id is required")
	}

	result, err := h.getAlert.Execute(ctx, dto.GetAlertRequest{CorrelationID: req.CorrelationID})
	if err != nil {
		if errors.Is(err, port.ErrAlertNotFound) {
			return nil, status.Errorf(codes.NotFound, "no alert for correlation_id %s", req.CorrelationID)
		}
		h.logger.Error("failed to get alert",
			slog.String("correlation_id", req.CorrelationID),
			slog.String("error", err.Error()),
		)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return &GetAlertResponse{
		Alert: &AlertMsg{
			AlertID:       result.AlertID.String(),
			CorrelationID: result.CorrelationID,
			SubjectID:     result.SubjectID,
			Status:        result.Status,
			Decision:      toDecisionMsg(result.Decision),
			CreatedAt:     timestamppb.New(result.CreatedAt),
		},
	}, nil
}
