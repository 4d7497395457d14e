package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/bibbank/risk-orchestrator/internal/application/dto"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
)

// GetAlert is the use case for retrieving the alert raised for a request.
type GetAlert struct {
	store port.AlertStore
}

// NewGetAlert creates a new GetAlert use case.
func NewGetAlert(store port.AlertStore) *GetAlert {
	return &GetAlert{store: store}
}

// Execute returns the alert for the correlation id. A missing alert wraps
// port.ErrAlertNotFound.
func (uc *GetAlert) Execute(ctx context.Context, req dto.GetAlertRequest) (dto.AlertResponse, error) {
	if strings.TrimSpace(req.CorrelationID) == "" {
		return dto.AlertResponse{}, fmt.Errorf("correlation id is required: %w", port.ErrAlertNotFound)
	}

	alert, err := uc.store.FindByCorrelationID(ctx, req.CorrelationID)
	if err != nil {
		return dto.AlertResponse{}, fmt.Errorf("failed to find alert: %w", err)
	}

	return dto.FromAlert(alert), nil
}
