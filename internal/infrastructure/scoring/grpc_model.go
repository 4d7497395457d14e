package scoring

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
	"github.com/bibbank/risk-orchestrator/pkg/grpcjson"
)

// ScoreMethod is the full gRPC method name served by the scoring service.
const ScoreMethod = "/bib.risk.scoring.v1.ScoringService/Score"

// GRPCModel calls the scoring service over gRPC using the JSON codec. The
// context deadline travels with the call and cancels it on expiry.
type GRPCModel struct {
	conn *grpc.ClientConn
	name string
}

var _ port.ScoringModel = (*GRPCModel)(nil)

// NewGRPCModel creates a client for target. The connection is established lazily.
func NewGRPCModel(target string, creds credentials.TransportCredentials) (*GRPCModel, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("dial scoring service at %s: %w", target, err)
	}
	return NewGRPCModelFromConn(conn, target), nil
}

// NewGRPCModelFromConn wraps an existing connection.
func NewGRPCModelFromConn(conn *grpc.ClientConn, name string) *GRPCModel {
	return &GRPCModel{conn: conn, name: name}
}

func (m *GRPCModel) Name() string { return "grpc:" + m.name }

func (m *GRPCModel) Score(ctx context.Context, req model.RiskRequest) (int, error) {
	in := NewScoreRequest(req)
	var out ScoreResponse
	if err := m.conn.Invoke(ctx, ScoreMethod, &in, &out, grpcjson.CallOption()); err != nil {
		return 0, classifyGRPCError(err)
	}
	if out.Score == nil {
		return 0, port.ErrMalformedResponse
	}
	return *out.Score, nil
}

// Close releases the underlying connection.
func (m *GRPCModel) Close() error {
	return m.conn.Close()
}
