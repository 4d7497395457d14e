package scoring

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/bibbank/risk-orchestrator/internal/domain/port"
)

type scoringServer interface {
	Score(ctx context.Context, req *ScoreRequest) (*ScoreResponse, error)
}

type fakeScoringServer struct {
	scoreFn func(ctx context.Context, req *ScoreRequest) (*ScoreResponse, error)
}

func (s *fakeScoringServer) Score(ctx context.Context, req *ScoreRequest) (*ScoreResponse, error) {
	return s.scoreFn(ctx, req)
}

var scoringServiceDesc = grpc.ServiceDesc{
	ServiceName: "bib.risk.scoring.v1.ScoringService",
	HandlerType: (*scoringServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Score",
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(ScoreRequest)
			if err := dec(in); err != nil {
				return nil, err
			}
			return srv.(scoringServer).Score(ctx, in)
		},
	}},
}

func startScoringServer(t *testing.T, srv scoringServer) *GRPCModel {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	s.RegisterService(&scoringServiceDesc, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	m := NewGRPCModelFromConn(conn, "bufnet")
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func intPtr(v int) *int { return &v }

func TestGRPCModel_Score(t *testing.T) {
	var got *ScoreRequest
	m := startScoringServer(t, &fakeScoringServer{scoreFn: func(_ context.Context, req *ScoreRequest) (*ScoreResponse, error) {
		got = req
		return &ScoreResponse{Score: intPtr(612), ModelVersion: "v3"}, nil
	}})

	score, err := m.Score(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, 612, score)
	require.NotNil(t, got)
	assert.Equal(t, "cust-1", got.SubjectID)
	assert.Equal(t, "corr-1", got.CorrelationID)
	assert.Equal(t, "250", got.Amount)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "grpc:bufnet", m.Name())
}

func TestGRPCModel_Score_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		respond func() (*ScoreResponse, error)
		wantErr error
	}{
		{
			name:    "unavailable is transport",
			respond: func() (*ScoreResponse, error) { return nil, status.Error(codes.Unavailable, "draining") },
			wantErr: port.ErrTransport,
		},
		{
			name:    "invalid argument is rejection",
			respond: func() (*ScoreResponse, error) { return nil, status.Error(codes.InvalidArgument, "bad subject") },
			wantErr: port.ErrScorerRejected,
		},
		{
			name:    "internal is rejection",
			respond: func() (*ScoreResponse, error) { return nil, status.Error(codes.Internal, "model crashed") },
			wantErr: port.ErrScorerRejected,
		},
		{
			name:    "missing score is malformed",
			respond: func() (*ScoreResponse, error) { return &ScoreResponse{ModelVersion: "v3"}, nil },
			wantErr: port.ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := startScoringServer(t, &fakeScoringServer{scoreFn: func(context.Context, *ScoreRequest) (*ScoreResponse, error) {
				return tt.respond()
			}})

			_, err := m.Score(context.Background(), testRequest())

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGRPCModel_Score_Deadline(t *testing.T) {
	m := startScoringServer(t, &fakeScoringServer{scoreFn: func(ctx context.Context, _ *ScoreRequest) (*ScoreResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := m.Score(ctx, testRequest())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
