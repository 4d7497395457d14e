package scoring

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bibbank/risk-orchestrator/internal/domain/model"
	"github.com/bibbank/risk-orchestrator/internal/domain/port"
)

// HTTPModel calls a scoring service exposing POST <url> with a JSON body.
type HTTPModel struct {
	client *http.Client
	url    string
}

var _ port.ScoringModel = (*HTTPModel)(nil)

// NewHTTPModel creates an HTTP scoring client. tlsCfg may be nil. Timeouts are
// left to the request context.
func NewHTTPModel(url string, maxConns int, tlsCfg *tls.Config) *HTTPModel {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxConnsPerHost = maxConns
	transport.MaxIdleConnsPerHost = maxConns
	transport.TLSClientConfig = tlsCfg

	return &HTTPModel{client: &http.Client{Transport: transport}, url: url}
}

func (m *HTTPModel) Name() string { return "http:" + m.url }

func (m *HTTPModel) Score(ctx context.Context, req model.RiskRequest) (int, error) {
	body, err := json.Marshal(NewScoreRequest(req))
	if err != nil {
		return 0, fmt.Errorf("%w: encode request: %w", port.ErrScorerRejected, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %w", port.ErrScorerRejected, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Correlation-ID", req.CorrelationID())

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return 0, classifyNetError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("%w: status %d", port.ErrScorerRejected, resp.StatusCode)
	}

	var out ScoreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: %w", port.ErrMalformedResponse, err)
	}
	if out.Score == nil {
		return 0, port.ErrMalformedResponse
	}
	return *out.Score, nil
}
