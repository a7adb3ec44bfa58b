package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/timeouts"
)

// HTTPLedgerClient submits mints to a credential ledger relay over HTTP.
type HTTPLedgerClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPLedgerClient creates a ledger client for the given endpoint. It
// returns nil when the endpoint or key is unconfigured so callers can wire
// the degraded not-minted path.
func NewHTTPLedgerClient(endpoint, apiKey string) *HTTPLedgerClient {
	endpoint = strings.TrimSpace(endpoint)
	apiKey = strings.TrimSpace(apiKey)
	if endpoint == "" || apiKey == "" {
		return nil
	}
	return &HTTPLedgerClient{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeouts.CollaboratorRequest},
	}
}

type mintRequest struct {
	To          string `json:"to"`
	GoalID      string `json:"goalId"`
	MetadataURI string `json:"metadataUri"`
}

type mintResponse struct {
	TokenID string `json:"tokenId"`
	TxHash  string `json:"txHash"`
}

// SubmitMint implements LedgerClient.
func (c *HTTPLedgerClient) SubmitMint(ctx context.Context, to, goalID, metadataURI string) (Receipt, error) {
	if c == nil {
		return Receipt{}, fmt.Errorf("ledger client is not configured")
	}

	body, err := json.Marshal(mintRequest{To: to, GoalID: goalID, MetadataURI: metadataURI})
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal mint request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/mint", bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("build mint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("submit mint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Receipt{}, fmt.Errorf("submit mint: ledger returned %s", resp.Status)
	}

	var decoded mintResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Receipt{}, fmt.Errorf("decode mint response: %w", err)
	}
	return Receipt{TokenID: decoded.TokenID, TxHash: decoded.TxHash}, nil
}
