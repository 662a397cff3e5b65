package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PixStatusClient polls the payment provider for the state of an
// instant-transfer payment. The reconciliation sweep uses it; webhook
// delivery covers the same transitions, so the poll is a safety net for
// dropped callbacks.
type PixStatusClient interface {
	Status(ctx context.Context, txid string) (string, error)
}

type HTTPPixClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPPixClient(baseURL string) *HTTPPixClient {
	return &HTTPPixClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPPixClient) Status(ctx context.Context, txid string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/payments/%s", c.baseURL, txid), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pix status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pix status request returned %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding pix status response: %w", err)
	}
	return body.Status, nil
}
