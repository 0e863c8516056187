// Package assist holds the AI-assistance collaborator adapters: an HTTP
// client for the real service and a deterministic local stub.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lanbix/live-interview/internal/core"
)

// Client calls the assistance service over plain JSON POST.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type assistRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Context  string `json:"context,omitempty"`
}

func (c *Client) ProvideAssistance(ctx context.Context, question, answer, jobContext string) (core.Assistance, error) {
	body, err := json.Marshal(assistRequest{Question: question, Answer: answer, Context: jobContext})
	if err != nil {
		return core.Assistance{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assist", bytes.NewReader(body))
	if err != nil {
		return core.Assistance{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return core.Assistance{}, fmt.Errorf("assist request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.Assistance{}, fmt.Errorf("assist service returned %d", resp.StatusCode)
	}
	var out core.Assistance
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.Assistance{}, fmt.Errorf("assist decode: %w", err)
	}
	log.Debug().Str("module", "adapters.assist").Float64("score", out.Score).Msg("assistance received")
	return out, nil
}
