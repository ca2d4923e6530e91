package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// sendTimeout bounds every outbound sendMessage call.
const sendTimeout = 5 * time.Second

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// apiClient posts messages straight to the Bot API sendMessage endpoint.
// Success is HTTP 200; anything else is a delivery error.
type apiClient struct {
	http    *http.Client
	baseURL string
	token   string
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		http:    &http.Client{Timeout: sendTimeout},
		baseURL: baseURL,
		token:   token,
	}
}

func (c *apiClient) sendMessage(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("encode sendMessage: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendMessage: status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
