package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/devsecdash/notification-engine/pkg/utils"
)

// httpPoster posts JSON payloads to webhook-style endpoints. Shared by the
// Slack, Teams, and generic webhook channels.
type httpPoster struct {
	client *http.Client
}

func newHTTPPoster(timeout time.Duration) *httpPoster {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpPoster{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// post sends body as JSON to url and surfaces non-2xx responses as channel
// errors. Extra headers are applied after the defaults and may override them.
func (p *httpPoster) post(ctx context.Context, url string, body interface{}, headers map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal payload", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to create request", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "notification-engine/1.0")
	req.Header.Set("X-Request-ID", utils.GenerateID())
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeChannel, "Failed to send request", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return utils.NewAppError(utils.ErrCodeChannel,
			"Endpoint returned non-success status",
			fmt.Sprintf("status: %d, body: %s", resp.StatusCode, string(snippet)))
	}

	return nil
}
