package channel

import (
	"context"
	"strings"
	"time"

	"github.com/devsecdash/notification-engine/pkg/utils"
)

// WebhookConfig holds generic webhook settings
type WebhookConfig struct {
	Timeout time.Duration     `json:"timeout"`
	Headers map[string]string `json:"headers"`
}

// WebhookChannel delivers notifications to arbitrary HTTP endpoints.
// The recipient address is the target URL.
type WebhookChannel struct {
	config *WebhookConfig
	poster *httpPoster
}

// NewWebhookChannel creates the generic webhook channel
func NewWebhookChannel(config *WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		config: config,
		poster: newHTTPPoster(config.Timeout),
	}
}

// ID returns the channel identifier
func (c *WebhookChannel) ID() string {
	return ChannelWebhook
}

// Features returns the webhook channel capabilities
func (c *WebhookChannel) Features() Features {
	return Features{
		MaxMessageLength:       16384,
		SupportsRichFormatting: false,
		SupportsBatching:       true,
	}
}

// Deliver posts the message to the address URL
func (c *WebhookChannel) Deliver(ctx context.Context, address, message string) error {
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		return utils.NewAppError(utils.ErrCodeValidation, "Invalid webhook URL", address)
	}

	body := map[string]interface{}{
		"source":    "notification-engine",
		"message":   message,
		"timestamp": time.Now().UTC(),
	}
	return c.poster.post(ctx, address, body, c.config.Headers)
}
