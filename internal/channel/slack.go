package channel

import (
	"context"
	"strings"
	"time"

	"github.com/devsecdash/notification-engine/pkg/utils"
)

// SlackConfig holds Slack webhook settings
type SlackConfig struct {
	WebhookURL string        `json:"webhook_url"`
	Timeout    time.Duration `json:"timeout"`
}

// SlackChannel delivers notifications through a Slack incoming webhook.
// Addresses are @handles or #channel names.
type SlackChannel struct {
	config *SlackConfig
	poster *httpPoster
}

// NewSlackChannel creates the Slack channel
func NewSlackChannel(config *SlackConfig) *SlackChannel {
	return &SlackChannel{
		config: config,
		poster: newHTTPPoster(config.Timeout),
	}
}

// ID returns the channel identifier
func (c *SlackChannel) ID() string {
	return ChannelSlack
}

// Features returns the Slack channel capabilities
func (c *SlackChannel) Features() Features {
	return Features{
		MaxMessageLength:       4000,
		SupportsRichFormatting: true,
		SupportsBatching:       false,
	}
}

// Deliver posts the message to the configured incoming webhook
func (c *SlackChannel) Deliver(ctx context.Context, address, message string) error {
	if !strings.HasPrefix(address, "@") && !strings.HasPrefix(address, "#") {
		return utils.NewAppError(utils.ErrCodeValidation, "Invalid Slack address", address)
	}

	body := map[string]interface{}{
		"channel": address,
		"text":    message,
	}
	return c.poster.post(ctx, c.config.WebhookURL, body, nil)
}
