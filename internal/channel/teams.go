package channel

import (
	"context"
	"strings"
	"time"
)

// TeamsConfig holds Microsoft Teams webhook settings
type TeamsConfig struct {
	WebhookURL string        `json:"webhook_url"`
	Timeout    time.Duration `json:"timeout"`
}

// TeamsChannel delivers notifications through a Teams connector webhook.
// The address selects the target webhook; an empty address falls back to the
// configured default.
type TeamsChannel struct {
	config *TeamsConfig
	poster *httpPoster
}

// NewTeamsChannel creates the Teams channel
func NewTeamsChannel(config *TeamsConfig) *TeamsChannel {
	return &TeamsChannel{
		config: config,
		poster: newHTTPPoster(config.Timeout),
	}
}

// ID returns the channel identifier
func (c *TeamsChannel) ID() string {
	return ChannelTeams
}

// Features returns the Teams channel capabilities
func (c *TeamsChannel) Features() Features {
	return Features{
		MaxMessageLength:       28000,
		SupportsRichFormatting: true,
		SupportsBatching:       false,
	}
}

// Deliver posts a MessageCard payload to the connector webhook
func (c *TeamsChannel) Deliver(ctx context.Context, address, message string) error {
	url := c.config.WebhookURL
	if strings.HasPrefix(address, "https://") {
		url = address
	}

	body := map[string]interface{}{
		"@type":    "MessageCard",
		"@context": "http://schema.org/extensions",
		"text":     message,
	}
	return c.poster.post(ctx, url, body, nil)
}
