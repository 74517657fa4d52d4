// Package channel defines the delivery-medium capability interface and its
// implementations.
package channel

import (
	"context"
	"fmt"
	"strings"
)

// Channel IDs for the built-in delivery media
const (
	ChannelEmail   = "email"
	ChannelSlack   = "slack"
	ChannelTeams   = "teams"
	ChannelInApp   = "in_app"
	ChannelWebhook = "webhook"
)

// Features describes what a channel supports
type Features struct {
	MaxMessageLength       int  `json:"max_message_length"`
	SupportsRichFormatting bool `json:"supports_rich_formatting"`
	SupportsBatching       bool `json:"supports_batching"`
}

// Channel is the capability interface implemented once per delivery medium.
// Recipient addresses are channel-specific opaque strings validated only by
// the channel itself.
type Channel interface {
	ID() string
	Deliver(ctx context.Context, address, message string) error
	Features() Features
}

// RenderMessage builds the message body delivered to a channel, substituting
// {{.key}} placeholders from the payload metadata
func RenderMessage(title, body string, metadata map[string]interface{}) string {
	message := title
	if body != "" {
		message = fmt.Sprintf("%s\n\n%s", title, body)
	}

	for key, value := range metadata {
		placeholder := "{{." + key + "}}"
		message = strings.ReplaceAll(message, placeholder, fmt.Sprintf("%v", value))
	}

	return message
}
