package channel

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/devsecdash/notification-engine/pkg/utils"
)

// EmailConfig holds SMTP settings for the email channel
type EmailConfig struct {
	SMTPHost  string        `json:"smtp_host"`
	SMTPPort  int           `json:"smtp_port"`
	Username  string        `json:"username"`
	Password  string        `json:"password"`
	FromEmail string        `json:"from_email"`
	FromName  string        `json:"from_name"`
	Timeout   time.Duration `json:"timeout"`
}

// EmailChannel delivers notifications over SMTP
type EmailChannel struct {
	config *EmailConfig
	auth   smtp.Auth
}

// NewEmailChannel creates the email channel
func NewEmailChannel(config *EmailConfig) *EmailChannel {
	ch := &EmailChannel{config: config}
	if config.Username != "" && config.Password != "" {
		ch.auth = smtp.PlainAuth("", config.Username, config.Password, config.SMTPHost)
	}
	return ch
}

// ID returns the channel identifier
func (c *EmailChannel) ID() string {
	return ChannelEmail
}

// Features returns the email channel capabilities
func (c *EmailChannel) Features() Features {
	return Features{
		MaxMessageLength:       10000,
		SupportsRichFormatting: true,
		SupportsBatching:       true,
	}
}

// Deliver sends the message to the given email address
func (c *EmailChannel) Deliver(ctx context.Context, address, message string) error {
	if !strings.Contains(address, "@") {
		return utils.NewAppError(utils.ErrCodeValidation, "Invalid email address", address)
	}

	subject := message
	if idx := strings.Index(message, "\n"); idx > 0 {
		subject = message[:idx]
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("From: %s <%s>\r\n", c.config.FromName, c.config.FromEmail))
	builder.WriteString(fmt.Sprintf("To: %s\r\n", address))
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(message)

	addr := fmt.Sprintf("%s:%d", c.config.SMTPHost, c.config.SMTPPort)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, c.auth, c.config.FromEmail, []string{address}, []byte(builder.String()))
	}()

	select {
	case err := <-done:
		if err != nil {
			return utils.NewAppError(utils.ErrCodeChannel, "Failed to send email", err.Error())
		}
		return nil
	case <-ctx.Done():
		return utils.NewAppError(utils.ErrCodeChannel, "Email send cancelled", ctx.Err().Error())
	}
}
