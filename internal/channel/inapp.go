package channel

import (
	"context"
	"sync"
	"time"
)

// InAppMessage is one entry in a user's in-app inbox
type InAppMessage struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

// InAppChannel delivers notifications to an in-process inbox per user.
// The UI layer reads and clears inboxes.
type InAppChannel struct {
	mu         sync.RWMutex
	inboxes    map[string][]*InAppMessage
	maxPerUser int
}

// NewInAppChannel creates the in-app channel
func NewInAppChannel(maxPerUser int) *InAppChannel {
	if maxPerUser <= 0 {
		maxPerUser = 100
	}
	return &InAppChannel{
		inboxes:    make(map[string][]*InAppMessage),
		maxPerUser: maxPerUser,
	}
}

// ID returns the channel identifier
func (c *InAppChannel) ID() string {
	return ChannelInApp
}

// Features returns the in-app channel capabilities
func (c *InAppChannel) Features() Features {
	return Features{
		MaxMessageLength:       1000,
		SupportsRichFormatting: false,
		SupportsBatching:       true,
	}
}

// Deliver appends the message to the address's inbox, evicting the oldest
// entry when the inbox is full
func (c *InAppChannel) Deliver(ctx context.Context, address, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inbox := append(c.inboxes[address], &InAppMessage{
		Message:   message,
		CreatedAt: time.Now(),
	})
	if len(inbox) > c.maxPerUser {
		inbox = inbox[len(inbox)-c.maxPerUser:]
	}
	c.inboxes[address] = inbox
	return nil
}

// Inbox returns a snapshot of the messages pending for address
func (c *InAppChannel) Inbox(address string) []*InAppMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	inbox := make([]*InAppMessage, len(c.inboxes[address]))
	copy(inbox, c.inboxes[address])
	return inbox
}

// ClearInbox removes all messages for address
func (c *InAppChannel) ClearInbox(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inboxes, address)
}
