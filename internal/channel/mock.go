package channel

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/devsecdash/notification-engine/pkg/utils"
)

// MockChannel simulates an unreliable delivery medium for tests. It is
// configurable with a failure probability and an artificial delivery delay.
type MockChannel struct {
	id          string
	features    Features
	failureRate float64
	delay       time.Duration

	mu        sync.Mutex
	rng       *rand.Rand
	attempts  int
	delivered []MockDelivery
}

// MockDelivery records one Deliver call observed by the mock
type MockDelivery struct {
	Address string
	Message string
}

// NewMockChannel creates a mock channel with the given failure probability
// (0.0 to 1.0) and per-call delivery delay
func NewMockChannel(id string, failureRate float64, delay time.Duration) *MockChannel {
	return &MockChannel{
		id:          id,
		failureRate: failureRate,
		delay:       delay,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		features: Features{
			MaxMessageLength:       1000,
			SupportsRichFormatting: false,
			SupportsBatching:       false,
		},
	}
}

// WithFeatures overrides the mock's reported capabilities
func (c *MockChannel) WithFeatures(features Features) *MockChannel {
	c.features = features
	return c
}

// ID returns the channel identifier
func (c *MockChannel) ID() string {
	return c.id
}

// Features returns the configured capabilities
func (c *MockChannel) Features() Features {
	return c.features
}

// Deliver simulates a delivery, failing with the configured probability
func (c *MockChannel) Deliver(ctx context.Context, address, message string) error {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return utils.NewAppError(utils.ErrCodeChannel, "Delivery cancelled", ctx.Err().Error())
		}
	}

	c.mu.Lock()
	c.attempts++
	fail := c.failureRate > 0 && c.rng.Float64() < c.failureRate
	if !fail {
		c.delivered = append(c.delivered, MockDelivery{Address: address, Message: message})
	}
	c.mu.Unlock()

	if fail {
		return utils.NewAppError(utils.ErrCodeChannel, "Simulated delivery failure", c.id)
	}
	return nil
}

// AttemptCount returns how many Deliver calls the mock received
func (c *MockChannel) AttemptCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// DeliveredCount returns how many deliveries the mock accepted
func (c *MockChannel) DeliveredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.delivered)
}

// Deliveries returns a snapshot of accepted deliveries
func (c *MockChannel) Deliveries() []MockDelivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]MockDelivery, len(c.delivered))
	copy(out, c.delivered)
	return out
}
