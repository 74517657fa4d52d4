package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID generates a random unique ID
func GenerateID() string {
	return uuid.NewString()
}

// DeliveryKey builds the composite key identifying one (recipient, channel) pair
func DeliveryKey(recipient, channelID string) string {
	return fmt.Sprintf("%s:%s", recipient, channelID)
}
