// Package metrics tallies delivery outcomes per channel.
package metrics

import (
	"sync"
	"time"
)

// ChannelStats holds per-channel delivery counters
type ChannelStats struct {
	Attempted int64 `json:"attempted"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

// Stats is a point-in-time snapshot of delivery metrics
type Stats struct {
	TotalAttempted int64                    `json:"total_attempted"`
	TotalSent      int64                    `json:"total_sent"`
	TotalFailed    int64                    `json:"total_failed"`
	DeliveryRate   float64                  `json:"delivery_rate"` // delivered / attempted, in [0,1]
	Channels       map[string]*ChannelStats `json:"channels"`
}

// Collector is a passive observer tallying delivery outcomes per channel.
// Updated synchronously as each delivery reaches a terminal state.
type Collector struct {
	mu         sync.RWMutex
	channels   map[string]*ChannelStats
	prometheus *PrometheusMetrics
}

// NewCollector creates an empty metrics collector
func NewCollector() *Collector {
	return &Collector{
		channels:   make(map[string]*ChannelStats),
		prometheus: NewPrometheusMetrics(),
	}
}

// Prometheus returns the Prometheus export side of the collector
func (c *Collector) Prometheus() *PrometheusMetrics {
	return c.prometheus
}

// RecordOutcome tallies one terminal delivery outcome
func (c *Collector) RecordOutcome(channelID, notificationType string, delivered bool, duration time.Duration) {
	c.mu.Lock()
	stats, ok := c.channels[channelID]
	if !ok {
		stats = &ChannelStats{}
		c.channels[channelID] = stats
	}
	stats.Attempted++
	status := "failed"
	if delivered {
		stats.Delivered++
		status = "delivered"
	} else {
		stats.Failed++
	}
	c.mu.Unlock()

	c.prometheus.RecordDelivery(channelID, notificationType, status, duration)
}

// Snapshot returns aggregate and per-channel delivery statistics
func (c *Collector) Snapshot() *Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := &Stats{
		Channels: make(map[string]*ChannelStats, len(c.channels)),
	}

	for id, stats := range c.channels {
		copied := *stats
		snapshot.Channels[id] = &copied
		snapshot.TotalAttempted += stats.Attempted
		snapshot.TotalSent += stats.Delivered
		snapshot.TotalFailed += stats.Failed
	}

	if snapshot.TotalAttempted > 0 {
		snapshot.DeliveryRate = float64(snapshot.TotalSent) / float64(snapshot.TotalAttempted)
	}

	return snapshot
}

// ChannelSnapshot returns the counters for one channel
func (c *Collector) ChannelSnapshot(channelID string) *ChannelStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if stats, ok := c.channels[channelID]; ok {
		copied := *stats
		return &copied
	}
	return &ChannelStats{}
}
