// Package router orchestrates notification delivery: preference filtering,
// rule matching, rate limiting, concurrent channel dispatch, escalation, and
// digest accumulation.
package router

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devsecdash/notification-engine/internal/channel"
	"github.com/devsecdash/notification-engine/internal/digest"
	"github.com/devsecdash/notification-engine/internal/escalation"
	"github.com/devsecdash/notification-engine/internal/metrics"
	"github.com/devsecdash/notification-engine/internal/models"
	"github.com/devsecdash/notification-engine/internal/preferences"
	"github.com/devsecdash/notification-engine/internal/ratelimit"
	"github.com/devsecdash/notification-engine/internal/rules"
	"github.com/devsecdash/notification-engine/internal/storage"
	"github.com/devsecdash/notification-engine/pkg/utils"
)

// Config holds router configuration
type Config struct {
	Workers             int               `json:"workers"`              // concurrent channel-call ceiling
	DeliveryTimeout     time.Duration     `json:"delivery_timeout"`     // per channel call
	RateLimit           *ratelimit.Config `json:"rate_limit"`           // per (recipient, channel)
	EscalationDelayUnit time.Duration     `json:"escalation_delay_unit"`
}

// DefaultConfig returns the default router configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:         64,
		DeliveryTimeout: 30 * time.Second,
		RateLimit:       ratelimit.DefaultConfig(),
	}
}

// Service is the top-level notification routing engine
type Service struct {
	config *Config
	logger *logrus.Entry

	mu       sync.RWMutex
	running  bool
	channels map[string]channel.Channel

	prefs     preferences.Store
	ruleSet   *rules.Set
	limiter   *ratelimit.Limiter // per (recipient, channel), default window
	hourly    *ratelimit.Limiter // rule MaxPerHour and cooldown windows
	daily     *ratelimit.Limiter // per-user daily cap and rule MaxPerDay
	digests   *digest.Accumulator
	collector *metrics.Collector
	scheduler *escalation.Scheduler
	store     storage.Store

	sem chan struct{}
}

// NewService creates a router service. The storage store is optional; when
// nil, delivery history is not persisted.
func NewService(config *Config, prefs preferences.Store, store storage.Store) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		config.Workers = 64
	}
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = 30 * time.Second
	}
	if prefs == nil {
		prefs = preferences.NewMemoryStore()
	}

	s := &Service{
		config:    config,
		logger:    utils.GetLogger().WithField("component", "router"),
		channels:  make(map[string]channel.Channel),
		prefs:     prefs,
		ruleSet:   rules.NewSet(),
		limiter:   ratelimit.NewLimiter(config.RateLimit),
		hourly:    ratelimit.NewLimiter(&ratelimit.Config{Capacity: 60, Window: time.Hour}),
		daily:     ratelimit.NewLimiter(&ratelimit.Config{Capacity: 50, Window: 24 * time.Hour}),
		digests:   digest.NewAccumulator(prefs),
		collector: metrics.NewCollector(),
		store:     store,
		sem:       make(chan struct{}, config.Workers),
	}
	s.scheduler = escalation.NewScheduler(
		&escalation.Config{DelayUnit: config.EscalationDelayUnit}, s)

	return s
}

// Start marks the service as running
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Router already running")
	}
	s.running = true
	s.logger.WithField("workers", s.config.Workers).Info("Notification router started")
	return nil
}

// Stop stops the service and cancels pending timers
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.scheduler.Stop()
	s.logger.Info("Notification router stopped")
	return nil
}

// IsHealthy reports whether the service is running
func (s *Service) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// RegisterChannel adds a delivery channel to the router
func (s *Service) RegisterChannel(ch channel.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.channels[ch.ID()] = ch
	s.collector.Prometheus().ActiveChannels.Set(float64(len(s.channels)))
	s.logger.WithField("channel", ch.ID()).Info("Channel registered")
}

// Channel returns a registered channel by ID
func (s *Service) Channel(id string) (channel.Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[id]
	return ch, ok
}

// GetUserPreferences returns the preferences for a user, defaults if absent
func (s *Service) GetUserPreferences(userID string) *models.UserPreferences {
	return s.prefs.Get(userID)
}

// UpdateUserPreferences replaces a user's preferences wholesale
func (s *Service) UpdateUserPreferences(prefs *models.UserPreferences) error {
	return s.prefs.Upsert(prefs)
}

// AddNotificationRule validates and installs a routing rule
func (s *Service) AddNotificationRule(rule *models.NotificationRule) error {
	if err := s.ruleSet.AddRule(rule); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.SaveRule(context.Background(), rule); err != nil {
			s.logger.WithError(err).Warn("Failed to persist rule")
		}
	}
	s.collector.Prometheus().RulesActive.Set(float64(len(s.ruleSet.ListRules())))
	return nil
}

// RemoveNotificationRule deletes a rule and reports whether it existed
func (s *Service) RemoveNotificationRule(id string) bool {
	removed := s.ruleSet.RemoveRule(id)
	if removed && s.store != nil {
		if err := s.store.DeleteRule(context.Background(), id); err != nil {
			s.logger.WithError(err).Warn("Failed to delete persisted rule")
		}
	}
	if removed {
		s.collector.Prometheus().RulesActive.Set(float64(len(s.ruleSet.ListRules())))
	}
	return removed
}

// Rules returns the installed rules in insertion order
func (s *Service) Rules() []*models.NotificationRule {
	return s.ruleSet.ListRules()
}

// GenerateDigest snapshots and clears the pending digest for (user, frequency)
func (s *Service) GenerateDigest(userID string, frequency models.DigestFrequency) (*models.NotificationDigest, error) {
	if !frequency.IsValid() {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Unknown digest frequency", string(frequency))
	}
	d := s.digests.Generate(userID, frequency)
	s.collector.Prometheus().DigestsGeneratedTotal.Inc()
	return d, nil
}

// GetNotificationMetrics returns a snapshot of delivery metrics
func (s *Service) GetNotificationMetrics() *metrics.Stats {
	return s.collector.Snapshot()
}

// Metrics returns the underlying collector (for Prometheus export)
func (s *Service) Metrics() *metrics.Collector {
	return s.collector
}

// RecentDeliveries returns persisted delivery history, newest first
func (s *Service) RecentDeliveries(ctx context.Context, limit int) ([]*models.NotificationDelivery, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListDeliveries(ctx, limit)
}

// validatePayload rejects malformed input synchronously. A missing ID or
// creation time is filled in rather than rejected.
func (s *Service) validatePayload(payload *models.NotificationPayload) error {
	if payload == nil {
		return utils.NewAppError(utils.ErrCodeValidation, "Payload is required")
	}
	if !payload.Type.IsValid() {
		return utils.NewAppError(utils.ErrCodeValidation, "Unknown notification type", string(payload.Type))
	}
	if !payload.Priority.IsValid() {
		return utils.NewAppError(utils.ErrCodeValidation, "Unknown priority", string(payload.Priority))
	}
	if payload.Title == "" {
		return utils.NewAppError(utils.ErrCodeValidation, "Title is required")
	}
	if payload.ID == "" {
		payload.ID = utils.GenerateID()
	}
	if payload.CreatedAt.IsZero() {
		payload.CreatedAt = time.Now()
	}
	return nil
}
