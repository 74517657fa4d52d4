package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devsecdash/notification-engine/internal/channel"
	"github.com/devsecdash/notification-engine/internal/models"
	"github.com/devsecdash/notification-engine/pkg/utils"
)

// SendNotification applies the decision chain to every (recipient, channel)
// pair concurrently and returns once every pair is terminal or skipped.
// Skipped pairs produce no delivery record; failed pairs produce a record
// with an error. Failures in one pair never abort siblings.
func (s *Service) SendNotification(ctx context.Context, payload *models.NotificationPayload, recipients, channelIDs []string) ([]*models.NotificationDelivery, error) {
	if err := s.validatePayload(payload); err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "At least one recipient is required")
	}
	if len(channelIDs) == 0 {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "At least one channel is required")
	}

	// Unknown channels are configuration errors, raised before any dispatch
	targets := make([]channel.Channel, 0, len(channelIDs))
	for _, id := range channelIDs {
		ch, ok := s.Channel(id)
		if !ok {
			return nil, utils.NewAppError(utils.ErrCodeConfiguration, "Unknown channel", id)
		}
		targets = append(targets, ch)
	}

	// The first matching rule contributes escalation and rate-limit policy
	rule := s.matchRule(payload)

	s.logger.WithFields(logrus.Fields{
		"notification_id": payload.ID,
		"type":            payload.Type,
		"priority":        payload.Priority,
		"recipients":      len(recipients),
		"channels":        len(channelIDs),
	}).Debug("Dispatching notification")

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		deliveries []*models.NotificationDelivery
	)

	for _, recipient := range recipients {
		for _, ch := range targets {
			wg.Add(1)
			go func(recipient string, ch channel.Channel) {
				defer wg.Done()

				s.sem <- struct{}{}
				defer func() { <-s.sem }()

				delivery := s.deliverPair(ctx, payload, rule, recipient, ch, 0)
				if delivery != nil {
					mu.Lock()
					deliveries = append(deliveries, delivery)
					mu.Unlock()
				}
			}(recipient, ch)
		}
	}

	wg.Wait()
	return deliveries, nil
}

// matchRule returns the first enabled rule matching the payload, or nil
func (s *Service) matchRule(payload *models.NotificationPayload) *models.NotificationRule {
	matched := s.ruleSet.Match(payload)
	if len(matched) == 0 {
		return nil
	}
	return matched[0]
}

// deliverPair runs the decision chain for one (recipient, channel) pair.
// A nil return means the pair was filtered (skip); a non-nil return carries
// a terminal delivered/failed state. The chain order is fixed: channel
// enabled, type enabled, digest diversion, priority threshold, rate limits,
// message length, channel dispatch.
func (s *Service) deliverPair(ctx context.Context, payload *models.NotificationPayload, rule *models.NotificationRule, recipient string, ch channel.Channel, escalationLevel int) *models.NotificationDelivery {
	prefs := s.prefs.Get(recipient)
	channelID := ch.ID()
	prom := s.collector.Prometheus()

	// 1. Channel enabled for recipient
	if !prefs.ChannelEnabled(channelID) {
		prom.RecordSkip(channelID, "channel_disabled")
		return nil
	}

	// Quiet hours silence the channel the same way a disabled channel does
	if pref := prefs.Channels[channelID]; pref != nil && inQuietHours(pref.QuietHours, time.Now()) {
		prom.RecordSkip(channelID, "quiet_hours")
		return nil
	}

	// 2. Notification type enabled for recipient
	typePref := prefs.TypePreferenceFor(payload.Type)
	if typePref == nil || !typePref.Enabled {
		prom.RecordSkip(channelID, "type_disabled")
		return nil
	}

	// Digest-eligible notifications are buffered instead of sent immediately
	if escalationLevel == 0 && s.digests.Accumulate(recipient, payload) {
		prom.RecordSkip(channelID, "digest")
		return nil
	}

	// 3. Priority at or above the recipient's threshold for this type
	minPriority := typePref.MinPriority
	if minPriority == "" {
		minPriority = models.PriorityLow
	}
	if !payload.Priority.AtLeast(minPriority) {
		prom.RecordSkip(channelID, "below_min_priority")
		return nil
	}

	delivery := &models.NotificationDelivery{
		ID:              utils.GenerateID(),
		NotificationID:  payload.ID,
		Recipient:       recipient,
		ChannelID:       channelID,
		Status:          models.DeliveryStatusPending,
		EscalationLevel: escalationLevel,
		CreatedAt:       time.Now(),
	}

	// 4. Rate limits: per-pair window, rule hourly override, user daily cap.
	// A rate-limited delivery consumes an attempt but never escalates.
	if reason, limited := s.checkRateLimits(rule, prefs, recipient, channelID); limited {
		s.failDelivery(delivery, payload, reason, 0)
		prom.RecordRateLimitRejection(channelID)
		return delivery
	}

	// 5. Channel message length constraint, checked without invoking the channel
	message := channel.RenderMessage(payload.Title, payload.Message, payload.Metadata)
	features := ch.Features()
	if len(message) > features.MaxMessageLength {
		s.failDelivery(delivery, payload,
			fmt.Sprintf("Message exceeds channel character limit (%d)", features.MaxMessageLength), 0)
		return delivery
	}

	// 6. Channel dispatch
	delivery.Status = models.DeliveryStatusSending
	delivery.Attempts++

	start := time.Now()
	deliverCtx, cancel := context.WithTimeout(ctx, s.config.DeliveryTimeout)
	err := ch.Deliver(deliverCtx, prefs.AddressFor(channelID), message)
	cancel()
	duration := time.Since(start)

	if err != nil {
		s.failDelivery(delivery, payload, err.Error(), duration)
		s.maybeEscalate(payload, rule, prefs, delivery)
		return delivery
	}

	now := time.Now()
	delivery.Status = models.DeliveryStatusDelivered
	delivery.DeliveredAt = &now
	s.collector.RecordOutcome(channelID, string(payload.Type), true, duration)
	s.persistDelivery(delivery)

	return delivery
}

// checkRateLimits runs the rate-limit portion of the decision chain
func (s *Service) checkRateLimits(rule *models.NotificationRule, prefs *models.UserPreferences, recipient, channelID string) (string, bool) {
	key := utils.DeliveryKey(recipient, channelID)

	if !s.limiter.Allow(key) {
		return fmt.Sprintf("Rate limit exceeded for %s", key), true
	}

	if rule != nil && rule.RateLimit != nil {
		rl := rule.RateLimit
		ruleKey := "rule:" + rule.ID + ":" + key

		if rl.MaxPerHour > 0 && !s.hourly.AllowLimit(ruleKey, rl.MaxPerHour) {
			return fmt.Sprintf("Rate limit exceeded for rule %s", rule.ID), true
		}
		if rl.MaxPerDay > 0 && !s.daily.AllowLimit(ruleKey+":day", rl.MaxPerDay) {
			return fmt.Sprintf("Daily rate limit exceeded for rule %s", rule.ID), true
		}
		if rl.CooldownMinutes > 0 {
			cooldown := time.Duration(rl.CooldownMinutes) * time.Minute
			if !s.hourly.AllowWindow(ruleKey+":cooldown", 1, cooldown) {
				return fmt.Sprintf("Cooldown active for rule %s", rule.ID), true
			}
		}
	}

	if dailyCap := prefs.Global.MaxNotificationsPerDay; dailyCap > 0 {
		if !s.daily.AllowLimit("daily:"+recipient, dailyCap) {
			return fmt.Sprintf("Rate limit exceeded: daily cap for %s", recipient), true
		}
	}

	return "", false
}

// failDelivery marks a delivery failed and records the terminal outcome
func (s *Service) failDelivery(delivery *models.NotificationDelivery, payload *models.NotificationPayload, errMsg string, duration time.Duration) {
	if delivery.Attempts == 0 {
		delivery.Attempts = 1
	}
	delivery.Status = models.DeliveryStatusFailed
	delivery.Error = &errMsg

	s.logger.WithFields(logrus.Fields{
		"notification_id": delivery.NotificationID,
		"recipient":       delivery.Recipient,
		"channel":         delivery.ChannelID,
		"error":           errMsg,
	}).Warn("Delivery failed")

	s.collector.RecordOutcome(delivery.ChannelID, string(payload.Type), false, duration)
	s.persistDelivery(delivery)
}

// maybeEscalate arms the escalation timer after a transport failure
func (s *Service) maybeEscalate(payload *models.NotificationPayload, rule *models.NotificationRule, prefs *models.UserPreferences, delivery *models.NotificationDelivery) {
	if rule == nil || rule.Escalation == nil || !rule.Escalation.Enabled {
		return
	}
	if !prefs.Global.EnableEscalation {
		return
	}
	s.scheduler.ScheduleEscalation(payload, rule, delivery.EscalationLevel+1)
}

// DispatchEscalation re-dispatches a payload against the rule's escalation
// channels and recipients. An escalated failure arms the next level until
// the rule's maximum is reached. Causally ordered after the originating
// failure by the scheduler's timer.
func (s *Service) DispatchEscalation(payload *models.NotificationPayload, rule *models.NotificationRule, level int) {
	if !s.IsHealthy() {
		return
	}

	esc := rule.Escalation
	recipients := esc.Recipients
	if len(recipients) == 0 {
		return
	}

	s.collector.Prometheus().RecordEscalation(rule.ID)
	s.logger.WithFields(logrus.Fields{
		"notification_id": payload.ID,
		"rule_id":         rule.ID,
		"level":           level,
	}).Info("Escalating notification")

	ctx := context.Background()
	for _, recipient := range recipients {
		for _, channelID := range esc.Channels {
			ch, ok := s.Channel(channelID)
			if !ok {
				s.logger.WithField("channel", channelID).Warn("Escalation channel not registered")
				continue
			}
			s.deliverPair(ctx, payload, rule, recipient, ch, level)
		}
	}
}

// persistDelivery appends a terminal delivery to the history store
func (s *Service) persistDelivery(delivery *models.NotificationDelivery) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveDelivery(context.Background(), delivery); err != nil {
		s.logger.WithError(err).Debug("Failed to persist delivery")
	}
}

// inQuietHours reports whether now falls inside the quiet-hours window,
// evaluated in the window's timezone. Windows may wrap midnight. A bad zone
// name falls back to UTC.
func inQuietHours(q *models.QuietHours, now time.Time) bool {
	if q == nil || q.Start == "" || q.End == "" {
		return false
	}

	loc := time.UTC
	if q.Timezone != "" {
		if tz, err := time.LoadLocation(q.Timezone); err == nil {
			loc = tz
		}
	}

	start, err := time.Parse("15:04", q.Start)
	if err != nil {
		return false
	}
	end, err := time.Parse("15:04", q.End)
	if err != nil {
		return false
	}

	local := now.In(loc)
	minutes := local.Hour()*60 + local.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()

	if startMin <= endMin {
		return minutes >= startMin && minutes < endMin
	}
	// Window wraps midnight
	return minutes >= startMin || minutes < endMin
}
