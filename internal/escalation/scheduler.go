// Package escalation provides the timer wheel driving delayed re-dispatch of
// failed deliveries and pre-scheduled sends.
package escalation

import (
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devsecdash/notification-engine/internal/models"
	"github.com/devsecdash/notification-engine/pkg/utils"
)

// Config holds scheduler configuration. DelayUnit scales rule delay values
// (production: one minute); tests shrink it to keep delays sub-second.
type Config struct {
	DelayUnit time.Duration `json:"delay_unit"`
}

// Dispatcher re-dispatches an escalated payload. Implemented by the router.
type Dispatcher interface {
	DispatchEscalation(payload *models.NotificationPayload, rule *models.NotificationRule, level int)
}

type scheduledTask struct {
	timer   *time.Timer
	payload *models.NotificationPayload
}

// Scheduler runs delay-based escalation and scheduled-send timers.
// Cancellation before the delay elapses is race-free: the timer either fires
// or is stopped under the lock, never both.
type Scheduler struct {
	config     *Config
	dispatcher Dispatcher
	logger     *logrus.Entry

	mu          sync.Mutex
	escalations map[string]*time.Timer
	scheduled   map[string]*scheduledTask
	stopped     bool
}

// NewScheduler creates a scheduler that re-dispatches through the given
// dispatcher
func NewScheduler(config *Config, dispatcher Dispatcher) *Scheduler {
	if config == nil {
		config = &Config{}
	}
	if config.DelayUnit <= 0 {
		config.DelayUnit = time.Minute
	}
	return &Scheduler{
		config:      config,
		dispatcher:  dispatcher,
		escalations: make(map[string]*time.Timer),
		scheduled:   make(map[string]*scheduledTask),
		logger:      utils.GetLogger().WithField("component", "escalation"),
	}
}

// ScheduleEscalation arms a timer that re-dispatches the payload against the
// rule's escalation channels after the rule's configured delay. Level is the
// escalation level the new attempt will carry; levels beyond the rule's
// maximum freeze the delivery with no further action.
func (s *Scheduler) ScheduleEscalation(payload *models.NotificationPayload, rule *models.NotificationRule, level int) bool {
	esc := rule.Escalation
	if esc == nil || !esc.Enabled || level > esc.MaxEscalations {
		return false
	}

	delay := time.Duration(esc.DelayMinutes) * s.config.DelayUnit
	key := utils.DeliveryKey(payload.ID, rule.ID) + ":" + strconv.Itoa(level)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if _, exists := s.escalations[key]; exists {
		return false
	}

	s.escalations[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.escalations, key)
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		s.dispatcher.DispatchEscalation(payload, rule, level)
	})

	s.logger.WithFields(logrus.Fields{
		"notification_id": payload.ID,
		"rule_id":         rule.ID,
		"level":           level,
		"delay":           delay.String(),
	}).Info("Escalation scheduled")

	return true
}

// Schedule arms a one-shot timer firing fn at sendAt. Returns false when a
// task with the same ID is already pending.
func (s *Scheduler) Schedule(id string, payload *models.NotificationPayload, sendAt time.Time, fn func()) bool {
	delay := time.Until(sendAt)
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if _, exists := s.scheduled[id]; exists {
		return false
	}

	s.scheduled[id] = &scheduledTask{
		payload: payload,
		timer: time.AfterFunc(delay, func() {
			s.mu.Lock()
			_, pending := s.scheduled[id]
			delete(s.scheduled, id)
			stopped := s.stopped
			s.mu.Unlock()
			if !pending || stopped {
				return
			}
			fn()
		}),
	}

	return true
}

// Cancel stops a pending scheduled send before it fires. Returns the
// cancelled payload, or nil when the task already fired or never existed.
func (s *Scheduler) Cancel(id string) *models.NotificationPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.scheduled[id]
	if !exists {
		return nil
	}
	delete(s.scheduled, id)
	task.timer.Stop()

	s.logger.WithField("schedule_id", id).Info("Scheduled notification cancelled")
	return task.payload
}

// PendingEscalations returns the number of armed escalation timers
func (s *Scheduler) PendingEscalations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.escalations)
}

// PendingScheduled returns the number of armed scheduled sends
func (s *Scheduler) PendingScheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scheduled)
}

// Stop cancels all pending timers
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for key, timer := range s.escalations {
		timer.Stop()
		delete(s.escalations, key)
	}
	for id, task := range s.scheduled {
		task.timer.Stop()
		delete(s.scheduled, id)
	}
}
