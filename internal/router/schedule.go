package router

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devsecdash/notification-engine/internal/models"
	"github.com/devsecdash/notification-engine/pkg/utils"
)

// ScheduleNotification queues a payload for dispatch at sendAt and returns
// the schedule ID (the payload ID). The send runs through the normal
// decision chain when the timer fires.
func (s *Service) ScheduleNotification(payload *models.NotificationPayload, recipients, channelIDs []string, sendAt time.Time) (string, error) {
	if err := s.validatePayload(payload); err != nil {
		return "", err
	}

	scheduled := s.scheduler.Schedule(payload.ID, payload, sendAt, func() {
		if _, err := s.SendNotification(context.Background(), payload, recipients, channelIDs); err != nil {
			s.logger.WithError(err).WithField("notification_id", payload.ID).
				Error("Scheduled notification dispatch failed")
		}
	})
	if !scheduled {
		return "", utils.NewAppError(utils.ErrCodeValidation,
			"Notification already scheduled", payload.ID)
	}

	s.logger.WithFields(logrus.Fields{
		"notification_id": payload.ID,
		"send_at":         sendAt,
	}).Info("Notification scheduled")

	return payload.ID, nil
}

// CancelNotification cancels a scheduled send before it fires. The returned
// delivery record carries the terminal dismissed state; nil means the
// schedule already fired or never existed.
func (s *Service) CancelNotification(id string) *models.NotificationDelivery {
	payload := s.scheduler.Cancel(id)
	if payload == nil {
		return nil
	}

	delivery := &models.NotificationDelivery{
		ID:             utils.GenerateID(),
		NotificationID: payload.ID,
		Status:         models.DeliveryStatusDismissed,
		CreatedAt:      time.Now(),
	}
	s.persistDelivery(delivery)
	return delivery
}
