package service

import (
	"context"
	"fmt"

	"github.com/osaretin/rosca-server/internal/models"
)

// Activity and notification operations

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ListActivity returns recent audit events for the group.
func (s *DefaultService) ListActivity(ctx context.Context, userID, groupID string, limit int) (*models.ActivityResponse, error) {
	_, _, err := s.membership(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	activities, err := s.repo.ListActivity(ctx, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing activity: %w", err)
	}

	return &models.ActivityResponse{
		Status:     "success",
		Activities: activities,
	}, nil
}

// ListNotifications returns the caller's uncleared notifications.
func (s *DefaultService) ListNotifications(ctx context.Context, userID string) (*models.NotificationsResponse, error) {
	notifications, err := s.repo.ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}

	return &models.NotificationsResponse{
		Status:        "success",
		Notifications: notifications,
	}, nil
}

// MarkNotificationRead marks one of the caller's notifications as read.
func (s *DefaultService) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	return s.repo.MarkNotificationRead(ctx, notificationID, userID)
}

// ClearNotifications soft-clears every notification for the caller.
func (s *DefaultService) ClearNotifications(ctx context.Context, userID string) error {
	if err := s.repo.ClearNotifications(ctx, userID); err != nil {
		return fmt.Errorf("error clearing notifications: %w", err)
	}

	return nil
}
