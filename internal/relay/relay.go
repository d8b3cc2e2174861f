package relay

import (
	"context"
	"log/slog"

	"github.com/osaretin/rosca-server/internal/models"
	"github.com/osaretin/rosca-server/internal/push"
	"github.com/osaretin/rosca-server/internal/repository"
)

// Relay records audit events and delivers notifications on behalf of the
// core. It owns none of the delivery guarantees: a failed write is logged
// and swallowed so the triggering operation still succeeds.
type Relay struct {
	repo repository.Repository
	pub  push.Publisher
}

// New creates a relay over the given store and push channel.
func New(repo repository.Repository, pub push.Publisher) *Relay {
	return &Relay{repo: repo, pub: pub}
}

// Record appends one activity row for the group.
func (r *Relay) Record(ctx context.Context, groupID string, actor *models.Member, action models.ActionType, targetID, metadata string) {
	activity := &models.ActivityLog{
		GroupID:   groupID,
		Action:    action,
		TargetID:  targetID,
		Metadata:  metadata,
		ActorName: "Unknown",
	}

	if actor != nil {
		activity.ActorID = actor.UserID
		activity.ActorName = actor.DisplayName
	}

	if err := r.repo.InsertActivity(ctx, activity); err != nil {
		slog.Warn("failed to record activity",
			"group_id", groupID,
			"action", action,
			"error", err,
		)
	}
}

// Notify stores a notification for the user and publishes an advisory push
// event for the group.
func (r *Relay) Notify(ctx context.Context, notification *models.Notification, logID string) {
	if err := r.repo.InsertNotification(ctx, notification); err != nil {
		slog.Warn("failed to store notification",
			"user_id", notification.UserID,
			"type", notification.Type,
			"error", err,
		)
		return
	}

	r.pub.Publish(ctx, push.Event{
		Type:    string(notification.Type),
		GroupID: notification.GroupID,
		LogID:   logID,
		Payload: notification,
	})
}
