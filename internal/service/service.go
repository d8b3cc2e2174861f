package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/osaretin/rosca-server/internal/models"
	"github.com/osaretin/rosca-server/internal/ratelimit"
	"github.com/osaretin/rosca-server/internal/relay"
	"github.com/osaretin/rosca-server/internal/repository"
)

// Service defines all the business logic operations
type Service interface {
	// Group operations
	CreateGroup(ctx context.Context, userID string, req models.CreateGroupRequest) (*models.GroupDetailResponse, error)
	GetGroup(ctx context.Context, userID, groupID string) (*models.GroupDetailResponse, error)
	ListGroups(ctx context.Context, userID string) (*models.GroupsResponse, error)
	UpdateGroup(ctx context.Context, userID, groupID string, req models.UpdateGroupRequest) (*models.GroupResponse, error)
	ArchiveGroup(ctx context.Context, userID, groupID string) error
	UnarchiveGroup(ctx context.Context, userID, groupID string) error
	DeleteGroup(ctx context.Context, userID, groupID string) error
	JoinGroup(ctx context.Context, userID string, req models.JoinGroupRequest) (*models.JoinGroupResponse, error)

	// Queue operations
	MoveMember(ctx context.Context, userID, groupID, memberID, direction string) (*models.MoveMemberResponse, error)
	RestoreMember(ctx context.Context, userID, groupID, memberID string) (*models.RestoreMemberResponse, error)

	// Cycle and payment operations
	StartCycle(ctx context.Context, userID, groupID string, req models.StartCycleRequest) (*models.StartCycleResponse, error)
	ListCycles(ctx context.Context, userID, groupID string) (*models.CyclesResponse, error)
	GetActiveCycle(ctx context.Context, userID, groupID string) (*models.CycleDetailResponse, error)
	MarkPaymentSent(ctx context.Context, userID, logID string) (*models.PaymentLogResponse, error)
	VerifyPayment(ctx context.Context, userID, logID string) (*models.PaymentLogResponse, error)
	RejectPayment(ctx context.Context, userID, logID string) (*models.PaymentLogResponse, error)
	RemindMember(ctx context.Context, userID, logID string) (*models.RemindResponse, error)
	RemindAll(ctx context.Context, userID, cycleID string) (*models.RemindAllResponse, error)
	CloseCycle(ctx context.Context, userID, cycleID string) (*models.CloseCycleResponse, error)
	SendScheduledReminders(ctx context.Context) error

	// Activity and notification operations
	ListActivity(ctx context.Context, userID, groupID string, limit int) (*models.ActivityResponse, error)
	ListNotifications(ctx context.Context, userID string) (*models.NotificationsResponse, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
	ClearNotifications(ctx context.Context, userID string) error
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo           repository.Repository
	relay          *relay.Relay
	joinLimiter    *ratelimit.Limiter
	reminderWindow time.Duration
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, rel *relay.Relay, joinLimiter *ratelimit.Limiter, reminderWindow time.Duration) Service {
	return &DefaultService{
		repo:           repo,
		relay:          rel,
		joinLimiter:    joinLimiter,
		reminderWindow: reminderWindow,
	}
}

// Helper methods

// membership loads the group and the caller's member row, failing with
// ErrGroupNotFound or ErrPermissionDenied.
func (s *DefaultService) membership(ctx context.Context, groupID, userID string) (*models.Group, *models.Member, error) {
	group, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting group: %w", err)
	}

	if group == nil {
		return nil, nil, models.ErrGroupNotFound
	}

	member, err := s.repo.GetMemberByUser(ctx, groupID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting membership: %w", err)
	}

	if member == nil {
		return nil, nil, models.ErrPermissionDenied
	}

	return group, member, nil
}

// requireOfficer is membership plus a president/vice-president role check.
// Vice presidents hold the same rights as presidents for every gated
// operation.
func (s *DefaultService) requireOfficer(ctx context.Context, groupID, userID string) (*models.Group, *models.Member, error) {
	group, member, err := s.membership(ctx, groupID, userID)
	if err != nil {
		return nil, nil, err
	}

	if !isOfficer(member) {
		return nil, nil, models.ErrPermissionDenied
	}

	return group, member, nil
}

func isOfficer(member *models.Member) bool {
	return member.Role == models.RolePresident || member.Role == models.RoleVicePresident
}

// Invite codes are short lookup tokens, not secrets; joins are rate-limited
// instead. The charset skips easily confused characters.
const (
	inviteCodeLength  = 10
	inviteCodeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

func generateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("error generating invite code: %w", err)
	}

	for i, b := range buf {
		buf[i] = inviteCodeCharset[int(b)%len(inviteCodeCharset)]
	}

	return string(buf), nil
}
