package repository

import (
	"context"
	"time"

	"github.com/osaretin/rosca-server/internal/models"
)

// CloseCycleResult reports the outcome of closing a payment cycle
type CloseCycleResult struct {
	MissedPayments  int
	LockedMemberIDs []string
}

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// Group operations
	CreateGroup(ctx context.Context, group *models.Group, creator *models.Member) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)
	GetUserGroups(ctx context.Context, userID string) ([]models.Group, error)
	UpdateGroup(ctx context.Context, group *models.Group) error
	SetGroupArchived(ctx context.Context, groupID string, archivedAt *time.Time) error
	DeleteGroup(ctx context.Context, groupID string) error

	// Member and queue operations
	GetMember(ctx context.Context, memberID string) (*models.Member, error)
	GetMemberByUser(ctx context.Context, groupID, userID string) (*models.Member, error)
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)
	ListActiveMembers(ctx context.Context, groupID string) ([]models.Member, error)
	AppendMember(ctx context.Context, member *models.Member) error
	SwapQueuePositions(ctx context.Context, groupID, memberID, neighborID string) error
	RestoreMember(ctx context.Context, groupID, memberID string) (int, error)

	// Cycle operations
	CreateCycleWithLogs(ctx context.Context, cycle *models.PaymentCycle, members []models.Member) (int, error)
	GetCycle(ctx context.Context, cycleID string) (*models.PaymentCycle, error)
	GetActiveCycle(ctx context.Context, groupID string) (*models.PaymentCycle, error)
	ListCycles(ctx context.Context, groupID string) ([]models.PaymentCycle, error)
	CloseCycle(ctx context.Context, cycleID string) (*CloseCycleResult, error)
	ListOverdueActiveCycles(ctx context.Context, now time.Time) ([]models.PaymentCycle, error)

	// Payment log operations
	GetPaymentLog(ctx context.Context, logID string) (*models.PaymentLog, error)
	ListCycleLogs(ctx context.Context, cycleID string) ([]models.PaymentLogView, error)
	CreatePaymentLog(ctx context.Context, log *models.PaymentLog) error
	MarkLogSent(ctx context.Context, logID string) (*models.PaymentLog, error)
	VerifyLog(ctx context.Context, logID string) (*models.PaymentLog, error)
	RejectLog(ctx context.Context, logID string) (*models.PaymentLog, error)
	TouchReminder(ctx context.Context, logID string, window time.Duration) (bool, error)

	// Activity and notification operations
	InsertActivity(ctx context.Context, activity *models.ActivityLog) error
	ListActivity(ctx context.Context, groupID string, limit int) ([]models.ActivityLog, error)
	InsertNotification(ctx context.Context, notification *models.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID string) error
	ClearNotifications(ctx context.Context, userID string) error
}
