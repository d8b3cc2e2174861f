package models

import (
	"time"
)

// Frequency is how often a group collects contributions
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// MemberStatus is the standing of a membership within its group
type MemberStatus string

const (
	MemberActive  MemberStatus = "active"
	MemberLocked  MemberStatus = "locked"
	MemberPending MemberStatus = "pending"
)

// MemberRole determines which gated operations a member may perform.
// Vice presidents hold the same rights as presidents everywhere.
type MemberRole string

const (
	RolePresident     MemberRole = "president"
	RoleVicePresident MemberRole = "vice_president"
	RoleMember        MemberRole = "member"
)

// CycleStatus is the state of a payment cycle. Closed is terminal.
type CycleStatus string

const (
	CycleActive CycleStatus = "active"
	CycleClosed CycleStatus = "closed"
)

// PaymentStatus is the state of a single member's payment within a cycle
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPending  PaymentStatus = "pending"
	PaymentRejected PaymentStatus = "rejected"
	PaymentVerified PaymentStatus = "verified"
)

// ActionType enumerates the audit events recorded in the activity feed
type ActionType string

const (
	ActionGroupCreated    ActionType = "group_created"
	ActionGroupUpdated    ActionType = "group_updated"
	ActionGroupArchived   ActionType = "group_archived"
	ActionGroupUnarchived ActionType = "group_unarchived"
	ActionMemberJoined    ActionType = "member_joined"
	ActionMemberRestored  ActionType = "member_restored"
	ActionMemberLocked    ActionType = "member_locked"
	ActionQueueReordered  ActionType = "queue_reordered"
	ActionCycleStarted    ActionType = "cycle_started"
	ActionCycleClosed     ActionType = "cycle_closed"
	ActionPaymentMarked   ActionType = "payment_marked"
	ActionPaymentVerified ActionType = "payment_verified"
	ActionPaymentRejected ActionType = "payment_rejected"
	ActionReminderSent    ActionType = "reminder_sent"
)

// NotificationType enumerates the push/notification events
type NotificationType string

const (
	NotifyPaymentPending  NotificationType = "payment_pending"
	NotifyPaymentVerified NotificationType = "payment_verified"
	NotifyPaymentRejected NotificationType = "payment_rejected"
	NotifyReminder        NotificationType = "payment_reminder"
	NotifyMemberJoined    NotificationType = "member_joined"
	NotifyMemberLocked    NotificationType = "member_locked"
	NotifyMemberRestored  NotificationType = "member_restored"
	NotifyCycleStarted    NotificationType = "cycle_started"
	NotifyCycleClosed     NotificationType = "cycle_closed"
)

// Group represents one savings circle
type Group struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	PresidentID  string     `db:"president_id" json:"presidentId"`
	Contribution float64    `db:"contribution" json:"contribution"`
	Frequency    Frequency  `db:"frequency" json:"frequency"`
	InviteCode   string     `db:"invite_code" json:"inviteCode"`
	ArchivedAt   *time.Time `db:"archived_at" json:"archivedAt,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// Member is a user's membership record within a single group.
// QueuePosition ranks active members for payouts; position 1 is next.
type Member struct {
	ID                 string       `db:"id" json:"id"`
	GroupID            string       `db:"group_id" json:"groupId"`
	UserID             string       `db:"user_id" json:"userId"`
	DisplayName        string       `db:"display_name" json:"displayName"`
	Role               MemberRole   `db:"role" json:"role"`
	Status             MemberStatus `db:"status" json:"status"`
	QueuePosition      int          `db:"queue_position" json:"queuePosition"`
	MissedPaymentCount int          `db:"missed_payment_count" json:"missedPaymentCount"`
	CreatedAt          time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updatedAt"`
}

// PaymentCycle is one collection period for a group
type PaymentCycle struct {
	ID        string      `db:"id" json:"id"`
	GroupID   string      `db:"group_id" json:"groupId"`
	StartDate time.Time   `db:"start_date" json:"startDate"`
	DueDate   time.Time   `db:"due_date" json:"dueDate"`
	Status    CycleStatus `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
}

// PaymentLog tracks one member's payment through one cycle
type PaymentLog struct {
	ID             string        `db:"id" json:"id"`
	CycleID        string        `db:"cycle_id" json:"cycleId"`
	GroupID        string        `db:"group_id" json:"groupId"`
	MemberID       string        `db:"member_id" json:"memberId"`
	Status         PaymentStatus `db:"status" json:"status"`
	MarkedAt       *time.Time    `db:"marked_at" json:"markedAt,omitempty"`
	VerifiedAt     *time.Time    `db:"verified_at" json:"verifiedAt,omitempty"`
	ReminderCount  int           `db:"reminder_count" json:"reminderCount"`
	LastRemindedAt *time.Time    `db:"last_reminded_at" json:"lastRemindedAt,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`
}

// PaymentLogView is a PaymentLog enriched with member details for list
// views. MemberName falls back to "Unknown" when the join is missing so
// lists still render.
type PaymentLogView struct {
	PaymentLog
	MemberName   string `db:"member_name" json:"memberName"`
	MemberUserID string `db:"member_user_id" json:"memberUserId"`
}

// ActivityLog is an append-only audit record
type ActivityLog struct {
	ID        string     `db:"id" json:"id"`
	GroupID   string     `db:"group_id" json:"groupId"`
	ActorID   string     `db:"actor_id" json:"actorId"`
	ActorName string     `db:"actor_name" json:"actorName"`
	Action    ActionType `db:"action" json:"action"`
	TargetID  string     `db:"target_id" json:"targetId,omitempty"`
	Metadata  string     `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

// Notification is a per-user event record; Read and ClearedAt are the only
// fields ever mutated after insert
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"userId"`
	GroupID   string           `db:"group_id" json:"groupId"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"read" json:"read"`
	ClearedAt *time.Time       `db:"cleared_at" json:"-"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}
