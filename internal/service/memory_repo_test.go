package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osaretin/rosca-server/internal/models"
	"github.com/osaretin/rosca-server/internal/repository"
)

// memoryRepo is an in-memory Repository double for service tests. It keeps
// the same transition semantics as the Postgres implementation: conditional
// transitions return (nil, nil) when nothing matched, and close/restore
// enforce their preconditions.
type memoryRepo struct {
	groups        map[string]*models.Group
	members       map[string]*models.Member
	cycles        map[string]*models.PaymentCycle
	logs          map[string]*models.PaymentLog
	activities    []models.ActivityLog
	notifications map[string]*models.Notification
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		groups:        make(map[string]*models.Group),
		members:       make(map[string]*models.Member),
		cycles:        make(map[string]*models.PaymentCycle),
		logs:          make(map[string]*models.PaymentLog),
		notifications: make(map[string]*models.Notification),
	}
}

var _ repository.Repository = (*memoryRepo)(nil)

// Group operations

func (r *memoryRepo) CreateGroup(_ context.Context, group *models.Group, creator *models.Member) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if creator.ID == "" {
		creator.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now

	creator.GroupID = group.ID
	creator.Role = models.RolePresident
	creator.Status = models.MemberActive
	creator.QueuePosition = 1
	creator.MissedPaymentCount = 0

	g := *group
	m := *creator
	r.groups[g.ID] = &g
	r.members[m.ID] = &m
	return nil
}

func (r *memoryRepo) GetGroup(_ context.Context, groupID string) (*models.Group, error) {
	group, ok := r.groups[groupID]
	if !ok {
		return nil, nil
	}
	copied := *group
	return &copied, nil
}

func (r *memoryRepo) GetGroupByInviteCode(_ context.Context, code string) (*models.Group, error) {
	for _, group := range r.groups {
		if strings.EqualFold(group.InviteCode, code) {
			copied := *group
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) GetUserGroups(_ context.Context, userID string) ([]models.Group, error) {
	var groups []models.Group
	for _, member := range r.members {
		if member.UserID != userID {
			continue
		}
		group, ok := r.groups[member.GroupID]
		if !ok || group.ArchivedAt != nil {
			continue
		}
		groups = append(groups, *group)
	}
	return groups, nil
}

func (r *memoryRepo) UpdateGroup(_ context.Context, group *models.Group) error {
	stored, ok := r.groups[group.ID]
	if !ok {
		return models.ErrGroupNotFound
	}
	stored.Name = group.Name
	stored.Contribution = group.Contribution
	stored.Frequency = group.Frequency
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryRepo) SetGroupArchived(_ context.Context, groupID string, archivedAt *time.Time) error {
	stored, ok := r.groups[groupID]
	if !ok {
		return models.ErrGroupNotFound
	}
	stored.ArchivedAt = archivedAt
	return nil
}

func (r *memoryRepo) DeleteGroup(_ context.Context, groupID string) error {
	for id, log := range r.logs {
		if log.GroupID == groupID {
			delete(r.logs, id)
		}
	}
	for id, cycle := range r.cycles {
		if cycle.GroupID == groupID {
			delete(r.cycles, id)
		}
	}
	for id, n := range r.notifications {
		if n.GroupID == groupID {
			delete(r.notifications, id)
		}
	}
	for id, member := range r.members {
		if member.GroupID == groupID {
			delete(r.members, id)
		}
	}
	delete(r.groups, groupID)
	return nil
}

// Member and queue operations

func (r *memoryRepo) GetMember(_ context.Context, memberID string) (*models.Member, error) {
	member, ok := r.members[memberID]
	if !ok {
		return nil, nil
	}
	copied := *member
	return &copied, nil
}

func (r *memoryRepo) GetMemberByUser(_ context.Context, groupID, userID string) (*models.Member, error) {
	for _, member := range r.members {
		if member.GroupID == groupID && member.UserID == userID {
			copied := *member
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) ListMembers(_ context.Context, groupID string) ([]models.Member, error) {
	var members []models.Member
	for _, member := range r.members {
		if member.GroupID == groupID {
			members = append(members, *member)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if (members[i].Status == models.MemberActive) != (members[j].Status == models.MemberActive) {
			return members[i].Status == models.MemberActive
		}
		return members[i].QueuePosition < members[j].QueuePosition
	})
	return members, nil
}

func (r *memoryRepo) ListActiveMembers(_ context.Context, groupID string) ([]models.Member, error) {
	var members []models.Member
	for _, member := range r.members {
		if member.GroupID == groupID && member.Status == models.MemberActive {
			members = append(members, *member)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].QueuePosition < members[j].QueuePosition
	})
	return members, nil
}

func (r *memoryRepo) maxActivePosition(groupID string) int {
	max := 0
	for _, member := range r.members {
		if member.GroupID == groupID && member.Status == models.MemberActive && member.QueuePosition > max {
			max = member.QueuePosition
		}
	}
	return max
}

func (r *memoryRepo) AppendMember(_ context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	member.Status = models.MemberActive
	member.QueuePosition = r.maxActivePosition(member.GroupID) + 1
	member.MissedPaymentCount = 0
	copied := *member
	r.members[copied.ID] = &copied
	return nil
}

func (r *memoryRepo) SwapQueuePositions(_ context.Context, groupID, memberID, neighborID string) error {
	a, okA := r.members[memberID]
	b, okB := r.members[neighborID]
	if !okA || !okB || a.GroupID != groupID || b.GroupID != groupID ||
		a.Status != models.MemberActive || b.Status != models.MemberActive {
		return models.ErrMemberNotFound
	}
	a.QueuePosition, b.QueuePosition = b.QueuePosition, a.QueuePosition
	return nil
}

func (r *memoryRepo) RestoreMember(_ context.Context, groupID, memberID string) (int, error) {
	member, ok := r.members[memberID]
	if !ok || member.GroupID != groupID || member.Status != models.MemberLocked {
		return 0, models.ErrMemberNotLocked
	}
	member.QueuePosition = r.maxActivePosition(groupID) + 1
	member.Status = models.MemberActive
	member.MissedPaymentCount = 0
	return member.QueuePosition, nil
}

// Cycle operations

func (r *memoryRepo) CreateCycleWithLogs(_ context.Context, cycle *models.PaymentCycle, members []models.Member) (int, error) {
	for _, existing := range r.cycles {
		if existing.GroupID == cycle.GroupID && existing.Status == models.CycleActive {
			return 0, models.ErrCycleAlreadyActive
		}
	}

	if cycle.ID == "" {
		cycle.ID = uuid.New().String()
	}
	cycle.Status = models.CycleActive
	copied := *cycle
	r.cycles[copied.ID] = &copied

	for _, member := range members {
		log := &models.PaymentLog{
			ID:       uuid.New().String(),
			CycleID:  cycle.ID,
			GroupID:  cycle.GroupID,
			MemberID: member.ID,
			Status:   models.PaymentUnpaid,
		}
		r.logs[log.ID] = log
	}

	return len(members), nil
}

func (r *memoryRepo) GetCycle(_ context.Context, cycleID string) (*models.PaymentCycle, error) {
	cycle, ok := r.cycles[cycleID]
	if !ok {
		return nil, nil
	}
	copied := *cycle
	return &copied, nil
}

func (r *memoryRepo) GetActiveCycle(_ context.Context, groupID string) (*models.PaymentCycle, error) {
	for _, cycle := range r.cycles {
		if cycle.GroupID == groupID && cycle.Status == models.CycleActive {
			copied := *cycle
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) ListCycles(_ context.Context, groupID string) ([]models.PaymentCycle, error) {
	var cycles []models.PaymentCycle
	for _, cycle := range r.cycles {
		if cycle.GroupID == groupID {
			cycles = append(cycles, *cycle)
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].StartDate.After(cycles[j].StartDate)
	})
	return cycles, nil
}

func (r *memoryRepo) CloseCycle(_ context.Context, cycleID string) (*repository.CloseCycleResult, error) {
	cycle, ok := r.cycles[cycleID]
	if !ok {
		return nil, models.ErrCycleNotFound
	}
	if cycle.Status != models.CycleActive {
		return nil, models.ErrCycleNotActive
	}

	result := &repository.CloseCycleResult{}
	for _, log := range r.logs {
		if log.CycleID != cycleID {
			continue
		}
		if log.Status != models.PaymentUnpaid && log.Status != models.PaymentRejected {
			continue
		}
		result.MissedPayments++
		member, ok := r.members[log.MemberID]
		if !ok {
			continue
		}
		member.MissedPaymentCount++
		if member.MissedPaymentCount >= 3 && member.Status == models.MemberActive {
			member.Status = models.MemberLocked
			result.LockedMemberIDs = append(result.LockedMemberIDs, member.ID)
		}
	}

	cycle.Status = models.CycleClosed
	return result, nil
}

func (r *memoryRepo) ListOverdueActiveCycles(_ context.Context, now time.Time) ([]models.PaymentCycle, error) {
	var cycles []models.PaymentCycle
	for _, cycle := range r.cycles {
		if cycle.Status == models.CycleActive && cycle.DueDate.Before(now) {
			cycles = append(cycles, *cycle)
		}
	}
	return cycles, nil
}

// Payment log operations

func (r *memoryRepo) GetPaymentLog(_ context.Context, logID string) (*models.PaymentLog, error) {
	log, ok := r.logs[logID]
	if !ok {
		return nil, nil
	}
	copied := *log
	return &copied, nil
}

func (r *memoryRepo) ListCycleLogs(_ context.Context, cycleID string) ([]models.PaymentLogView, error) {
	var views []models.PaymentLogView
	for _, log := range r.logs {
		if log.CycleID != cycleID {
			continue
		}
		view := models.PaymentLogView{PaymentLog: *log, MemberName: "Unknown"}
		if member, ok := r.members[log.MemberID]; ok {
			view.MemberName = member.DisplayName
			view.MemberUserID = member.UserID
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].ID < views[j].ID
	})
	return views, nil
}

func (r *memoryRepo) CreatePaymentLog(_ context.Context, log *models.PaymentLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	log.Status = models.PaymentUnpaid
	copied := *log
	r.logs[copied.ID] = &copied
	return nil
}

func (r *memoryRepo) cycleActive(cycleID string) bool {
	cycle, ok := r.cycles[cycleID]
	return ok && cycle.Status == models.CycleActive
}

func (r *memoryRepo) MarkLogSent(_ context.Context, logID string) (*models.PaymentLog, error) {
	log, ok := r.logs[logID]
	if !ok || !r.cycleActive(log.CycleID) {
		return nil, nil
	}
	if log.Status != models.PaymentUnpaid && log.Status != models.PaymentRejected {
		return nil, nil
	}
	now := time.Now().UTC()
	log.Status = models.PaymentPending
	log.MarkedAt = &now
	copied := *log
	return &copied, nil
}

func (r *memoryRepo) VerifyLog(_ context.Context, logID string) (*models.PaymentLog, error) {
	log, ok := r.logs[logID]
	if !ok || !r.cycleActive(log.CycleID) || log.Status != models.PaymentPending {
		return nil, nil
	}
	now := time.Now().UTC()
	log.Status = models.PaymentVerified
	log.VerifiedAt = &now
	if member, ok := r.members[log.MemberID]; ok {
		member.MissedPaymentCount = 0
	}
	copied := *log
	return &copied, nil
}

func (r *memoryRepo) RejectLog(_ context.Context, logID string) (*models.PaymentLog, error) {
	log, ok := r.logs[logID]
	if !ok || !r.cycleActive(log.CycleID) || log.Status != models.PaymentPending {
		return nil, nil
	}
	log.Status = models.PaymentRejected
	copied := *log
	return &copied, nil
}

func (r *memoryRepo) TouchReminder(_ context.Context, logID string, window time.Duration) (bool, error) {
	log, ok := r.logs[logID]
	if !ok || !r.cycleActive(log.CycleID) {
		return false, nil
	}
	if log.Status != models.PaymentUnpaid && log.Status != models.PaymentRejected {
		return false, nil
	}
	now := time.Now().UTC()
	if log.LastRemindedAt != nil && log.LastRemindedAt.After(now.Add(-window)) {
		return false, nil
	}
	log.ReminderCount++
	log.LastRemindedAt = &now
	return true, nil
}

// Activity and notification operations

func (r *memoryRepo) InsertActivity(_ context.Context, activity *models.ActivityLog) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	r.activities = append(r.activities, *activity)
	return nil
}

func (r *memoryRepo) ListActivity(_ context.Context, groupID string, limit int) ([]models.ActivityLog, error) {
	var activities []models.ActivityLog
	for i := len(r.activities) - 1; i >= 0 && len(activities) < limit; i-- {
		if r.activities[i].GroupID == groupID {
			activities = append(activities, r.activities[i])
		}
	}
	return activities, nil
}

func (r *memoryRepo) InsertNotification(_ context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	copied := *notification
	r.notifications[copied.ID] = &copied
	return nil
}

func (r *memoryRepo) ListNotifications(_ context.Context, userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	for _, n := range r.notifications {
		if n.UserID == userID && n.ClearedAt == nil {
			notifications = append(notifications, *n)
		}
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

func (r *memoryRepo) MarkNotificationRead(_ context.Context, notificationID, userID string) error {
	n, ok := r.notifications[notificationID]
	if !ok || n.UserID != userID {
		return models.ErrNotificationNotFound
	}
	n.Read = true
	return nil
}

func (r *memoryRepo) ClearNotifications(_ context.Context, userID string) error {
	now := time.Now().UTC()
	for _, n := range r.notifications {
		if n.UserID == userID && n.ClearedAt == nil {
			n.ClearedAt = &now
		}
	}
	return nil
}
