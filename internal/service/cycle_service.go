package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/osaretin/rosca-server/internal/metrics"
	"github.com/osaretin/rosca-server/internal/models"
)

// reasonAlreadyReminded is the soft outcome for a reminder inside the
// rate-limit window.
const reasonAlreadyReminded = "already reminded recently"

// Cycle and payment operations

// StartCycle opens a new payment cycle and snapshots every active member
// into an unpaid payment log. A group with no active members still gets the
// cycle, with a warning instead of logs.
func (s *DefaultService) StartCycle(ctx context.Context, userID, groupID string, req models.StartCycleRequest) (*models.StartCycleResponse, error) {
	group, actor, err := s.requireOfficer(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	if group.ArchivedAt != nil {
		return nil, models.ErrGroupArchived
	}

	if !req.StartDate.Before(req.DueDate) {
		return nil, models.ErrInvalidDateRange
	}

	members, err := s.repo.ListActiveMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("error listing active members: %w", err)
	}

	cycle := &models.PaymentCycle{
		GroupID:   groupID,
		StartDate: req.StartDate,
		DueDate:   req.DueDate,
	}

	logsCreated, err := s.repo.CreateCycleWithLogs(ctx, cycle, members)
	if err != nil {
		return nil, err
	}

	metrics.CyclesStarted.Inc()
	s.relay.Record(ctx, groupID, actor, models.ActionCycleStarted, cycle.ID,
		fmt.Sprintf("due %s", cycle.DueDate.Format("2006-01-02")))

	for _, member := range members {
		if member.UserID == userID {
			continue
		}
		s.relay.Notify(ctx, &models.Notification{
			UserID:  member.UserID,
			GroupID: groupID,
			Type:    models.NotifyCycleStarted,
			Title:   "New cycle started",
			Message: fmt.Sprintf("%s: contribution of %.2f due by %s", group.Name, group.Contribution, cycle.DueDate.Format("2006-01-02")),
		}, "")
	}

	response := &models.StartCycleResponse{
		Status:      "success",
		Cycle:       cycle,
		LogsCreated: logsCreated,
	}

	if logsCreated == 0 {
		response.Warning = "no active members; cycle started without payment logs"
	}

	return response, nil
}

// ListCycles returns the group's cycle history, newest first.
func (s *DefaultService) ListCycles(ctx context.Context, userID, groupID string) (*models.CyclesResponse, error) {
	_, _, err := s.membership(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	cycles, err := s.repo.ListCycles(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("error listing cycles: %w", err)
	}

	return &models.CyclesResponse{
		Status: "success",
		Cycles: cycles,
	}, nil
}

// GetActiveCycle returns the active cycle and its enriched payment logs.
func (s *DefaultService) GetActiveCycle(ctx context.Context, userID, groupID string) (*models.CycleDetailResponse, error) {
	_, _, err := s.membership(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	cycle, err := s.repo.GetActiveCycle(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("error getting active cycle: %w", err)
	}

	if cycle == nil {
		return nil, models.ErrCycleNotFound
	}

	logs, err := s.repo.ListCycleLogs(ctx, cycle.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing payment logs: %w", err)
	}

	return &models.CycleDetailResponse{
		Status: "success",
		Cycle:  cycle,
		Logs:   logs,
	}, nil
}

// MarkPaymentSent moves the caller's own log from unpaid or rejected to
// pending and alerts the president.
func (s *DefaultService) MarkPaymentSent(ctx context.Context, userID, logID string) (*models.PaymentLogResponse, error) {
	log, err := s.repo.GetPaymentLog(ctx, logID)
	if err != nil {
		return nil, fmt.Errorf("error getting payment log: %w", err)
	}

	if log == nil {
		return nil, models.ErrLogNotFound
	}

	member, err := s.repo.GetMember(ctx, log.MemberID)
	if err != nil {
		return nil, fmt.Errorf("error getting member: %w", err)
	}

	if member == nil || member.UserID != userID {
		return nil, models.ErrPermissionDenied
	}

	updated, err := s.repo.MarkLogSent(ctx, logID)
	if err != nil {
		return nil, fmt.Errorf("error marking payment sent: %w", err)
	}

	if updated == nil {
		return nil, s.transitionFailure(ctx, log)
	}

	group, err := s.repo.GetGroup(ctx, log.GroupID)
	if err != nil {
		return nil, fmt.Errorf("error getting group: %w", err)
	}

	s.relay.Record(ctx, log.GroupID, member, models.ActionPaymentMarked, logID, member.DisplayName)
	if group != nil {
		s.relay.Notify(ctx, &models.Notification{
			UserID:  group.PresidentID,
			GroupID: group.ID,
			Type:    models.NotifyPaymentPending,
			Title:   "Payment awaiting verification",
			Message: fmt.Sprintf("%s marked their payment as sent", member.DisplayName),
		}, logID)
	}

	return &models.PaymentLogResponse{Status: "success", Log: updated}, nil
}

// VerifyPayment confirms a pending payment. Verification is terminal for
// the log and clears the member's missed-payment record.
func (s *DefaultService) VerifyPayment(ctx context.Context, userID, logID string) (*models.PaymentLogResponse, error) {
	log, actor, err := s.officerForLog(ctx, userID, logID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.VerifyLog(ctx, logID)
	if err != nil {
		return nil, fmt.Errorf("error verifying payment: %w", err)
	}

	if updated == nil {
		return nil, s.transitionFailure(ctx, log)
	}

	member, err := s.repo.GetMember(ctx, log.MemberID)
	if err != nil {
		return nil, fmt.Errorf("error getting member: %w", err)
	}

	memberName := "Unknown"
	if member != nil {
		memberName = member.DisplayName
	}

	s.relay.Record(ctx, log.GroupID, actor, models.ActionPaymentVerified, logID, memberName)
	if member != nil {
		s.relay.Notify(ctx, &models.Notification{
			UserID:  member.UserID,
			GroupID: log.GroupID,
			Type:    models.NotifyPaymentVerified,
			Title:   "Payment verified",
			Message: "Your payment for the current cycle was verified",
		}, logID)
	}

	return &models.PaymentLogResponse{Status: "success", Log: updated}, nil
}

// RejectPayment sends a pending payment back to rejected so the member can
// mark it sent again.
func (s *DefaultService) RejectPayment(ctx context.Context, userID, logID string) (*models.PaymentLogResponse, error) {
	log, actor, err := s.officerForLog(ctx, userID, logID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.RejectLog(ctx, logID)
	if err != nil {
		return nil, fmt.Errorf("error rejecting payment: %w", err)
	}

	if updated == nil {
		return nil, s.transitionFailure(ctx, log)
	}

	member, err := s.repo.GetMember(ctx, log.MemberID)
	if err != nil {
		return nil, fmt.Errorf("error getting member: %w", err)
	}

	memberName := "Unknown"
	if member != nil {
		memberName = member.DisplayName
	}

	s.relay.Record(ctx, log.GroupID, actor, models.ActionPaymentRejected, logID, memberName)
	if member != nil {
		s.relay.Notify(ctx, &models.Notification{
			UserID:  member.UserID,
			GroupID: log.GroupID,
			Type:    models.NotifyPaymentRejected,
			Title:   "Payment rejected",
			Message: "Your payment could not be verified, please mark it sent again once resolved",
		}, logID)
	}

	return &models.PaymentLogResponse{Status: "success", Log: updated}, nil
}

// RemindMember nudges a member whose log is unpaid or rejected. At most one
// reminder per log per window; inside the window the outcome is a soft
// "already reminded recently", not an error.
func (s *DefaultService) RemindMember(ctx context.Context, userID, logID string) (*models.RemindResponse, error) {
	log, actor, err := s.officerForLog(ctx, userID, logID)
	if err != nil {
		return nil, err
	}

	if log.Status != models.PaymentUnpaid && log.Status != models.PaymentRejected {
		return nil, models.ErrInvalidTransition
	}

	reminded, err := s.repo.TouchReminder(ctx, logID, s.reminderWindow)
	if err != nil {
		return nil, fmt.Errorf("error recording reminder: %w", err)
	}

	if !reminded {
		return &models.RemindResponse{Status: "success", Reminded: false, Reason: reasonAlreadyReminded}, nil
	}

	metrics.RemindersSent.Inc()

	member, err := s.repo.GetMember(ctx, log.MemberID)
	if err != nil {
		return nil, fmt.Errorf("error getting member: %w", err)
	}

	memberName := "Unknown"
	if member != nil {
		memberName = member.DisplayName
	}

	s.relay.Record(ctx, log.GroupID, actor, models.ActionReminderSent, logID, memberName)
	if member != nil {
		s.notifyReminder(ctx, log.GroupID, member.UserID, logID)
	}

	return &models.RemindResponse{Status: "success", Reminded: true}, nil
}

// RemindAll reminds every member with an unpaid or rejected log in the
// cycle, skipping logs still inside their reminder window, and reports both
// counts.
func (s *DefaultService) RemindAll(ctx context.Context, userID, cycleID string) (*models.RemindAllResponse, error) {
	cycle, actor, err := s.officerForCycle(ctx, userID, cycleID)
	if err != nil {
		return nil, err
	}

	if cycle.Status != models.CycleActive {
		return nil, models.ErrCycleNotActive
	}

	logs, err := s.repo.ListCycleLogs(ctx, cycle.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing payment logs: %w", err)
	}

	reminded, skipped := 0, 0
	for _, log := range logs {
		if log.Status != models.PaymentUnpaid && log.Status != models.PaymentRejected {
			continue
		}

		ok, err := s.repo.TouchReminder(ctx, log.ID, s.reminderWindow)
		if err != nil {
			return nil, fmt.Errorf("error recording reminder: %w", err)
		}

		if !ok {
			skipped++
			continue
		}

		reminded++
		metrics.RemindersSent.Inc()
		if log.MemberUserID != "" {
			s.notifyReminder(ctx, cycle.GroupID, log.MemberUserID, log.ID)
		}
	}

	if reminded > 0 {
		s.relay.Record(ctx, cycle.GroupID, actor, models.ActionReminderSent, cycle.ID,
			fmt.Sprintf("%d reminded, %d skipped", reminded, skipped))
	}

	return &models.RemindAllResponse{
		Status:   "success",
		Reminded: reminded,
		Skipped:  skipped,
	}, nil
}

// CloseCycle runs the missed-payment accounting and closes the cycle. The
// store applies the whole close as one guarded transaction, so a repeated
// close is a state-conflict error rather than a double count.
func (s *DefaultService) CloseCycle(ctx context.Context, userID, cycleID string) (*models.CloseCycleResponse, error) {
	cycle, actor, err := s.officerForCycle(ctx, userID, cycleID)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.CloseCycle(ctx, cycle.ID)
	if err != nil {
		return nil, err
	}

	metrics.CyclesClosed.Inc()
	metrics.MembersLocked.Add(float64(len(result.LockedMemberIDs)))

	summary := fmt.Sprintf("%d missed payment(s), %d member(s) locked",
		result.MissedPayments, len(result.LockedMemberIDs))

	s.relay.Record(ctx, cycle.GroupID, actor, models.ActionCycleClosed, cycle.ID, summary)

	for _, memberID := range result.LockedMemberIDs {
		member, err := s.repo.GetMember(ctx, memberID)
		if err != nil || member == nil {
			continue
		}
		s.relay.Record(ctx, cycle.GroupID, actor, models.ActionMemberLocked, memberID, member.DisplayName)
		s.relay.Notify(ctx, &models.Notification{
			UserID:  member.UserID,
			GroupID: cycle.GroupID,
			Type:    models.NotifyMemberLocked,
			Title:   "Membership locked",
			Message: "You missed three payments and your membership is locked until the president restores it",
		}, "")
	}

	if result.LockedMemberIDs == nil {
		result.LockedMemberIDs = []string{}
	}

	return &models.CloseCycleResponse{
		Status:          "success",
		MissedPayments:  result.MissedPayments,
		LockedMemberIDs: result.LockedMemberIDs,
		Message:         summary,
	}, nil
}

// SendScheduledReminders is the cron entry point: one bulk-remind pass over
// every active cycle past its due date.
func (s *DefaultService) SendScheduledReminders(ctx context.Context) error {
	cycles, err := s.repo.ListOverdueActiveCycles(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error listing overdue cycles: %w", err)
	}

	for _, cycle := range cycles {
		logs, err := s.repo.ListCycleLogs(ctx, cycle.ID)
		if err != nil {
			slog.Warn("scheduled reminders: listing logs failed", "cycle_id", cycle.ID, "error", err)
			continue
		}

		reminded, skipped := 0, 0
		for _, log := range logs {
			if log.Status != models.PaymentUnpaid && log.Status != models.PaymentRejected {
				continue
			}

			ok, err := s.repo.TouchReminder(ctx, log.ID, s.reminderWindow)
			if err != nil {
				slog.Warn("scheduled reminders: reminder failed", "log_id", log.ID, "error", err)
				continue
			}

			if !ok {
				skipped++
				continue
			}

			reminded++
			metrics.RemindersSent.Inc()
			if log.MemberUserID != "" {
				s.notifyReminder(ctx, cycle.GroupID, log.MemberUserID, log.ID)
			}
		}

		if reminded > 0 || skipped > 0 {
			slog.Info("scheduled reminders sent",
				"group_id", cycle.GroupID,
				"cycle_id", cycle.ID,
				"reminded", reminded,
				"skipped", skipped,
			)
		}
	}

	return nil
}

// Helper methods

// officerForLog loads a payment log and checks the caller is an officer of
// its group.
func (s *DefaultService) officerForLog(ctx context.Context, userID, logID string) (*models.PaymentLog, *models.Member, error) {
	log, err := s.repo.GetPaymentLog(ctx, logID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting payment log: %w", err)
	}

	if log == nil {
		return nil, nil, models.ErrLogNotFound
	}

	_, actor, err := s.requireOfficer(ctx, log.GroupID, userID)
	if err != nil {
		return nil, nil, err
	}

	return log, actor, nil
}

// officerForCycle loads a cycle and checks the caller is an officer of its
// group.
func (s *DefaultService) officerForCycle(ctx context.Context, userID, cycleID string) (*models.PaymentCycle, *models.Member, error) {
	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting cycle: %w", err)
	}

	if cycle == nil {
		return nil, nil, models.ErrCycleNotFound
	}

	_, actor, err := s.requireOfficer(ctx, cycle.GroupID, userID)
	if err != nil {
		return nil, nil, err
	}

	return cycle, actor, nil
}

// transitionFailure explains why a conditional log transition matched
// nothing: either the cycle closed underneath it or the log was not in a
// valid starting state.
func (s *DefaultService) transitionFailure(ctx context.Context, log *models.PaymentLog) error {
	cycle, err := s.repo.GetCycle(ctx, log.CycleID)
	if err != nil {
		return fmt.Errorf("error getting cycle: %w", err)
	}

	if cycle == nil || cycle.Status != models.CycleActive {
		return models.ErrCycleNotActive
	}

	return models.ErrInvalidTransition
}

func (s *DefaultService) notifyReminder(ctx context.Context, groupID, memberUserID, logID string) {
	s.relay.Notify(ctx, &models.Notification{
		UserID:  memberUserID,
		GroupID: groupID,
		Type:    models.NotifyReminder,
		Title:   "Payment reminder",
		Message: "Your contribution for the current cycle is still outstanding",
	}, logID)
}
