package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/osaretin/rosca-server/internal/models"
)

// missedPaymentThreshold is the missed count at which a member is locked,
// evaluated only when a cycle closes.
const missedPaymentThreshold = 3

// Cycle repository methods

// CreateCycleWithLogs inserts a cycle and one unpaid payment log per
// snapshotted member in a single transaction. The group row is locked so two
// sessions cannot both observe "no active cycle" and insert one each.
func (r *PostgresRepository) CreateCycleWithLogs(ctx context.Context, cycle *models.PaymentCycle, members []models.Member) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	var lockedID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM groups WHERE id = $1 FOR UPDATE`, cycle.GroupID).Scan(&lockedID)
	if err != nil {
		return 0, err
	}

	var activeExists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM payment_cycles WHERE group_id = $1 AND status = 'active')`,
		cycle.GroupID).Scan(&activeExists)
	if err != nil {
		return 0, err
	}

	if activeExists {
		err = models.ErrCycleAlreadyActive
		return 0, err
	}

	if cycle.ID == "" {
		cycle.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	cycle.Status = models.CycleActive
	cycle.CreatedAt = now
	cycle.UpdatedAt = now

	query := `
		INSERT INTO payment_cycles (id, group_id, start_date, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = tx.ExecContext(ctx, query,
		cycle.ID, cycle.GroupID, cycle.StartDate, cycle.DueDate,
		cycle.Status, cycle.CreatedAt, cycle.UpdatedAt)
	if err != nil {
		return 0, err
	}

	logQuery := `
		INSERT INTO payment_logs (id, cycle_id, group_id, member_id, status, reminder_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	`

	for _, member := range members {
		_, err = tx.ExecContext(ctx, logQuery,
			uuid.New().String(), cycle.ID, cycle.GroupID, member.ID,
			models.PaymentUnpaid, now, now)
		if err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}

	return len(members), nil
}

func (r *PostgresRepository) GetCycle(ctx context.Context, cycleID string) (*models.PaymentCycle, error) {
	query := `SELECT * FROM payment_cycles WHERE id = $1`

	var cycle models.PaymentCycle
	err := r.db.GetContext(ctx, &cycle, query, cycleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Cycle not found
		}
		return nil, err
	}

	return &cycle, nil
}

func (r *PostgresRepository) GetActiveCycle(ctx context.Context, groupID string) (*models.PaymentCycle, error) {
	query := `SELECT * FROM payment_cycles WHERE group_id = $1 AND status = 'active' LIMIT 1`

	var cycle models.PaymentCycle
	err := r.db.GetContext(ctx, &cycle, query, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No active cycle
		}
		return nil, err
	}

	return &cycle, nil
}

func (r *PostgresRepository) ListCycles(ctx context.Context, groupID string) ([]models.PaymentCycle, error) {
	query := `SELECT * FROM payment_cycles WHERE group_id = $1 ORDER BY start_date DESC`

	var cycles []models.PaymentCycle
	err := r.db.SelectContext(ctx, &cycles, query, groupID)
	if err != nil {
		return nil, err
	}

	return cycles, nil
}

// CloseCycle runs the close algorithm in one transaction: lock the cycle
// row and verify it is still active, increment the missed count for every
// member with an unpaid or rejected log (locking those who reach the
// threshold), then flip the cycle to closed. The precondition check makes
// a second close attempt a state-conflict error instead of a double count.
func (r *PostgresRepository) CloseCycle(ctx context.Context, cycleID string) (*CloseCycleResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	var status models.CycleStatus
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM payment_cycles WHERE id = $1 FOR UPDATE`, cycleID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = models.ErrCycleNotFound
		}
		return nil, err
	}

	if status != models.CycleActive {
		err = models.ErrCycleNotActive
		return nil, err
	}

	var memberIDs []string
	err = tx.SelectContext(ctx, &memberIDs,
		`SELECT member_id FROM payment_logs WHERE cycle_id = $1 AND status IN ('unpaid', 'rejected')`,
		cycleID)
	if err != nil {
		return nil, err
	}

	result := &CloseCycleResult{MissedPayments: len(memberIDs)}

	if len(memberIDs) > 0 {
		now := time.Now().UTC()

		rows, queryErr := tx.QueryContext(ctx,
			`UPDATE members
			SET missed_payment_count = missed_payment_count + 1,
			    status = CASE WHEN missed_payment_count + 1 >= $1 AND status = 'active' THEN 'locked' ELSE status END,
			    updated_at = $2
			WHERE id = ANY($3)
			RETURNING id, status`,
			missedPaymentThreshold, now, pq.Array(memberIDs))
		if queryErr != nil {
			err = queryErr
			return nil, err
		}

		for rows.Next() {
			var id string
			var memberStatus models.MemberStatus
			if err = rows.Scan(&id, &memberStatus); err != nil {
				rows.Close()
				return nil, err
			}
			if memberStatus == models.MemberLocked {
				result.LockedMemberIDs = append(result.LockedMemberIDs, id)
			}
		}
		rows.Close()
		if err = rows.Err(); err != nil {
			return nil, err
		}
	}

	// Member accounting lands before the closed flag: readers treat a
	// closed cycle as proof the accounting already happened.
	_, err = tx.ExecContext(ctx,
		`UPDATE payment_cycles SET status = 'closed', updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), cycleID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return result, nil
}

// ListOverdueActiveCycles returns active cycles whose due date has passed,
// used by the scheduled reminder pass.
func (r *PostgresRepository) ListOverdueActiveCycles(ctx context.Context, now time.Time) ([]models.PaymentCycle, error) {
	query := `SELECT * FROM payment_cycles WHERE status = 'active' AND due_date < $1`

	var cycles []models.PaymentCycle
	err := r.db.SelectContext(ctx, &cycles, query, now)
	if err != nil {
		return nil, err
	}

	return cycles, nil
}

// Payment log repository methods

func (r *PostgresRepository) GetPaymentLog(ctx context.Context, logID string) (*models.PaymentLog, error) {
	query := `SELECT * FROM payment_logs WHERE id = $1`

	var log models.PaymentLog
	err := r.db.GetContext(ctx, &log, query, logID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Log not found
		}
		return nil, err
	}

	return &log, nil
}

// ListCycleLogs returns the logs of a cycle enriched with member details.
// The join is a LEFT JOIN with placeholder fallbacks so the list still
// renders when a member row is missing.
func (r *PostgresRepository) ListCycleLogs(ctx context.Context, cycleID string) ([]models.PaymentLogView, error) {
	query := `
		SELECT l.*,
		       COALESCE(m.display_name, 'Unknown') AS member_name,
		       COALESCE(m.user_id, '') AS member_user_id
		FROM payment_logs l
		LEFT JOIN members m ON m.id = l.member_id
		WHERE l.cycle_id = $1
		ORDER BY COALESCE(m.queue_position, 0) ASC
	`

	var logs []models.PaymentLogView
	err := r.db.SelectContext(ctx, &logs, query, cycleID)
	if err != nil {
		return nil, err
	}

	return logs, nil
}

// CreatePaymentLog inserts a fresh unpaid log, used when a member joins a
// group that already has an active cycle.
func (r *PostgresRepository) CreatePaymentLog(ctx context.Context, log *models.PaymentLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	log.Status = models.PaymentUnpaid
	log.CreatedAt = now
	log.UpdatedAt = now

	query := `
		INSERT INTO payment_logs (id, cycle_id, group_id, member_id, status, reminder_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID, log.CycleID, log.GroupID, log.MemberID, log.Status, log.CreatedAt, log.UpdatedAt)

	return err
}

// MarkLogSent moves an unpaid or rejected log to pending. The transition is
// a single conditional update guarded on the owning cycle still being
// active, so stale or already-transitioned logs match no row and (nil, nil)
// is returned.
func (r *PostgresRepository) MarkLogSent(ctx context.Context, logID string) (*models.PaymentLog, error) {
	query := `
		UPDATE payment_logs
		SET status = 'pending', marked_at = $2, updated_at = $2
		WHERE id = $1 AND status IN ('unpaid', 'rejected')
		  AND EXISTS (SELECT 1 FROM payment_cycles c WHERE c.id = payment_logs.cycle_id AND c.status = 'active')
		RETURNING *
	`

	var log models.PaymentLog
	err := r.db.QueryRowxContext(ctx, query, logID, time.Now().UTC()).StructScan(&log)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No matching transition
		}
		return nil, err
	}

	return &log, nil
}

// VerifyLog moves a pending log to verified and resets the member's missed
// payment count in the same transaction. Verified is terminal.
func (r *PostgresRepository) VerifyLog(ctx context.Context, logID string) (*models.PaymentLog, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	now := time.Now().UTC()

	query := `
		UPDATE payment_logs
		SET status = 'verified', verified_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending'
		  AND EXISTS (SELECT 1 FROM payment_cycles c WHERE c.id = payment_logs.cycle_id AND c.status = 'active')
		RETURNING *
	`

	var log models.PaymentLog
	err = tx.QueryRowxContext(ctx, query, logID, now).StructScan(&log)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No matching transition
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE members SET missed_payment_count = 0, updated_at = $1 WHERE id = $2`,
		now, log.MemberID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &log, nil
}

// RejectLog moves a pending log back to rejected so the member can mark it
// sent again.
func (r *PostgresRepository) RejectLog(ctx context.Context, logID string) (*models.PaymentLog, error) {
	query := `
		UPDATE payment_logs
		SET status = 'rejected', updated_at = $2
		WHERE id = $1 AND status = 'pending'
		  AND EXISTS (SELECT 1 FROM payment_cycles c WHERE c.id = payment_logs.cycle_id AND c.status = 'active')
		RETURNING *
	`

	var log models.PaymentLog
	err := r.db.QueryRowxContext(ctx, query, logID, time.Now().UTC()).StructScan(&log)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No matching transition
		}
		return nil, err
	}

	return &log, nil
}

// TouchReminder increments the reminder count and stamps last_reminded_at,
// but only when the log is unpaid or rejected, its cycle is active, and the
// previous reminder is outside the window. Returns whether a reminder was
// recorded; a false result with no error is the soft "already reminded
// recently" outcome.
func (r *PostgresRepository) TouchReminder(ctx context.Context, logID string, window time.Duration) (bool, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-window)

	query := `
		UPDATE payment_logs
		SET reminder_count = reminder_count + 1, last_reminded_at = $3, updated_at = $3
		WHERE id = $1 AND status IN ('unpaid', 'rejected')
		  AND (last_reminded_at IS NULL OR last_reminded_at <= $2)
		  AND EXISTS (SELECT 1 FROM payment_cycles c WHERE c.id = payment_logs.cycle_id AND c.status = 'active')
	`

	result, err := r.db.ExecContext(ctx, query, logID, cutoff, now)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// Activity and notification repository methods

func (r *PostgresRepository) InsertActivity(ctx context.Context, activity *models.ActivityLog) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}

	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO activity_logs (id, group_id, actor_id, actor_name, action, target_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		activity.ID, activity.GroupID, activity.ActorID, activity.ActorName,
		activity.Action, activity.TargetID, activity.Metadata, activity.CreatedAt)

	return err
}

func (r *PostgresRepository) ListActivity(ctx context.Context, groupID string, limit int) ([]models.ActivityLog, error) {
	query := `
		SELECT * FROM activity_logs
		WHERE group_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var activities []models.ActivityLog
	err := r.db.SelectContext(ctx, &activities, query, groupID, limit)
	if err != nil {
		return nil, err
	}

	return activities, nil
}

func (r *PostgresRepository) InsertNotification(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO notifications (id, user_id, group_id, type, title, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		notification.ID, notification.UserID, notification.GroupID,
		notification.Type, notification.Title, notification.Message, notification.CreatedAt)

	return err
}

func (r *PostgresRepository) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	query := `
		SELECT * FROM notifications
		WHERE user_id = $1 AND cleared_at IS NULL
		ORDER BY created_at DESC
		LIMIT 100
	`

	var notifications []models.Notification
	err := r.db.SelectContext(ctx, &notifications, query, userID)
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, notificationID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return models.ErrNotificationNotFound
	}

	return nil
}

func (r *PostgresRepository) ClearNotifications(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET cleared_at = $1 WHERE user_id = $2 AND cleared_at IS NULL`,
		time.Now().UTC(), userID)

	return err
}
