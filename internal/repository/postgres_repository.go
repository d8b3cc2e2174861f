package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/osaretin/rosca-server/internal/models"
)

// queueSentinel parks a member outside the active ordering during a swap.
// Queue positions carry a uniqueness constraint, so a direct two-row swap
// would collide; the sentinel frees the source slot first.
const queueSentinel = -1

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// Group repository methods

// CreateGroup inserts the group and its creator's president membership at
// queue position 1 in a single transaction.
func (r *PostgresRepository) CreateGroup(ctx context.Context, group *models.Group, creator *models.Member) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	if group.ID == "" {
		group.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now

	query := `
		INSERT INTO groups (id, name, president_id, contribution, frequency, invite_code, archived_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = tx.ExecContext(ctx, query,
		group.ID, group.Name, group.PresidentID, group.Contribution,
		group.Frequency, group.InviteCode, group.ArchivedAt, group.CreatedAt, group.UpdatedAt)
	if err != nil {
		return err
	}

	if creator.ID == "" {
		creator.ID = uuid.New().String()
	}

	creator.GroupID = group.ID
	creator.Role = models.RolePresident
	creator.Status = models.MemberActive
	creator.QueuePosition = 1
	creator.MissedPaymentCount = 0
	creator.CreatedAt = now
	creator.UpdatedAt = now

	query = `
		INSERT INTO members (id, group_id, user_id, display_name, role, status, queue_position, missed_payment_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.ExecContext(ctx, query,
		creator.ID, creator.GroupID, creator.UserID, creator.DisplayName,
		creator.Role, creator.Status, creator.QueuePosition,
		creator.MissedPaymentCount, creator.CreatedAt, creator.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	query := `SELECT * FROM groups WHERE id = $1`

	var group models.Group
	err := r.db.GetContext(ctx, &group, query, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Group not found
		}
		return nil, err
	}

	return &group, nil
}

// GetGroupByInviteCode resolves a group by invite code, case-insensitively.
func (r *PostgresRepository) GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	query := `SELECT * FROM groups WHERE UPPER(invite_code) = UPPER($1)`

	var group models.Group
	err := r.db.GetContext(ctx, &group, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Group not found
		}
		return nil, err
	}

	return &group, nil
}

// GetUserGroups returns the non-archived groups the user belongs to.
func (r *PostgresRepository) GetUserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	query := `
		SELECT g.* FROM groups g
		JOIN members m ON g.id = m.group_id
		WHERE m.user_id = $1 AND g.archived_at IS NULL
		ORDER BY g.created_at ASC
	`

	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, query, userID)
	if err != nil {
		return nil, err
	}

	return groups, nil
}

func (r *PostgresRepository) UpdateGroup(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE groups
		SET name = $1, contribution = $2, frequency = $3, updated_at = $4
		WHERE id = $5
	`

	_, err := r.db.ExecContext(ctx, query,
		group.Name, group.Contribution, group.Frequency, group.UpdatedAt, group.ID)

	return err
}

// SetGroupArchived sets or clears the archive timestamp. Child rows persist.
func (r *PostgresRepository) SetGroupArchived(ctx context.Context, groupID string, archivedAt *time.Time) error {
	query := `UPDATE groups SET archived_at = $1, updated_at = $2 WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, archivedAt, time.Now().UTC(), groupID)
	return err
}

// DeleteGroup removes a group and all child rows in dependency order:
// payment logs, cycles, notifications, activity, members, then the group.
func (r *PostgresRepository) DeleteGroup(ctx context.Context, groupID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	statements := []string{
		`DELETE FROM payment_logs WHERE group_id = $1`,
		`DELETE FROM payment_cycles WHERE group_id = $1`,
		`DELETE FROM notifications WHERE group_id = $1`,
		`DELETE FROM activity_logs WHERE group_id = $1`,
		`DELETE FROM members WHERE group_id = $1`,
		`DELETE FROM groups WHERE id = $1`,
	}

	for _, stmt := range statements {
		_, err = tx.ExecContext(ctx, stmt, groupID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Member and queue repository methods

func (r *PostgresRepository) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	query := `SELECT * FROM members WHERE id = $1`

	var member models.Member
	err := r.db.GetContext(ctx, &member, query, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Member not found
		}
		return nil, err
	}

	return &member, nil
}

func (r *PostgresRepository) GetMemberByUser(ctx context.Context, groupID, userID string) (*models.Member, error) {
	query := `SELECT * FROM members WHERE group_id = $1 AND user_id = $2`

	var member models.Member
	err := r.db.GetContext(ctx, &member, query, groupID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Member not found
		}
		return nil, err
	}

	return &member, nil
}

// ListMembers returns all members of a group, active members first in
// queue order.
func (r *PostgresRepository) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	query := `
		SELECT * FROM members
		WHERE group_id = $1
		ORDER BY CASE WHEN status = 'active' THEN 0 ELSE 1 END, queue_position ASC
	`

	var members []models.Member
	err := r.db.SelectContext(ctx, &members, query, groupID)
	if err != nil {
		return nil, err
	}

	return members, nil
}

// ListActiveMembers returns the active members of a group in queue order.
func (r *PostgresRepository) ListActiveMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	query := `
		SELECT * FROM members
		WHERE group_id = $1 AND status = 'active'
		ORDER BY queue_position ASC
	`

	var members []models.Member
	err := r.db.SelectContext(ctx, &members, query, groupID)
	if err != nil {
		return nil, err
	}

	return members, nil
}

// AppendMember inserts a member at the back of the active queue. The group
// row is locked for the duration of the transaction so concurrent appends
// cannot compute the same position.
func (r *PostgresRepository) AppendMember(ctx context.Context, member *models.Member) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	var lockedID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM groups WHERE id = $1 FOR UPDATE`, member.GroupID).Scan(&lockedID)
	if err != nil {
		return err
	}

	var maxPosition int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(queue_position), 0) FROM members WHERE group_id = $1 AND status = 'active'`,
		member.GroupID).Scan(&maxPosition)
	if err != nil {
		return err
	}

	if member.ID == "" {
		member.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	member.Status = models.MemberActive
	member.QueuePosition = maxPosition + 1
	member.MissedPaymentCount = 0
	member.CreatedAt = now
	member.UpdatedAt = now

	query := `
		INSERT INTO members (id, group_id, user_id, display_name, role, status, queue_position, missed_payment_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.ExecContext(ctx, query,
		member.ID, member.GroupID, member.UserID, member.DisplayName,
		member.Role, member.Status, member.QueuePosition,
		member.MissedPaymentCount, member.CreatedAt, member.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// SwapQueuePositions exchanges the queue positions of two active members in
// one transaction. Both rows are locked and re-read first, then the swap
// runs through the sentinel so the active-position uniqueness constraint
// holds at every statement.
func (r *PostgresRepository) SwapQueuePositions(ctx context.Context, groupID, memberID, neighborID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	type row struct {
		ID            string `db:"id"`
		QueuePosition int    `db:"queue_position"`
	}

	var rows []row
	err = tx.SelectContext(ctx, &rows,
		`SELECT id, queue_position FROM members
		WHERE group_id = $1 AND id IN ($2, $3) AND status = 'active'
		ORDER BY id FOR UPDATE`,
		groupID, memberID, neighborID)
	if err != nil {
		return err
	}

	if len(rows) != 2 {
		err = models.ErrMemberNotFound
		return err
	}

	positions := map[string]int{}
	for _, m := range rows {
		positions[m.ID] = m.QueuePosition
	}

	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE members SET queue_position = $1, updated_at = $2 WHERE id = $3`,
		queueSentinel, now, memberID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE members SET queue_position = $1, updated_at = $2 WHERE id = $3`,
		positions[memberID], now, neighborID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE members SET queue_position = $1, updated_at = $2 WHERE id = $3`,
		positions[neighborID], now, memberID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// RestoreMember unlocks a member and appends them to the back of the active
// queue, resetting their missed payment count. Returns the new position.
func (r *PostgresRepository) RestoreMember(ctx context.Context, groupID, memberID string) (int, error) {
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
	err = tx.QueryRowContext(ctx, `SELECT id FROM groups WHERE id = $1 FOR UPDATE`, groupID).Scan(&lockedID)
	if err != nil {
		return 0, err
	}

	var maxPosition int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(queue_position), 0) FROM members WHERE group_id = $1 AND status = 'active'`,
		groupID).Scan(&maxPosition)
	if err != nil {
		return 0, err
	}

	newPosition := maxPosition + 1

	result, err := tx.ExecContext(ctx,
		`UPDATE members
		SET status = 'active', queue_position = $1, missed_payment_count = 0, updated_at = $2
		WHERE id = $3 AND group_id = $4 AND status = 'locked'`,
		newPosition, time.Now().UTC(), memberID, groupID)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if affected == 0 {
		err = models.ErrMemberNotLocked
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}

	return newPosition, nil
}
