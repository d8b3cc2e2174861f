package service

import (
	"context"
	"testing"

	"github.com/osaretin/rosca-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueFixture builds a three-member group and returns the active member
// ids in queue order: alice (president), bob, carol.
func queueFixture(t *testing.T, svc Service) (groupID string, memberIDs []string) {
	t.Helper()

	group := createTestGroup(t, svc, "alice", "Savings Circle")
	bob := joinTestGroup(t, svc, "bob", group.Group.InviteCode)
	carol := joinTestGroup(t, svc, "carol", group.Group.InviteCode)

	return group.Group.ID, []string{group.Members[0].ID, bob.MemberID, carol.MemberID}
}

func activeOrder(t *testing.T, repo *memoryRepo, groupID string) []string {
	t.Helper()

	active, err := repo.ListActiveMembers(context.Background(), groupID)
	require.NoError(t, err)

	ids := make([]string, len(active))
	for i, member := range active {
		require.Equal(t, i+1, member.QueuePosition, "queue positions must stay dense")
		ids[i] = member.ID
	}
	return ids
}

func TestMoveMemberSwapsWithNeighbor(t *testing.T) {
	svc, repo := newTestService(10)
	ctx := context.Background()

	groupID, ids := queueFixture(t, svc)

	resp, err := svc.MoveMember(ctx, "alice", groupID, ids[2], "up")
	require.NoError(t, err)
	assert.True(t, resp.Moved)
	assert.Equal(t, []string{ids[0], ids[2], ids[1]}, activeOrder(t, repo, groupID))

	resp, err = svc.MoveMember(ctx, "alice", groupID, ids[2], "down")
	require.NoError(t, err)
	assert.True(t, resp.Moved)
	assert.Equal(t, []string{ids[0], ids[1], ids[2]}, activeOrder(t, repo, groupID))
}

func TestMoveMemberBoundaryIsNoOp(t *testing.T) {
	svc, repo := newTestService(10)
	ctx := context.Background()

	groupID, ids := queueFixture(t, svc)

	resp, err := svc.MoveMember(ctx, "alice", groupID, ids[0], "up")
	require.NoError(t, err)
	assert.False(t, resp.Moved)

	resp, err = svc.MoveMember(ctx, "alice", groupID, ids[2], "down")
	require.NoError(t, err)
	assert.False(t, resp.Moved)

	assert.Equal(t, ids, activeOrder(t, repo, groupID))
}

func TestMoveMemberRequiresOfficer(t *testing.T) {
	svc, _ := newTestService(10)

	groupID, ids := queueFixture(t, svc)

	_, err := svc.MoveMember(context.Background(), "bob", groupID, ids[2], "up")
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestMoveLockedMemberRejected(t *testing.T) {
	svc, repo := newTestService(10)

	groupID, ids := queueFixture(t, svc)
	repo.members[ids[2]].Status = models.MemberLocked

	_, err := svc.MoveMember(context.Background(), "alice", groupID, ids[2], "up")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestMoveUnknownMember(t *testing.T) {
	svc, _ := newTestService(10)

	groupID, _ := queueFixture(t, svc)

	_, err := svc.MoveMember(context.Background(), "alice", groupID, "missing-member", "up")
	assert.ErrorIs(t, err, models.ErrMemberNotFound)
}

func TestRestoreMemberAppendsAtBack(t *testing.T) {
	svc, repo := newTestService(10)
	ctx := context.Background()

	groupID, ids := queueFixture(t, svc)

	locked := repo.members[ids[2]]
	locked.Status = models.MemberLocked
	locked.MissedPaymentCount = 3

	resp, err := svc.RestoreMember(ctx, "alice", groupID, ids[2])
	require.NoError(t, err)
	assert.Equal(t, 3, resp.QueuePosition)

	restored := repo.members[ids[2]]
	assert.Equal(t, models.MemberActive, restored.Status)
	assert.Equal(t, 0, restored.MissedPaymentCount)
	assert.Equal(t, ids, activeOrder(t, repo, groupID))
}

func TestRestoreFromMiddleLosesOldPosition(t *testing.T) {
	svc, repo := newTestService(10)
	ctx := context.Background()

	groupID, ids := queueFixture(t, svc)

	// bob held position 2; after restore he goes to the back, not back to 2.
	repo.members[ids[1]].Status = models.MemberLocked

	resp, err := svc.RestoreMember(ctx, "alice", groupID, ids[1])
	require.NoError(t, err)
	assert.Equal(t, 4, resp.QueuePosition)
	assert.Equal(t, 4, repo.members[ids[1]].QueuePosition)
}

func TestRestoreActiveMemberRejected(t *testing.T) {
	svc, _ := newTestService(10)

	groupID, ids := queueFixture(t, svc)

	_, err := svc.RestoreMember(context.Background(), "alice", groupID, ids[1])
	assert.ErrorIs(t, err, models.ErrMemberNotLocked)
}

func TestRestoreMemberRequiresOfficer(t *testing.T) {
	svc, repo := newTestService(10)

	groupID, ids := queueFixture(t, svc)
	repo.members[ids[2]].Status = models.MemberLocked

	_, err := svc.RestoreMember(context.Background(), "bob", groupID, ids[2])
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}
