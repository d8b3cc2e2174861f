package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/osaretin/rosca-server/internal/models"
	"github.com/osaretin/rosca-server/internal/push"
	"github.com/osaretin/rosca-server/internal/ratelimit"
	"github.com/osaretin/rosca-server/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestService wires a service over the in-memory repository. joinLimit
// bounds invite-code lookups per user; the reminder window is one hour.
func newTestService(joinLimit int) (Service, *memoryRepo) {
	repo := newMemoryRepo()
	rel := relay.New(repo, push.NewHub())
	svc := NewDefaultService(repo, rel, ratelimit.New(joinLimit, time.Minute), time.Hour)
	return svc, repo
}

func createTestGroup(t *testing.T, svc Service, userID, name string) *models.GroupDetailResponse {
	t.Helper()

	resp, err := svc.CreateGroup(context.Background(), userID, models.CreateGroupRequest{
		Name:         name,
		DisplayName:  userID,
		Contribution: 50,
		Frequency:    models.FrequencyMonthly,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Group)

	return resp
}

func joinTestGroup(t *testing.T, svc Service, userID, inviteCode string) *models.JoinGroupResponse {
	t.Helper()

	resp, err := svc.JoinGroup(context.Background(), userID, models.JoinGroupRequest{
		InviteCode:  inviteCode,
		DisplayName: userID,
	})
	require.NoError(t, err)

	return resp
}

func TestCreateGroupSeedsPresident(t *testing.T) {
	svc, _ := newTestService(10)

	resp := createTestGroup(t, svc, "alice", "Savings Circle")

	assert.Equal(t, "alice", resp.Group.PresidentID)
	assert.Len(t, resp.Group.InviteCode, 10)
	require.Len(t, resp.Members, 1)

	president := resp.Members[0]
	assert.Equal(t, models.RolePresident, president.Role)
	assert.Equal(t, models.MemberActive, president.Status)
	assert.Equal(t, 1, president.QueuePosition)
	assert.Equal(t, 0, president.MissedPaymentCount)
}

func TestJoinGroupAppendsToQueueBack(t *testing.T) {
	svc, repo := newTestService(10)
	ctx := context.Background()

	group := createTestGroup(t, svc, "alice", "Savings Circle")

	bob := joinTestGroup(t, svc, "bob", group.Group.InviteCode)
	carol := joinTestGroup(t, svc, "carol", group.Group.InviteCode)

	assert.Equal(t, 2, bob.QueuePosition)
	assert.Equal(t, 3, carol.QueuePosition)

	active, err := repo.ListActiveMembers(ctx, group.Group.ID)
	require.NoError(t, err)
	require.Len(t, active, 3)
	for i, member := range active {
		assert.Equal(t, i+1, member.QueuePosition)
	}
}

func TestJoinGroupCodeIsCaseInsensitive(t *testing.T) {
	svc, _ := newTestService(10)

	group := createTestGroup(t, svc, "alice", "Savings Circle")

	resp := joinTestGroup(t, svc, "bob", strings.ToLower(group.Group.InviteCode))
	assert.Equal(t, group.Group.ID, resp.GroupID)
}

func TestJoinGroupUnknownCode(t *testing.T) {
	svc, _ := newTestService(10)

	_, err := svc.JoinGroup(context.Background(), "bob", models.JoinGroupRequest{
		InviteCode:  "NOSUCHCODE",
		DisplayName: "bob",
	})
	assert.ErrorIs(t, err, models.ErrInvalidInviteCode)
}

func TestJoinGroupTwice(t *testing.T) {
	svc, _ := newTestService(10)

	group := createTestGroup(t, svc, "alice", "Savings Circle")
	joinTestGroup(t, svc, "bob", group.Group.InviteCode)

	_, err := svc.JoinGroup(context.Background(), "bob", models.JoinGroupRequest{
		InviteCode:  group.Group.InviteCode,
		DisplayName: "bob",
	})
	assert.ErrorIs(t, err, models.ErrAlreadyMember)
}

func TestJoinGroupRateLimited(t *testing.T) {
	svc, _ := newTestService(2)
	ctx := context.Background()

	req := models.JoinGroupRequest{InviteCode: "NOSUCHCODE", DisplayName: "bob"}

	// Failed lookups still count against the limit.
	_, err := svc.JoinGroup(ctx, "bob", req)
	assert.ErrorIs(t, err, models.ErrInvalidInviteCode)
	_, err = svc.JoinGroup(ctx, "bob", req)
	assert.ErrorIs(t, err, models.ErrInvalidInviteCode)

	_, err = svc.JoinGroup(ctx, "bob", req)
	assert.ErrorIs(t, err, models.ErrRateLimited)

	// Another user is unaffected.
	_, err = svc.JoinGroup(ctx, "carol", req)
	assert.ErrorIs(t, err, models.ErrInvalidInviteCode)
}

func TestJoinArchivedGroup(t *testing.T) {
	svc, _ := newTestService(10)
	ctx := context.Background()

	group := createTestGroup(t, svc, "alice", "Savings Circle")
	require.NoError(t, svc.ArchiveGroup(ctx, "alice", group.Group.ID))

	_, err := svc.JoinGroup(ctx, "bob", models.JoinGroupRequest{
		InviteCode:  group.Group.InviteCode,
		DisplayName: "bob",
	})
	assert.ErrorIs(t, err, models.ErrGroupArchived)
}

func TestArchiveHidesGroupFromList(t *testing.T) {
	svc, _ := newTestService(10)
	ctx := context.Background()

	group := createTestGroup(t, svc, "alice", "Savings Circle")

	require.NoError(t, svc.ArchiveGroup(ctx, "alice", group.Group.ID))

	list, err := svc.ListGroups(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list.Groups)

	require.NoError(t, svc.UnarchiveGroup(ctx, "alice", group.Group.ID))

	list, err = svc.ListGroups(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list.Groups, 1)
}

func TestUpdateGroupRequiresOfficer(t *testing.T) {
	svc, _ := newTestService(10)
	ctx := context.Background()

	group := createTestGroup(t, svc, "alice", "Savings Circle")
	joinTestGroup(t, svc, "bob", group.Group.InviteCode)

	req := models.UpdateGroupRequest{
		Name:         "Renamed",
		Contribution: 75,
		Frequency:    models.FrequencyWeekly,
	}

	_, err := svc.UpdateGroup(ctx, "bob", group.Group.ID, req)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	resp, err := svc.UpdateGroup(ctx, "alice", group.Group.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", resp.Group.Name)
	assert.Equal(t, models.FrequencyWeekly, resp.Group.Frequency)
}

func TestGetGroupRequiresMembership(t *testing.T) {
	svc, _ := newTestService(10)
	ctx := context.Background()

	group := createTestGroup(t, svc, "alice", "Savings Circle")

	_, err := svc.GetGroup(ctx, "mallory", group.Group.ID)
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	_, err = svc.GetGroup(ctx, "alice", "missing-group")
	assert.ErrorIs(t, err, models.ErrGroupNotFound)
}

func TestVicePresidentHoldsOfficerRights(t *testing.T) {
	svc, repo := newTestService(10)
	ctx := context.Background()

	group := createTestGroup(t, svc, "alice", "Savings Circle")
	bob := joinTestGroup(t, svc, "bob", group.Group.InviteCode)

	repo.members[bob.MemberID].Role = models.RoleVicePresident

	_, err := svc.UpdateGroup(ctx, "bob", group.Group.ID, models.UpdateGroupRequest{
		Name:         "Renamed",
		Contribution: 60,
		Frequency:    models.FrequencyMonthly,
	})
	assert.NoError(t, err)
}
