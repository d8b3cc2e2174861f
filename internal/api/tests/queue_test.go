package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/osaretin/rosca-server/internal/api/testutils"
	"github.com/osaretin/rosca-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupMembers(t *testing.T, testCtx *testutils.TestContext, groupID string) []models.Member {
	t.Helper()

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/groups/"+groupID,
		nil,
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var response models.GroupDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	return response.Members
}

func TestMoveMember(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	group := createGroup(t, testCtx, "Queue Group")
	memberToken, second := newMember(t, testCtx, group.Group.InviteCode, "Second Member")
	_, third := newMember(t, testCtx, group.Group.InviteCode, "Third Member")

	// Officers only.
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/groups/"+group.Group.ID+"/members/"+third.MemberID+"/move",
		models.MoveMemberRequest{Direction: "up"},
		testutils.AuthHeaders(memberToken),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/groups/"+group.Group.ID+"/members/"+third.MemberID+"/move",
		models.MoveMemberRequest{Direction: "up"},
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var moveResp models.MoveMemberResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &moveResp))
	assert.True(t, moveResp.Moved)

	positions := map[string]int{}
	for _, member := range groupMembers(t, testCtx, group.Group.ID) {
		positions[member.ID] = member.QueuePosition
	}
	assert.Equal(t, 2, positions[third.MemberID])
	assert.Equal(t, 3, positions[second.MemberID])

	// Moving the front member further up is a no-op, not an error.
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/groups/"+group.Group.ID+"/members/"+group.Members[0].ID+"/move",
		models.MoveMemberRequest{Direction: "up"},
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &moveResp))
	assert.False(t, moveResp.Moved)

	// Direction must be up or down.
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/groups/"+group.Group.ID+"/members/"+third.MemberID+"/move",
		map[string]string{"direction": "sideways"},
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestoreMember(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	group := createGroup(t, testCtx, "Restore Group")
	_, second := newMember(t, testCtx, group.Group.InviteCode, "Second Member")
	newMember(t, testCtx, group.Group.InviteCode, "Third Member")

	// Restoring an active member is a conflict.
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/groups/"+group.Group.ID+"/members/"+second.MemberID+"/restore",
		nil,
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Lock the member directly; the lockout path itself is covered by the
	// cycle tests.
	_, err := testCtx.DB.Exec(
		"UPDATE members SET status = 'locked', missed_payment_count = 3 WHERE id = $1",
		second.MemberID,
	)
	require.NoError(t, err)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/groups/"+group.Group.ID+"/members/"+second.MemberID+"/restore",
		nil,
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var restoreResp models.RestoreMemberResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &restoreResp))
	assert.Equal(t, second.MemberID, restoreResp.MemberID)

	// Back of the queue, clean record.
	assert.Equal(t, 4, restoreResp.QueuePosition)
	for _, member := range groupMembers(t, testCtx, group.Group.ID) {
		if member.ID == second.MemberID {
			assert.Equal(t, models.MemberActive, member.Status)
			assert.Equal(t, 0, member.MissedPaymentCount)
		}
	}
}
