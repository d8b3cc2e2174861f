package service

import (
	"context"
	"fmt"
	"time"

	"github.com/osaretin/rosca-server/internal/models"
)

// Group operations

// CreateGroup creates a group with the caller as its president at queue
// position 1.
func (s *DefaultService) CreateGroup(ctx context.Context, userID string, req models.CreateGroupRequest) (*models.GroupDetailResponse, error) {
	code, err := s.uniqueInviteCode(ctx)
	if err != nil {
		return nil, err
	}

	group := &models.Group{
		Name:         req.Name,
		PresidentID:  userID,
		Contribution: req.Contribution,
		Frequency:    req.Frequency,
		InviteCode:   code,
	}

	creator := &models.Member{
		UserID:      userID,
		DisplayName: req.DisplayName,
	}

	if err := s.repo.CreateGroup(ctx, group, creator); err != nil {
		return nil, fmt.Errorf("error creating group: %w", err)
	}

	s.relay.Record(ctx, group.ID, creator, models.ActionGroupCreated, group.ID, group.Name)

	return &models.GroupDetailResponse{
		Status:  "success",
		Group:   group,
		Members: []models.Member{*creator},
	}, nil
}

// uniqueInviteCode generates an invite code, retrying on the unlikely
// collision with an existing group.
func (s *DefaultService) uniqueInviteCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return "", err
		}

		existing, err := s.repo.GetGroupByInviteCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("error checking invite code: %w", err)
		}

		if existing == nil {
			return code, nil
		}
	}

	return "", fmt.Errorf("could not generate a unique invite code")
}

// GetGroup returns the group with its members, active members first in
// queue order.
func (s *DefaultService) GetGroup(ctx context.Context, userID, groupID string) (*models.GroupDetailResponse, error) {
	group, _, err := s.membership(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("error listing members: %w", err)
	}

	return &models.GroupDetailResponse{
		Status:  "success",
		Group:   group,
		Members: members,
	}, nil
}

// ListGroups returns the caller's non-archived groups.
func (s *DefaultService) ListGroups(ctx context.Context, userID string) (*models.GroupsResponse, error) {
	groups, err := s.repo.GetUserGroups(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing groups: %w", err)
	}

	return &models.GroupsResponse{
		Status: "success",
		Groups: groups,
	}, nil
}

// UpdateGroup edits the group settings. President only.
func (s *DefaultService) UpdateGroup(ctx context.Context, userID, groupID string, req models.UpdateGroupRequest) (*models.GroupResponse, error) {
	group, member, err := s.requireOfficer(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	group.Name = req.Name
	group.Contribution = req.Contribution
	group.Frequency = req.Frequency

	if err := s.repo.UpdateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("error updating group: %w", err)
	}

	s.relay.Record(ctx, group.ID, member, models.ActionGroupUpdated, group.ID, group.Name)

	return &models.GroupResponse{
		Status: "success",
		Group:  group,
	}, nil
}

// ArchiveGroup hides a group from active dashboards. Child rows persist.
func (s *DefaultService) ArchiveGroup(ctx context.Context, userID, groupID string) error {
	group, member, err := s.requireOfficer(ctx, groupID, userID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.repo.SetGroupArchived(ctx, groupID, &now); err != nil {
		return fmt.Errorf("error archiving group: %w", err)
	}

	s.relay.Record(ctx, groupID, member, models.ActionGroupArchived, groupID, group.Name)

	return nil
}

// UnarchiveGroup restores an archived group to active dashboards.
func (s *DefaultService) UnarchiveGroup(ctx context.Context, userID, groupID string) error {
	group, member, err := s.requireOfficer(ctx, groupID, userID)
	if err != nil {
		return err
	}

	if err := s.repo.SetGroupArchived(ctx, groupID, nil); err != nil {
		return fmt.Errorf("error unarchiving group: %w", err)
	}

	s.relay.Record(ctx, groupID, member, models.ActionGroupUnarchived, groupID, group.Name)

	return nil
}

// DeleteGroup removes the group and everything under it.
func (s *DefaultService) DeleteGroup(ctx context.Context, userID, groupID string) error {
	_, _, err := s.requireOfficer(ctx, groupID, userID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("error deleting group: %w", err)
	}

	return nil
}

// JoinGroup resolves an invite code and appends the caller to the back of
// the group's queue. Lookups are rate-limited per user since invite codes
// are not secret-strength.
func (s *DefaultService) JoinGroup(ctx context.Context, userID string, req models.JoinGroupRequest) (*models.JoinGroupResponse, error) {
	if !s.joinLimiter.Allow("join:" + userID) {
		return nil, models.ErrRateLimited
	}

	group, err := s.repo.GetGroupByInviteCode(ctx, req.InviteCode)
	if err != nil {
		return nil, fmt.Errorf("error resolving invite code: %w", err)
	}

	if group == nil {
		return nil, models.ErrInvalidInviteCode
	}

	if group.ArchivedAt != nil {
		return nil, models.ErrGroupArchived
	}

	existing, err := s.repo.GetMemberByUser(ctx, group.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("error checking membership: %w", err)
	}

	if existing != nil {
		return nil, models.ErrAlreadyMember
	}

	member := &models.Member{
		GroupID:     group.ID,
		UserID:      userID,
		DisplayName: req.DisplayName,
		Role:        models.RoleMember,
	}

	if err := s.repo.AppendMember(ctx, member); err != nil {
		return nil, fmt.Errorf("error adding member: %w", err)
	}

	// A member joining mid-cycle still owes this cycle's contribution.
	cycle, err := s.repo.GetActiveCycle(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("error checking active cycle: %w", err)
	}

	if cycle != nil {
		log := &models.PaymentLog{
			CycleID:  cycle.ID,
			GroupID:  group.ID,
			MemberID: member.ID,
		}
		if err := s.repo.CreatePaymentLog(ctx, log); err != nil {
			return nil, fmt.Errorf("error creating payment log: %w", err)
		}
	}

	s.relay.Record(ctx, group.ID, member, models.ActionMemberJoined, member.ID, member.DisplayName)
	s.relay.Notify(ctx, &models.Notification{
		UserID:  group.PresidentID,
		GroupID: group.ID,
		Type:    models.NotifyMemberJoined,
		Title:   "New member",
		Message: fmt.Sprintf("%s joined %s at position %d", member.DisplayName, group.Name, member.QueuePosition),
	}, "")

	return &models.JoinGroupResponse{
		Status:        "success",
		GroupID:       group.ID,
		MemberID:      member.ID,
		QueuePosition: member.QueuePosition,
	}, nil
}
