package service

import (
	"context"
	"fmt"

	"github.com/osaretin/rosca-server/internal/models"
)

// Queue operations

// MoveMember swaps a member with its neighbor in the active queue order.
// Moving the first member up or the last member down is a no-op, not an
// error; the response says whether anything moved.
func (s *DefaultService) MoveMember(ctx context.Context, userID, groupID, memberID, direction string) (*models.MoveMemberResponse, error) {
	_, actor, err := s.requireOfficer(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	target, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("error getting member: %w", err)
	}

	if target == nil || target.GroupID != groupID {
		return nil, models.ErrMemberNotFound
	}

	if target.Status != models.MemberActive {
		return nil, models.ErrInvalidTransition
	}

	active, err := s.repo.ListActiveMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("error listing active members: %w", err)
	}

	index := -1
	for i, m := range active {
		if m.ID == target.ID {
			index = i
			break
		}
	}

	if index == -1 {
		return nil, models.ErrMemberNotFound
	}

	neighborIndex := index - 1
	if direction == "down" {
		neighborIndex = index + 1
	}

	if neighborIndex < 0 || neighborIndex >= len(active) {
		return &models.MoveMemberResponse{Status: "success", Moved: false}, nil
	}

	neighbor := active[neighborIndex]

	if err := s.repo.SwapQueuePositions(ctx, groupID, target.ID, neighbor.ID); err != nil {
		return nil, fmt.Errorf("error swapping queue positions: %w", err)
	}

	s.relay.Record(ctx, groupID, actor, models.ActionQueueReordered, target.ID,
		fmt.Sprintf("%s moved %s", target.DisplayName, direction))

	return &models.MoveMemberResponse{Status: "success", Moved: true}, nil
}

// RestoreMember unlocks a member. Restored members always rejoin at the
// back of the queue with a clean missed-payment record, never at their old
// position.
func (s *DefaultService) RestoreMember(ctx context.Context, userID, groupID, memberID string) (*models.RestoreMemberResponse, error) {
	group, actor, err := s.requireOfficer(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	target, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("error getting member: %w", err)
	}

	if target == nil || target.GroupID != groupID {
		return nil, models.ErrMemberNotFound
	}

	position, err := s.repo.RestoreMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}

	s.relay.Record(ctx, groupID, actor, models.ActionMemberRestored, target.ID, target.DisplayName)
	s.relay.Notify(ctx, &models.Notification{
		UserID:  target.UserID,
		GroupID: groupID,
		Type:    models.NotifyMemberRestored,
		Title:   "Membership restored",
		Message: fmt.Sprintf("You are back in %s at position %d", group.Name, position),
	}, "")

	return &models.RestoreMemberResponse{
		Status:        "success",
		MemberID:      target.ID,
		QueuePosition: position,
	}, nil
}
