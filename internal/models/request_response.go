package models

import "time"

// Request models
type CreateGroupRequest struct {
	Name         string    `json:"name" binding:"required"`
	DisplayName  string    `json:"displayName" binding:"required"`
	Contribution float64   `json:"contribution" binding:"required,gt=0"`
	Frequency    Frequency `json:"frequency" binding:"required,oneof=weekly monthly"`
}

type UpdateGroupRequest struct {
	Name         string    `json:"name" binding:"required"`
	Contribution float64   `json:"contribution" binding:"required,gt=0"`
	Frequency    Frequency `json:"frequency" binding:"required,oneof=weekly monthly"`
}

type JoinGroupRequest struct {
	InviteCode  string `json:"inviteCode" binding:"required,alphanum,min=6,max=20"`
	DisplayName string `json:"displayName" binding:"required"`
}

type StartCycleRequest struct {
	StartDate time.Time `json:"startDate" binding:"required"`
	DueDate   time.Time `json:"dueDate" binding:"required"`
}

type MoveMemberRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

// Response models
type GroupResponse struct {
	Status string `json:"status"`
	Group  *Group `json:"group,omitempty"`
}

type GroupDetailResponse struct {
	Status  string   `json:"status"`
	Group   *Group   `json:"group"`
	Members []Member `json:"members"`
}

type GroupsResponse struct {
	Status string  `json:"status"`
	Groups []Group `json:"groups"`
}

type JoinGroupResponse struct {
	Status        string `json:"status"`
	GroupID       string `json:"groupId"`
	MemberID      string `json:"memberId"`
	QueuePosition int    `json:"queuePosition"`
}

type MoveMemberResponse struct {
	Status string `json:"status"`
	Moved  bool   `json:"moved"`
}

type RestoreMemberResponse struct {
	Status        string `json:"status"`
	MemberID      string `json:"memberId"`
	QueuePosition int    `json:"queuePosition"`
}

type StartCycleResponse struct {
	Status      string        `json:"status"`
	Cycle       *PaymentCycle `json:"cycle"`
	LogsCreated int           `json:"logsCreated"`
	Warning     string        `json:"warning,omitempty"`
}

type CyclesResponse struct {
	Status string         `json:"status"`
	Cycles []PaymentCycle `json:"cycles"`
}

type CycleDetailResponse struct {
	Status string           `json:"status"`
	Cycle  *PaymentCycle    `json:"cycle"`
	Logs   []PaymentLogView `json:"logs"`
}

type PaymentLogResponse struct {
	Status string      `json:"status"`
	Log    *PaymentLog `json:"log"`
}

type RemindResponse struct {
	Status   string `json:"status"`
	Reminded bool   `json:"reminded"`
	Reason   string `json:"reason,omitempty"`
}

type RemindAllResponse struct {
	Status   string `json:"status"`
	Reminded int    `json:"reminded"`
	Skipped  int    `json:"skipped"`
}

type CloseCycleResponse struct {
	Status          string   `json:"status"`
	MissedPayments  int      `json:"missedPayments"`
	LockedMemberIDs []string `json:"lockedMemberIds"`
	Message         string   `json:"message"`
}

type ActivityResponse struct {
	Status     string        `json:"status"`
	Activities []ActivityLog `json:"activities"`
}

type NotificationsResponse struct {
	Status        string         `json:"status"`
	Notifications []Notification `json:"notifications"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
