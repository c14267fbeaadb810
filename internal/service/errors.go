package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"interviewer/roomhub/internal/permission"
)

var (
	ErrInviteNotFound           = errors.New("invite not found")
	ErrRoomInviteNotFound       = errors.New("room invite not found")
	ErrUserNotFound             = errors.New("user not found")
	ErrRoomNotFound             = errors.New("room not found")
	ErrParticipantNotFound      = errors.New("participant not found")
	ErrParticipantAlreadyExists = errors.New("participant already exists")
	ErrInviteAlreadyUsed        = errors.New("invite usage exhausted")
	ErrConcurrentRedemption     = errors.New("invite is being redeemed concurrently, try again")
	ErrConcurrentInviteChange   = errors.New("room invites are being changed concurrently, try again")
	ErrUnknownRole              = errors.New("unknown user role")
	ErrIntegrityViolation       = errors.New("data integrity violation")
	ErrAccessDenied             = errors.New("access denied")

	ErrUnknownPermission      = permission.ErrUnknownPermission
	ErrUnknownParticipantType = permission.ErrUnknownParticipantType
)

// IntegrityError marks corrupted data, such as a room invite whose room
// reference is null. It is never user-recoverable.
type IntegrityError struct {
	Entity string
	ID     uuid.UUID
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation: %s %s: %s", e.Entity, e.ID, e.Detail)
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrityViolation }

// Decision reasons.
const (
	ReasonAdmin                = "admin"
	ReasonGranted              = "granted"
	ReasonNotParticipant       = "not a participant"
	ReasonPermissionNotGranted = "permission not granted"
	ReasonNotAdmin             = "not an admin"
)

// AccessDeniedError carries the reason tag of a failed permission check.
type AccessDeniedError struct {
	Permission string
	Reason     string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: %s: %s", e.Permission, e.Reason)
}

func (e *AccessDeniedError) Is(target error) bool { return target == ErrAccessDenied }
