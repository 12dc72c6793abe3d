// Package models defines in-app notifications delivered to approvers.
package models

import (
	"time"

	id "orgportal/pkg/domain"
	dErrors "orgportal/pkg/domain-errors"
)

// Notification is an in-app message addressed to one user. The registration
// workflow creates one for the approver whenever a request is submitted.
type Notification struct {
	ID             id.NotificationID `json:"id"`
	UserID         id.UserID         `json:"user_id"`
	Message        string            `json:"message"`
	IsRead         bool              `json:"is_read"`
	RegistrationID id.RegistrationID `json:"registration_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// NewNotification constructs a notification addressed to the given user.
func NewNotification(notificationID id.NotificationID, userID id.UserID, message string, registrationID id.RegistrationID, now time.Time) (*Notification, error) {
	if notificationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification id is required")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification target user is required")
	}
	if message == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification message is required")
	}
	return &Notification{
		ID:             notificationID,
		UserID:         userID,
		Message:        message,
		RegistrationID: registrationID,
		CreatedAt:      now,
	}, nil
}
