// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
//
// Identifiers in this system are short, human-readable strings derived by the
// identifier allocator ("T001", "RR014", "ACMEMA007"), not UUIDs, so each ID
// type wraps a string and validates its shape at trust boundaries.
package domain

import (
	dErrors "orgportal/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing UserID where TenantID is expected.
type (
	TenantID       string
	UserID         string
	RegistrationID string
	NotificationID string
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseTenantID(s string) (TenantID, error) {
	if err := checkID(s, "tenant ID"); err != nil {
		return "", err
	}
	return TenantID(s), nil
}

func ParseUserID(s string) (UserID, error) {
	if err := checkID(s, "user ID"); err != nil {
		return "", err
	}
	return UserID(s), nil
}

func ParseRegistrationID(s string) (RegistrationID, error) {
	if err := checkID(s, "registration ID"); err != nil {
		return "", err
	}
	return RegistrationID(s), nil
}

func ParseNotificationID(s string) (NotificationID, error) {
	if err := checkID(s, "notification ID"); err != nil {
		return "", err
	}
	return NotificationID(s), nil
}

// String methods - for logging and debugging.

func (id TenantID) String() string       { return string(id) }
func (id UserID) String() string         { return string(id) }
func (id RegistrationID) String() string { return string(id) }
func (id NotificationID) String() string { return string(id) }

// IsNil checks - used for service-layer validation.

func (id TenantID) IsNil() bool       { return id == "" }
func (id UserID) IsNil() bool         { return id == "" }
func (id RegistrationID) IsNil() bool { return id == "" }
func (id NotificationID) IsNil() bool { return id == "" }

const maxIDLength = 32

// checkID is the shared validation logic. Allocated IDs are uppercase
// alphanumeric; anything else is rejected before it reaches a store.
func checkID(s, label string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	if len(s) > maxIDLength {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
		}
	}
	return nil
}
