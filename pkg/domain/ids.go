// Package domain provides typed identifiers shared across the module. Wrapping
// uuid.UUID in distinct types keeps a donor ID from ever being passed where a
// recipient ID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "organlink/pkg/domain-errors"
)

type (
	// HospitalID identifies a registered hospital.
	HospitalID uuid.UUID
	// RecipientID identifies a waiting recipient.
	RecipientID uuid.UUID
	// DonorID identifies a registered donor.
	DonorID uuid.UUID
	// RequestID identifies an allocation request.
	RequestID uuid.UUID
	// PolicyID identifies a governance policy.
	PolicyID uuid.UUID
	// NotificationID identifies a notification record.
	NotificationID uuid.UUID
)

func (id HospitalID) String() string     { return uuid.UUID(id).String() }
func (id RecipientID) String() string    { return uuid.UUID(id).String() }
func (id DonorID) String() string        { return uuid.UUID(id).String() }
func (id RequestID) String() string      { return uuid.UUID(id).String() }
func (id PolicyID) String() string       { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

func (id HospitalID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RecipientID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DonorID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }
func (id PolicyID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewHospitalID returns a fresh random hospital ID.
func NewHospitalID() HospitalID { return HospitalID(uuid.New()) }

// NewRecipientID returns a fresh random recipient ID.
func NewRecipientID() RecipientID { return RecipientID(uuid.New()) }

// NewDonorID returns a fresh random donor ID.
func NewDonorID() DonorID { return DonorID(uuid.New()) }

// NewRequestID returns a fresh random request ID.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewPolicyID returns a fresh random policy ID.
func NewPolicyID() PolicyID { return PolicyID(uuid.New()) }

// NewNotificationID returns a fresh random notification ID.
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s id is required", kind)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "invalid %s id", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s id must not be nil", kind)
	}
	return parsed, nil
}

// ParseHospitalID parses and validates a hospital ID string.
func ParseHospitalID(s string) (HospitalID, error) {
	parsed, err := parseUUID(s, "hospital")
	return HospitalID(parsed), err
}

// ParseRecipientID parses and validates a recipient ID string.
func ParseRecipientID(s string) (RecipientID, error) {
	parsed, err := parseUUID(s, "recipient")
	return RecipientID(parsed), err
}

// ParseDonorID parses and validates a donor ID string.
func ParseDonorID(s string) (DonorID, error) {
	parsed, err := parseUUID(s, "donor")
	return DonorID(parsed), err
}

// ParseRequestID parses and validates an allocation request ID string.
func ParseRequestID(s string) (RequestID, error) {
	parsed, err := parseUUID(s, "request")
	return RequestID(parsed), err
}

// ParsePolicyID parses and validates a policy ID string.
func ParsePolicyID(s string) (PolicyID, error) {
	parsed, err := parseUUID(s, "policy")
	return PolicyID(parsed), err
}

// ParseNotificationID parses and validates a notification ID string.
func ParseNotificationID(s string) (NotificationID, error) {
	parsed, err := parseUUID(s, "notification")
	return NotificationID(parsed), err
}
