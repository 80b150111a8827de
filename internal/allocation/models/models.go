// Package models defines the allocation request record. A request proposes
// giving one hospital's donor organ to another hospital's recipient; its
// status is mutated only by the allocation service's transitions.
package models

import (
	"time"

	id "organlink/pkg/domain"
)

// Status is an allocation request's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further transition may leave the status.
// Accepted is not terminal; it must remain reachable to completed.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// AllocationRequest is one proposed allocation. Requests are never physically
// deleted by normal flow; the recipient and donor they reference may be, so
// those are weak references re-checked at every transition.
type AllocationRequest struct {
	ID               id.RequestID
	OriginHospitalID id.HospitalID
	TargetHospitalID id.HospitalID
	RecipientID      id.RecipientID
	DonorID          id.DonorID
	Status           Status
	RequesterNotes   string
	ResponderNotes   string
	// Viewed is a target-hospital UI hint, set when the target first reads the
	// request. It carries no state-machine meaning.
	Viewed    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
