// Package notification defines the intents the allocation state machine emits
// and the contracts for delivering them. The core never renders or pushes
// notifications itself; it hands intents to a sink.
package notification

import (
	"context"
	"time"

	id "organlink/pkg/domain"
)

// Type classifies a notification for routing and display.
type Type string

const (
	// TypeMatchFound announces a ranked match result worth acting on.
	TypeMatchFound Type = "match_found"
	// TypeRequestReceived tells a target hospital another hospital wants its donor.
	TypeRequestReceived Type = "request_received"
	// TypeRequestAccepted tells the origin hospital its request was accepted.
	TypeRequestAccepted Type = "request_accepted"
	// TypeRequestRejected tells the origin hospital its request was rejected.
	TypeRequestRejected Type = "request_rejected"
	// TypeTransplantCompleted closes the loop on a finished transplant.
	TypeTransplantCompleted Type = "transplant_completed"
)

// Intent is what the state machine emits: everything a delivery channel needs,
// nothing about how delivery happens.
type Intent struct {
	Hospital  id.HospitalID
	Type      Type
	Title     string
	Message   string
	RelatedID id.RequestID
}

// Notification is a persisted intent with read tracking.
type Notification struct {
	ID        id.NotificationID
	Hospital  id.HospitalID
	Type      Type
	Title     string
	Message   string
	RelatedID id.RequestID
	Read      bool
	CreatedAt time.Time
}

// Store persists notifications for hospital inboxes.
type Store interface {
	Insert(ctx context.Context, n *Notification) error
	ListByHospital(ctx context.Context, hospital id.HospitalID) ([]*Notification, error)
	// MarkReadByRelated marks every unread notification for the hospital that
	// references the given request. Used when a hospital responds to or views
	// the request the notification announced.
	MarkReadByRelated(ctx context.Context, hospital id.HospitalID, related id.RequestID) error
}
