// Package models defines governance policies that can reweight or bonus
// ranking outcomes. Policies are proposed and voted on by hospitals through an
// external governance mechanism; this core only consumes the approved ones.
package models

import (
	"time"

	id "organlink/pkg/domain"
)

// Status is a policy's lifecycle state in the governance mechanism.
type Status string

const (
	StatusVoting    Status = "voting"
	StatusActive    Status = "active"
	StatusWithdrawn Status = "withdrawn"
	StatusSuspended Status = "suspended"
)

// RuleKind enumerates the rule behaviors a policy may carry. Rules are typed
// data, not free-text scanning: the governance UI stores structured rule
// definitions alongside the human-readable content.
type RuleKind string

const (
	// RuleOrganWeightOverride replaces the default weight tuple for one organ.
	RuleOrganWeightOverride RuleKind = "organ_weight_override"
	// RuleSameLocationBonus grants a bonus to same-city candidates for one organ.
	RuleSameLocationBonus RuleKind = "same_location_bonus"
	// RulePediatricBonus grants a bonus when the recipient is a child.
	RulePediatricBonus RuleKind = "pediatric_bonus"
	// RuleUrgentBonus grants a bonus when the recipient is high or critical urgency.
	RuleUrgentBonus RuleKind = "urgent_bonus"
)

// WeightSpec is a policy-supplied weight tuple. Values are raw governance
// input and validated only when the rule is built.
type WeightSpec struct {
	Blood     float64 `json:"blood"`
	Urgency   float64 `json:"urgency"`
	Proximity float64 `json:"proximity"`
	Wait      float64 `json:"wait"`
	Medical   float64 `json:"medical"`
}

// RuleSpec is one structured rule definition on a policy.
type RuleSpec struct {
	Kind    RuleKind    `json:"kind"`
	Organ   string      `json:"organ,omitempty"`
	Bonus   float64     `json:"bonus,omitempty"`
	Weights *WeightSpec `json:"weights,omitempty"`
}

// Policy is a governance-approved rule set.
type Policy struct {
	ID                id.PolicyID
	Title             string
	Content           string
	Status            Status
	VotesFor          int
	VotesAgainst      int
	PausedForMatching bool
	Rules             []RuleSpec
	ProposedBy        id.HospitalID
	CreatedAt         time.Time
}

// Eligible reports whether the policy may influence ranking: active, or still
// voting with a majority of yes votes, and neither withdrawn, suspended, nor
// paused for matching.
func (p Policy) Eligible() bool {
	if p.PausedForMatching {
		return false
	}
	switch p.Status {
	case StatusActive:
		return true
	case StatusVoting:
		return p.VotesFor > p.VotesAgainst
	default:
		return false
	}
}
