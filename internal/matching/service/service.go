// Package service orchestrates a match search: resolve the recipient, gather
// candidates, rank them, and optionally run the policy adjustment pass.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"organlink/internal/matching/engine"
	"organlink/internal/matching/finder"
	"organlink/internal/policy/adjuster"
	registry "organlink/internal/registry/models"
	registrystore "organlink/internal/registry/store"
	id "organlink/pkg/domain"
	dErrors "organlink/pkg/domain-errors"
	"organlink/pkg/platform/sentinel"
	"organlink/pkg/requestcontext"
)

var tracer = otel.Tracer("organlink/internal/matching")

// Adjuster runs the policy pass over ranked matches.
type Adjuster interface {
	Apply(ctx context.Context, recipient *registry.Recipient, matches []engine.Match, defaults engine.Weights) (*adjuster.Result, error)
}

// Scope selects which donor pools a search may draw from.
type Scope string

const (
	// ScopeExternal searches other hospitals' donors (the default).
	ScopeExternal Scope = "external"
	// ScopeInternal searches only the recipient's own hospital, for
	// internal/auto-match detection.
	ScopeInternal Scope = "internal"
	// ScopeAll searches every hospital.
	ScopeAll Scope = "all"
)

// Query is one match search. Organ, BloodType, and Urgency override the
// stored recipient fields when set, letting callers explore what-if searches
// without editing the record.
type Query struct {
	RecipientID id.RecipientID
	Hospital    id.HospitalID
	Scope       Scope
	Organ       string
	BloodType   string
	Urgency     string
}

// Service runs match searches.
type Service struct {
	recipients registrystore.RecipientStore
	hospitals  registrystore.HospitalStore
	finder     *finder.Finder
	engine     *engine.Engine
	adjuster   Adjuster
	logger     *slog.Logger
}

func NewService(
	recipients registrystore.RecipientStore,
	hospitals registrystore.HospitalStore,
	candidates *finder.Finder,
	ranking *engine.Engine,
	adjuster Adjuster,
	logger *slog.Logger,
) *Service {
	return &Service{
		recipients: recipients,
		hospitals:  hospitals,
		finder:     candidates,
		engine:     ranking,
		adjuster:   adjuster,
		logger:     logger,
	}
}

// FindMatches ranks compatible donors for the recipient without policy input.
func (s *Service) FindMatches(ctx context.Context, query Query) ([]engine.Match, error) {
	ctx, span := tracer.Start(ctx, "matching.find_matches")
	defer span.End()

	recipient, _, matches, err := s.rank(ctx, query)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("matching.organ", string(recipient.Organ)),
		attribute.Int("matching.candidates", len(matches)),
	)
	return matches, nil
}

// EnhancedResult is a policy-adjusted ranking with attribution.
type EnhancedResult struct {
	Matches         []engine.Match
	AppliedPolicies []string
	Weights         engine.Weights
	WeightPolicy    string
}

// FindEnhancedMatches ranks donors and applies eligible governance policies.
// Policy failures degrade to the unadjusted ranking; they never fail the call.
func (s *Service) FindEnhancedMatches(ctx context.Context, query Query) (*EnhancedResult, error) {
	ctx, span := tracer.Start(ctx, "matching.find_enhanced_matches")
	defer span.End()

	recipient, _, matches, err := s.rank(ctx, query)
	if err != nil {
		return nil, err
	}

	adjusted, err := s.adjuster.Apply(ctx, recipient, matches, s.engine.Weights())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "policy adjustment")
	}
	span.SetAttributes(
		attribute.Int("matching.candidates", len(adjusted.Matches)),
		attribute.StringSlice("matching.applied_policies", adjusted.AppliedPolicies),
	)
	return &EnhancedResult{
		Matches:         adjusted.Matches,
		AppliedPolicies: adjusted.AppliedPolicies,
		Weights:         adjusted.Weights,
		WeightPolicy:    adjusted.WeightPolicy,
	}, nil
}

func (s *Service) rank(ctx context.Context, query Query) (*registry.Recipient, *registry.Hospital, []engine.Match, error) {
	if query.RecipientID.IsZero() {
		return nil, nil, nil, dErrors.New(dErrors.CodeValidation, "recipient id is required")
	}

	recipient, err := s.recipients.FindByID(ctx, query.RecipientID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, nil, dErrors.New(dErrors.CodeNotFound, "recipient not found")
	}
	if err != nil {
		return nil, nil, nil, dErrors.Wrap(err, dErrors.CodeDownstream, "load recipient")
	}
	if !query.Hospital.IsZero() && recipient.HospitalID != query.Hospital {
		return nil, nil, nil, dErrors.New(dErrors.CodeNotFound, "recipient not found")
	}

	search, err := applyOverrides(recipient, query)
	if err != nil {
		return nil, nil, nil, err
	}

	recipientHospital, err := s.hospitals.FindByID(ctx, recipient.HospitalID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, nil, dErrors.New(dErrors.CodeDataIntegrity, "recipient hospital no longer exists")
	}
	if err != nil {
		return nil, nil, nil, dErrors.Wrap(err, dErrors.CodeDownstream, "load recipient hospital")
	}

	candidates, err := s.finder.Candidates(ctx, search, scopeFor(query.Scope, recipient.HospitalID))
	if err != nil {
		return nil, nil, nil, dErrors.Wrap(err, dErrors.CodeDownstream, "find candidates")
	}

	matches, err := s.engine.Rank(ctx, search, recipientHospital, candidates, requestcontext.Now(ctx))
	if err != nil {
		return nil, nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "rank candidates")
	}

	s.logger.InfoContext(ctx, "match search completed",
		"recipient_id", query.RecipientID.String(),
		"organ", string(search.Organ),
		"scope", string(query.Scope),
		"candidates", len(candidates),
		"matches", len(matches),
	)
	return search, recipientHospital, matches, nil
}

// applyOverrides returns a copy of the recipient with any query overrides
// applied and validated.
func applyOverrides(recipient *registry.Recipient, query Query) (*registry.Recipient, error) {
	search := *recipient
	if query.Organ != "" {
		organ, err := registry.NormalizeOrgan(query.Organ)
		if err != nil {
			return nil, err
		}
		search.Organ = organ
	}
	if query.BloodType != "" {
		bloodType, err := registry.ParseBloodType(query.BloodType)
		if err != nil {
			return nil, err
		}
		search.BloodType = bloodType
	}
	if query.Urgency != "" {
		urgency, err := registry.ParseUrgency(query.Urgency)
		if err != nil {
			return nil, err
		}
		search.Urgency = urgency
	}
	return &search, nil
}

func scopeFor(scope Scope, hospital id.HospitalID) registrystore.CandidateScope {
	switch scope {
	case ScopeInternal:
		return registrystore.SameHospital(hospital)
	case ScopeAll:
		return registrystore.AnyHospital()
	default:
		return registrystore.ExcludeHospital(hospital)
	}
}
