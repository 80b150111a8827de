// Package engine combines sub-scores into one weighted composite score and
// produces a ranked candidate list with a human-readable rationale per entry.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"organlink/internal/matching/score"
	"organlink/internal/registry/models"
	dErrors "organlink/pkg/domain-errors"
)

// Weights is the tuple combining sub-scores into a composite. The source
// system carried two divergent weight sets across its two matching paths, so
// the tuple is explicit configuration with exactly one documented default
// rather than a silently chosen constant.
type Weights struct {
	Blood     float64 `json:"blood"`
	Urgency   float64 `json:"urgency"`
	Proximity float64 `json:"proximity"`
	Wait      float64 `json:"wait"`
	Medical   float64 `json:"medical"`
}

// DefaultWeights is the canonical tuple: blood compatibility dominant, then
// urgency, with proximity, wait time and medical risk completing the sum.
var DefaultWeights = Weights{
	Blood:     0.35,
	Urgency:   0.25,
	Proximity: 0.15,
	Wait:      0.10,
	Medical:   0.15,
}

const weightSumTolerance = 0.001

// Validate rejects tuples with negative components or a sum away from 1.
func (w Weights) Validate() error {
	if w.Blood < 0 || w.Urgency < 0 || w.Proximity < 0 || w.Wait < 0 || w.Medical < 0 {
		return dErrors.New(dErrors.CodeValidation, "weights must be non-negative")
	}
	sum := w.Blood + w.Urgency + w.Proximity + w.Wait + w.Medical
	if sum < 1-weightSumTolerance || sum > 1+weightSumTolerance {
		return dErrors.Newf(dErrors.CodeValidation, "weights must sum to 1, got %.3f", sum)
	}
	return nil
}

// Breakdown carries every sub-score so the policy adjuster can recompute the
// composite under an overridden weight tuple without re-scoring.
type Breakdown struct {
	Blood     float64 `json:"blood"`
	Urgency   float64 `json:"urgency"`
	Proximity float64 `json:"proximity"`
	Wait      float64 `json:"wait"`
	Medical   float64 `json:"medical"`
}

// Composite folds a breakdown under a weight tuple, clamped to [0, 100].
func Composite(w Weights, b Breakdown) float64 {
	total := w.Blood*b.Blood + w.Urgency*b.Urgency + w.Proximity*b.Proximity +
		w.Wait*b.Wait + w.Medical*b.Medical
	return score.Clamp(total)
}

// Candidate pairs a donor with its hospital for proximity scoring.
type Candidate struct {
	Donor    *models.Donor
	Hospital *models.Hospital
}

// Match is one ranked result.
type Match struct {
	Donor           *models.Donor
	DonorHospital   *models.Hospital
	Score           float64
	Breakdown       Breakdown
	ProximityTier   score.ProximityTier
	Rationale       string
	AppliedPolicies []string
}

// MinViableScore is the default floor; results at or below it are excluded.
const MinViableScore = 40.0

// Engine ranks candidates for a recipient.
type Engine struct {
	weights   Weights
	minViable float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights overrides the default weight tuple.
func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w }
}

// WithMinViableScore overrides the viability floor.
func WithMinViableScore(floor float64) Option {
	return func(e *Engine) { e.minViable = floor }
}

// New constructs a ranking engine with DefaultWeights unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{weights: DefaultWeights, minViable: MinViableScore}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Weights returns the engine's active weight tuple.
func (e *Engine) Weights() Weights { return e.weights }

// scoreConcurrency bounds the candidate-scoring goroutines per call.
const scoreConcurrency = 8

// Rank scores every candidate for the recipient, drops results at or below
// the viability floor, and returns the remainder sorted by score descending.
// Scoring is pure, so candidates are scored concurrently.
func (e *Engine) Rank(ctx context.Context, recipient *models.Recipient, recipientHospital *models.Hospital, candidates []Candidate, now time.Time) ([]Match, error) {
	scored := make([]Match, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scoreConcurrency)
	for i, candidate := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			scored[i] = e.scoreCandidate(recipient, recipientHospital, candidate, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	viable := scored[:0]
	for _, match := range scored {
		if match.Score > e.minViable {
			viable = append(viable, match)
		}
	}
	SortByScore(viable)
	return viable, nil
}

func (e *Engine) scoreCandidate(recipient *models.Recipient, recipientHospital *models.Hospital, candidate Candidate, now time.Time) Match {
	donor := candidate.Donor

	proximityScore, tier, proximityWhy := score.Proximity(recipientHospital, candidate.Hospital)
	breakdown := Breakdown{
		Blood:     score.Blood(donor.BloodType, recipient.BloodType),
		Urgency:   score.Urgency(recipient.Urgency),
		Proximity: proximityScore,
		Wait:      score.Wait(recipient.RegisteredAt, now),
		Medical:   score.Medical(recipient, donor, recipient.Organ),
	}

	var rationale []string
	if donor.BloodType == recipient.BloodType {
		rationale = append(rationale, fmt.Sprintf("identical blood type %s", donor.BloodType))
	} else {
		rationale = append(rationale, fmt.Sprintf("compatible blood type %s for %s",
			donor.BloodType, recipient.BloodType))
	}
	rationale = append(rationale,
		fmt.Sprintf("%s urgency", recipient.Urgency),
		proximityWhy,
		fmt.Sprintf("waiting %d days", int(now.Sub(recipient.RegisteredAt).Hours()/24)),
		fmt.Sprintf("medical risk score %.0f", breakdown.Medical),
	)

	return Match{
		Donor:         donor,
		DonorHospital: candidate.Hospital,
		Score:         Composite(e.weights, breakdown),
		Breakdown:     breakdown,
		ProximityTier: tier,
		Rationale:     strings.Join(rationale, "; "),
	}
}

// SortByScore orders matches by score descending, breaking ties by donor
// registration time so longer-registered donors surface first.
func SortByScore(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Donor.RegisteredAt.Before(matches[j].Donor.RegisteredAt)
	})
}
