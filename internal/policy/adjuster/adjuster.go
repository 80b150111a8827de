// Package adjuster applies governance-approved policies on top of the ranking
// engine's output. Policy data is external governance input, so every failure
// here is degraded-mode: skip the bad policy, keep matching.
package adjuster

import (
	"context"
	"fmt"
	"log/slog"

	"organlink/internal/matching/engine"
	"organlink/internal/matching/score"
	"organlink/internal/policy/rules"
	"organlink/internal/policy/store"
	registry "organlink/internal/registry/models"
)

// Adjuster reweights and bonuses ranked matches per eligible policies.
type Adjuster struct {
	policies store.Store
	logger   *slog.Logger
}

// New constructs a policy adjuster.
func New(policies store.Store, logger *slog.Logger) *Adjuster {
	return &Adjuster{policies: policies, logger: logger}
}

// Result is the policy-adjusted ranking with attribution.
type Result struct {
	Matches []engine.Match
	// AppliedPolicies lists every policy title that influenced any result.
	AppliedPolicies []string
	// Weights is the tuple the final composite scores were computed under.
	Weights engine.Weights
	// WeightPolicy names the policy that overrode the weights, empty when the
	// defaults were kept.
	WeightPolicy string
}

// Apply fetches eligible policies (creation-descending) and applies them in
// two passes: the first policy whose weight override targets the recipient's
// organ replaces the weight tuple and recomputes every composite (later
// matching overrides are named but have no effect), then every bonus rule
// adds its amount to qualifying candidates, capped at 100. The list is
// re-sorted afterwards.
func (a *Adjuster) Apply(ctx context.Context, recipient *registry.Recipient, matches []engine.Match, defaults engine.Weights) (*Result, error) {
	result := &Result{Matches: matches, Weights: defaults}

	policies, err := a.policies.Eligible(ctx)
	if err != nil {
		// Degraded mode: governance being unreachable must not block matching.
		a.logger.WarnContext(ctx, "policy fetch failed, returning unadjusted matches", "error", err)
		return result, nil
	}

	var overrides []rules.WeightOverride
	var bonuses []rules.BonusRule
	for _, policy := range policies {
		override, policyBonuses, err := rules.FromPolicy(policy)
		if err != nil {
			a.logger.WarnContext(ctx, "skipping malformed policy",
				"policy_id", policy.ID.String(),
				"policy_title", policy.Title,
				"error", err,
			)
			continue
		}
		if override != nil {
			overrides = append(overrides, *override)
		}
		bonuses = append(bonuses, policyBonuses...)
	}

	a.applyWeightOverride(recipient, result, overrides)
	a.applyBonuses(recipient, result, bonuses)

	engine.SortByScore(result.Matches)
	return result, nil
}

// applyWeightOverride recomputes composites under the first matching override.
// First match wins; later matching overrides are attributed but inert.
func (a *Adjuster) applyWeightOverride(recipient *registry.Recipient, result *Result, overrides []rules.WeightOverride) {
	applied := false
	for _, override := range overrides {
		if !override.AppliesTo(recipient) {
			continue
		}
		if !applied {
			applied = true
			result.Weights = override.Weights
			result.WeightPolicy = override.PolicyTitle
			result.AppliedPolicies = appendUnique(result.AppliedPolicies, override.PolicyTitle)
			for i := range result.Matches {
				result.Matches[i].Score = engine.Composite(override.Weights, result.Matches[i].Breakdown)
				result.Matches[i].AppliedPolicies = appendUnique(result.Matches[i].AppliedPolicies, override.PolicyTitle)
				result.Matches[i].Rationale += fmt.Sprintf("; weights set by policy %q", override.PolicyTitle)
			}
			continue
		}
		// Named so operators can see the superseded policy, but inert.
		result.AppliedPolicies = appendUnique(result.AppliedPolicies, override.PolicyTitle)
		for i := range result.Matches {
			result.Matches[i].Rationale += fmt.Sprintf("; policy %q also targets %s (superseded)",
				override.PolicyTitle, override.Organ)
		}
	}
}

func (a *Adjuster) applyBonuses(recipient *registry.Recipient, result *Result, bonuses []rules.BonusRule) {
	for _, bonus := range bonuses {
		for i := range result.Matches {
			if !bonus.AppliesTo(recipient, result.Matches[i]) {
				continue
			}
			result.Matches[i].Score = score.Clamp(result.Matches[i].Score + bonus.Bonus())
			result.Matches[i].AppliedPolicies = appendUnique(result.Matches[i].AppliedPolicies, bonus.Name())
			result.Matches[i].Rationale += fmt.Sprintf("; policy %q: +%.0f", bonus.Name(), bonus.Bonus())
			result.AppliedPolicies = appendUnique(result.AppliedPolicies, bonus.Name())
		}
	}
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
