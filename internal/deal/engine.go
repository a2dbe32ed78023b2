// Package deal provides the rules engine that decides whether a flight offer
// qualifies as a deal for a given user's preferences.
package deal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farewatch/farewatch/internal/flight"
	"github.com/farewatch/farewatch/internal/preferences"
	"github.com/farewatch/farewatch/pkg/iso8601"
)

// CurrencyConverter normalizes amounts across currencies before the price
// comparison. It is an optional collaborator; without one, offers priced in a
// different currency than the user's are reported as inconclusive rather
// than compared.
type CurrencyConverter interface {
	// Convert converts an amount from one ISO 4217 currency to another.
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// StopScope selects how the stop-preference rule aggregates connections on
// round-trip offers.
type StopScope string

const (
	// StopScopeSummed applies the stop limit to the summed stop count
	// across all itineraries. A round trip with one direct leg and one
	// one-stop leg counts as 1 stop. This is the default.
	StopScopeSummed StopScope = "summed"

	// StopScopePerItinerary applies the stop limit to each itinerary
	// independently. The same round trip fails a direct-only preference
	// because its second leg is not direct.
	StopScopePerItinerary StopScope = "per_itinerary"
)

// Config holds evaluator configuration.
type Config struct {
	// Converter is the optional currency-conversion collaborator.
	Converter CurrencyConverter

	// StopScope defaults to StopScopeSummed.
	StopScope StopScope
}

// Evaluator evaluates flight offers against user preferences. Evaluation is
// a pure function of its inputs: no I/O and no mutation of either argument.
type Evaluator struct {
	converter CurrencyConverter
	stopScope StopScope
}

// NewEvaluator creates an evaluator with the given configuration.
func NewEvaluator(cfg Config) *Evaluator {
	scope := cfg.StopScope
	if scope == "" {
		scope = StopScopeSummed
	}
	return &Evaluator{
		converter: cfg.Converter,
		stopScope: scope,
	}
}

// MatchResult is the verdict for one (offer, preferences) pair. An offer is
// a deal only when every rule passes: Matched is true exactly when Failed is
// empty. Reasons appear in fixed rule order (currency, price, stops,
// duration) so results are deterministic and diffable.
type MatchResult struct {
	Matched bool     `json:"matched"`
	Passed  []string `json:"passed,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

// Reasons returns the failure reasons. Empty for a match.
func (r MatchResult) Reasons() []string {
	return r.Failed
}

type ruleFunc func(offer flight.Offer, prefs preferences.UserPreferences) (bool, string)

// Evaluate runs all rules against the offer, in fixed order, and aggregates
// the outcome. It never returns an error: every comparison has a defined
// result, including "no constraint configured" (passes) and "currency
// mismatch with no converter" (explicit inconclusive failure).
func (e *Evaluator) Evaluate(offer flight.Offer, prefs preferences.UserPreferences) MatchResult {
	rules := []ruleFunc{
		e.checkCurrency,
		e.checkPrice,
		e.checkStops,
		e.checkDuration,
	}

	var result MatchResult
	for _, rule := range rules {
		passed, reason := rule(offer, prefs)
		if passed {
			result.Passed = append(result.Passed, reason)
		} else {
			result.Failed = append(result.Failed, reason)
		}
	}

	result.Matched = len(result.Failed) == 0
	return result
}

// checkCurrency passes when the offer is priced in the user's currency, or
// when a converter is available to normalize it.
func (e *Evaluator) checkCurrency(offer flight.Offer, prefs preferences.UserPreferences) (bool, string) {
	if offer.Price.Currency == prefs.Currency {
		return true, fmt.Sprintf("currency matches (%s)", prefs.Currency)
	}
	if e.converter != nil {
		return true, fmt.Sprintf("currency %s converted to %s for comparison", offer.Price.Currency, prefs.Currency)
	}
	return false, fmt.Sprintf("currency mismatch: offer is %s, expected %s", offer.Price.Currency, prefs.Currency)
}

// checkPrice compares the offer total against the user's maximum, on exact
// decimal values. An offer priced exactly at the maximum passes.
func (e *Evaluator) checkPrice(offer flight.Offer, prefs preferences.UserPreferences) (bool, string) {
	if prefs.MaxPrice == nil {
		return true, "no price limit set"
	}

	total := offer.Price.Total
	if offer.Price.Currency != prefs.Currency {
		if e.converter == nil {
			return false, fmt.Sprintf("currency mismatch, cannot compare price against max %s %s", prefs.MaxPrice, prefs.Currency)
		}
		converted, err := e.converter.Convert(total, offer.Price.Currency, prefs.Currency)
		if err != nil {
			return false, fmt.Sprintf("currency conversion %s to %s failed, cannot compare price", offer.Price.Currency, prefs.Currency)
		}
		total = converted
	}

	if total.LessThanOrEqual(*prefs.MaxPrice) {
		return true, fmt.Sprintf("price %s %s is within budget of %s", total, prefs.Currency, prefs.MaxPrice)
	}
	return false, fmt.Sprintf("price %s %s exceeds max %s", total, prefs.Currency, prefs.MaxPrice)
}

// checkStops applies the user's stop preference, either to the summed stop
// count or to each itinerary independently depending on the configured scope.
func (e *Evaluator) checkStops(offer flight.Offer, prefs preferences.UserPreferences) (bool, string) {
	var limit int
	switch prefs.StopPreference {
	case flight.StopsAny:
		return true, fmt.Sprintf("any stops allowed (%d stops)", offer.TotalStops())
	case flight.StopsDirectOnly:
		limit = 0
	case flight.StopsMaxOne:
		limit = 1
	default:
		// Preferences are validated at construction; an unknown value here
		// means the caller bypassed validation. Treat as unconstrained.
		return true, fmt.Sprintf("any stops allowed (%d stops)", offer.TotalStops())
	}

	if e.stopScope == StopScopePerItinerary {
		for i, itin := range offer.Itineraries {
			if itin.Stops() > limit {
				return false, fmt.Sprintf("itinerary %d has %d stops, max %d allowed per direction", i+1, itin.Stops(), limit)
			}
		}
		return true, fmt.Sprintf("every itinerary within %d-stop limit", limit)
	}

	total := offer.TotalStops()
	if total > limit {
		return false, fmt.Sprintf("offer has %d stops, max %d allowed", total, limit)
	}
	return true, fmt.Sprintf("offer has %d stops (max %d allowed)", total, limit)
}

// checkDuration compares the offer's true elapsed duration against the
// user's hour cap, without rounding.
func (e *Evaluator) checkDuration(offer flight.Offer, prefs preferences.UserPreferences) (bool, string) {
	if prefs.MaxDurationHours == nil {
		return true, "no duration limit set"
	}

	total := offer.TotalDuration()
	limit := time.Duration(*prefs.MaxDurationHours) * time.Hour
	if total <= limit {
		return true, fmt.Sprintf("duration %s is within limit of %dh", iso8601.FormatDuration(total), *prefs.MaxDurationHours)
	}
	return false, fmt.Sprintf("duration %s exceeds max %dh", iso8601.FormatDuration(total), *prefs.MaxDurationHours)
}
