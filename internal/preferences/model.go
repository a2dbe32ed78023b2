// Package preferences provides the user monitoring configuration model and
// its persistence interface.
package preferences

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/farewatch/farewatch/internal/flight"
)

// Validation errors.
var (
	ErrMissingChatID          = errors.New("chat id is required")
	ErrNoRoutes               = errors.New("at least one route is required")
	ErrSameAirport            = errors.New("origin and destination must be different")
	ErrMalformedAirportCode   = errors.New("airport code must be three letters")
	ErrDateOrder              = errors.New("earliest date must not be after latest date")
	ErrNegativeFlexibleDays   = errors.New("flexible days must not be negative")
	ErrReturnWithoutDeparture = errors.New("return dates require departure dates")
	ErrPassengerCount         = errors.New("passengers must be between 1 and 9")
	ErrMalformedCurrency      = errors.New("currency must be a three-letter code")
)

// Route is a monitored origin/destination airport pair.
type Route struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// NewRoute constructs a route, upper-casing the codes and rejecting
// identical endpoints.
func NewRoute(origin, destination string) (Route, error) {
	r := Route{
		Origin:      strings.ToUpper(strings.TrimSpace(origin)),
		Destination: strings.ToUpper(strings.TrimSpace(destination)),
	}
	return r, r.Validate()
}

// Validate checks the route invariants.
func (r Route) Validate() error {
	if !isAirportCode(r.Origin) || !isAirportCode(r.Destination) {
		return fmt.Errorf("%w: %q -> %q", ErrMalformedAirportCode, r.Origin, r.Destination)
	}
	if r.Origin == r.Destination {
		return fmt.Errorf("%w: %q", ErrSameAirport, r.Origin)
	}
	return nil
}

// String renders the route as "JFK->LAX".
func (r Route) String() string {
	return r.Origin + "->" + r.Destination
}

func isAirportCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// DateRange is a flexible travel-date window. Equal endpoints mean a single
// fixed date. FlexibleDays is extra +/- tolerance applied by the search
// layer, not by this model.
type DateRange struct {
	Earliest     flight.Date `json:"earliest"`
	Latest       flight.Date `json:"latest"`
	FlexibleDays int         `json:"flexible_days,omitempty"`
}

// NewDateRange constructs a date range, rejecting inverted windows.
func NewDateRange(earliest, latest flight.Date, flexibleDays int) (DateRange, error) {
	r := DateRange{Earliest: earliest, Latest: latest, FlexibleDays: flexibleDays}
	return r, r.Validate()
}

// Validate checks the window invariants.
func (r DateRange) Validate() error {
	if r.Earliest.After(r.Latest) {
		return fmt.Errorf("%w: %s > %s", ErrDateOrder, r.Earliest, r.Latest)
	}
	if r.FlexibleDays < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeFlexibleDays, r.FlexibleDays)
	}
	return nil
}

// IsSingleDay reports whether the window collapses to one fixed date.
func (r DateRange) IsSingleDay() bool {
	return r.Earliest == r.Latest
}

// UserPreferences is one user's full monitoring configuration, keyed by the
// externally assigned Telegram chat id.
type UserPreferences struct {
	ChatID int64 `json:"chat_id"`

	// Routes the user wants monitored. At least one is required.
	Routes []Route `json:"routes"`

	// DepartureDates is the acceptable outbound window.
	DepartureDates *DateRange `json:"departure_dates,omitempty"`

	// ReturnDates is the acceptable return window. Requires DepartureDates.
	ReturnDates *DateRange `json:"return_dates,omitempty"`

	// MaxPrice is the deal threshold. Absent means no price constraint.
	MaxPrice *decimal.Decimal `json:"max_price,omitempty"`

	// Currency the user thinks in. Defaults to USD.
	Currency string `json:"currency"`

	// Passengers is the traveller count, 1-9 inclusive.
	Passengers int `json:"passengers"`

	CabinClass     flight.CabinClass     `json:"cabin_class"`
	StopPreference flight.StopPreference `json:"stop_preference"`

	// MaxDurationHours caps total trip duration. Absent means no limit.
	MaxDurationHours *int `json:"max_duration_hours,omitempty"`
}

// ApplyDefaults fills the documented defaults for unset fields. It does not
// touch fields the user has set.
func (p *UserPreferences) ApplyDefaults() {
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if p.Passengers == 0 {
		p.Passengers = 1
	}
	if p.CabinClass == "" {
		p.CabinClass = flight.CabinEconomy
	}
	if p.StopPreference == "" {
		p.StopPreference = flight.StopsAny
	}
}

// Validate checks all preference invariants. Call after ApplyDefaults when
// accepting user input.
func (p UserPreferences) Validate() error {
	if p.ChatID == 0 {
		return ErrMissingChatID
	}
	if len(p.Routes) == 0 {
		return ErrNoRoutes
	}
	for _, r := range p.Routes {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	if p.DepartureDates != nil {
		if err := p.DepartureDates.Validate(); err != nil {
			return err
		}
	}
	if p.ReturnDates != nil {
		if p.DepartureDates == nil {
			return ErrReturnWithoutDeparture
		}
		if err := p.ReturnDates.Validate(); err != nil {
			return err
		}
	}
	if p.Passengers < 1 || p.Passengers > 9 {
		return fmt.Errorf("%w: %d", ErrPassengerCount, p.Passengers)
	}
	if len(p.Currency) != 3 {
		return fmt.Errorf("%w: %q", ErrMalformedCurrency, p.Currency)
	}
	if !p.CabinClass.Valid() {
		return fmt.Errorf("%w: cabin class %q", flight.ErrUnknownEnumValue, p.CabinClass)
	}
	if !p.StopPreference.Valid() {
		return fmt.Errorf("%w: stop preference %q", flight.ErrUnknownEnumValue, p.StopPreference)
	}
	return nil
}

// TripType derives the trip type from the configured windows: a return
// window means round trip.
func (p UserPreferences) TripType() flight.TripType {
	if p.ReturnDates != nil {
		return flight.TripRoundTrip
	}
	return flight.TripOneWay
}
