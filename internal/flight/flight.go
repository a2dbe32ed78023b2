// Package flight provides the core flight-offer domain model.
// Entities here are value objects: constructed from upstream search data,
// validated once, and never mutated afterwards.
package flight

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Construction errors.
var (
	ErrSegmentTimeOrder   = errors.New("segment departure must be before arrival")
	ErrEmptyItinerary     = errors.New("itinerary must contain at least one segment")
	ErrNoItineraries      = errors.New("offer must contain at least one itinerary")
	ErrTooManyItineraries = errors.New("offer must contain at most two itineraries")
)

// LocalClock marks timestamps reported as local airport wall-clock time with
// no UTC offset. Departure and arrival in this location read different
// airports' clocks, so they are not comparable to each other.
var LocalClock = time.FixedZone("LOCAL", 0)

// Segment is a single takeoff-to-landing leg between two airports.
type Segment struct {
	// DepartureAirport is the IATA code of the departure airport (e.g. "JFK").
	DepartureAirport string `json:"departure_airport"`

	// DepartureTime is the scheduled departure, timezone-aware.
	DepartureTime time.Time `json:"departure_time"`

	// DepartureTerminal is the departure terminal, when the source reports one.
	DepartureTerminal *string `json:"departure_terminal,omitempty"`

	// ArrivalAirport is the IATA code of the arrival airport.
	ArrivalAirport string `json:"arrival_airport"`

	// ArrivalTime is the scheduled arrival, timezone-aware.
	ArrivalTime time.Time `json:"arrival_time"`

	// ArrivalTerminal is the arrival terminal, when the source reports one.
	ArrivalTerminal *string `json:"arrival_terminal,omitempty"`

	// CarrierCode is the IATA code of the marketing carrier (e.g. "AA").
	CarrierCode string `json:"carrier_code"`

	// FlightNumber is the flight number as reported, without carrier prefix.
	FlightNumber string `json:"flight_number"`

	// OperatingCarrier is the operating carrier code when it differs from
	// the marketing carrier (codeshares).
	OperatingCarrier *string `json:"operating_carrier,omitempty"`

	// Aircraft is the aircraft type code (e.g. "738").
	Aircraft *string `json:"aircraft,omitempty"`

	// Duration is the leg duration when the source reports one.
	Duration *time.Duration `json:"duration,omitempty"`
}

// Validate checks the segment time-ordering invariant. Upstream sources do
// not guarantee it, so it is enforced here. The check only applies when both
// timestamps carry a UTC offset: local wall-clock times run backwards on
// westbound date-line crossings (NRT 21:00 lands at HNL 09:55 the same
// calendar day).
func (s Segment) Validate() error {
	if s.DepartureTime.Location() == LocalClock || s.ArrivalTime.Location() == LocalClock {
		return nil
	}
	if !s.DepartureTime.Before(s.ArrivalTime) {
		return ErrSegmentTimeOrder
	}
	return nil
}

// IsOperatedByMarketingCarrier reports whether the leg is free of codeshares,
// i.e. the operating carrier is absent or matches the marketing carrier.
func (s Segment) IsOperatedByMarketingCarrier() bool {
	return s.OperatingCarrier == nil || *s.OperatingCarrier == s.CarrierCode
}

// Itinerary is one direction of travel: an ordered, non-empty sequence of
// segments. The first segment's departure is the itinerary origin and the
// last segment's arrival is its destination.
type Itinerary struct {
	Segments []Segment `json:"segments"`

	// Duration is the total elapsed time including layovers, when the
	// source reports one. When absent, TotalDuration falls back to the
	// sum of segment durations.
	Duration *time.Duration `json:"duration,omitempty"`
}

// NewItinerary constructs an itinerary, validating that it has at least one
// segment and that every segment is well-formed.
func NewItinerary(segments []Segment, duration *time.Duration) (Itinerary, error) {
	if len(segments) == 0 {
		return Itinerary{}, ErrEmptyItinerary
	}
	for _, seg := range segments {
		if err := seg.Validate(); err != nil {
			return Itinerary{}, err
		}
	}
	return Itinerary{Segments: segments, Duration: duration}, nil
}

// Origin returns the IATA code of the first segment's departure airport.
func (i Itinerary) Origin() string {
	return i.Segments[0].DepartureAirport
}

// Destination returns the IATA code of the last segment's arrival airport.
func (i Itinerary) Destination() string {
	return i.Segments[len(i.Segments)-1].ArrivalAirport
}

// Stops returns the number of connections. A direct flight has zero stops.
func (i Itinerary) Stops() int {
	return len(i.Segments) - 1
}

// IsDirect reports whether the itinerary has no connections.
func (i Itinerary) IsDirect() bool {
	return i.Stops() == 0
}

// TotalDuration returns the itinerary's elapsed duration. The source-reported
// total (which includes layovers) wins when present; otherwise segment
// durations are summed, treating absent segment durations as zero.
func (i Itinerary) TotalDuration() time.Duration {
	if i.Duration != nil {
		return *i.Duration
	}
	var total time.Duration
	for _, seg := range i.Segments {
		if seg.Duration != nil {
			total += *seg.Duration
		}
	}
	return total
}

// Price is the monetary amount of an offer. All amounts are exact decimals;
// binary floating point never touches money.
type Price struct {
	// Currency is the ISO 4217 currency code (e.g. "USD").
	Currency string `json:"currency"`

	// Total is the full price including fees and taxes.
	Total decimal.Decimal `json:"total"`

	// Base is the base fare before fees, when the source reports one.
	Base *decimal.Decimal `json:"base,omitempty"`

	// Fees is the sum of all fees, when the source reports them.
	Fees *decimal.Decimal `json:"fees,omitempty"`
}

// Offer is a priced, bookable flight proposal: one itinerary for a one-way
// trip, two for a round trip.
type Offer struct {
	// ID is the source-system offer identifier, preserved verbatim for
	// later booking reference. Never regenerated or reformatted.
	ID string `json:"id"`

	// Source tags the system the offer came from (e.g. "GDS").
	Source string `json:"source"`

	Itineraries []Itinerary `json:"itineraries"`
	Price       Price       `json:"price"`

	// ValidatingAirline is the IATA code of the ticketing carrier.
	ValidatingAirline string `json:"validating_airline"`

	// CabinClass is the booked cabin, when known.
	CabinClass CabinClass `json:"cabin_class,omitempty"`

	// BookableSeats is the number of seats available at this price,
	// when the source reports it.
	BookableSeats *int `json:"bookable_seats,omitempty"`

	// LastTicketingDate is the last calendar day the offer can be
	// ticketed, when the source reports it.
	LastTicketingDate *Date `json:"last_ticketing_date,omitempty"`
}

// NewOffer constructs an offer, validating the itinerary count.
func NewOffer(id, source string, itineraries []Itinerary, price Price, validatingAirline string) (Offer, error) {
	if len(itineraries) == 0 {
		return Offer{}, ErrNoItineraries
	}
	if len(itineraries) > 2 {
		return Offer{}, ErrTooManyItineraries
	}
	return Offer{
		ID:                id,
		Source:            source,
		Itineraries:       itineraries,
		Price:             price,
		ValidatingAirline: validatingAirline,
	}, nil
}

// IsRoundTrip reports whether the offer covers both directions of travel.
func (o Offer) IsRoundTrip() bool {
	return len(o.Itineraries) > 1
}

// TotalDuration returns the summed duration of all itineraries.
// Itineraries with no known duration contribute zero.
func (o Offer) TotalDuration() time.Duration {
	var total time.Duration
	for _, itin := range o.Itineraries {
		total += itin.TotalDuration()
	}
	return total
}

// TotalStops returns the summed stop count across all itineraries.
// A round trip aggregates both directions.
func (o Offer) TotalStops() int {
	stops := 0
	for _, itin := range o.Itineraries {
		stops += itin.Stops()
	}
	return stops
}
