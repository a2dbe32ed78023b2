// Package amadeus searches the Amadeus Flight Offers Search API and
// normalizes its responses into domain flight offers.
package amadeus

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farewatch/farewatch/internal/flight"
	"github.com/farewatch/farewatch/pkg/iso8601"
)

// MalformedOfferError reports a single offer that could not be normalized.
// It is scoped to one offer; the rest of a response maps independently.
type MalformedOfferError struct {
	// OfferID is the upstream offer identifier, when present.
	OfferID string

	// Field names the offending part of the payload.
	Field string

	Err error
}

func (e *MalformedOfferError) Error() string {
	return fmt.Sprintf("malformed offer %q: %s: %v", e.OfferID, e.Field, e.Err)
}

func (e *MalformedOfferError) Unwrap() error {
	return e.Err
}

// SkippedOffer records one offer dropped from a response during mapping.
type SkippedOffer struct {
	OfferID string `json:"offer_id"`
	Reason  string `json:"reason"`
}

// MapResponse decodes a Flight Offers Search response body and maps every
// offer in it to the domain model. Offers that fail to map are skipped and
// reported; one bad offer never aborts the batch. A response with zero offers
// yields an empty slice. The returned error is non-nil only when the envelope
// itself does not decode.
func MapResponse(body []byte) ([]flight.Offer, []SkippedOffer, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("decoding search response: %w", err)
	}

	offers := make([]flight.Offer, 0, len(resp.Data))
	var skipped []SkippedOffer
	for _, raw := range resp.Data {
		offer, err := mapOffer(raw)
		if err != nil {
			skipped = append(skipped, SkippedOffer{OfferID: raw.ID, Reason: err.Error()})
			continue
		}
		offers = append(offers, offer)
	}
	return offers, skipped, nil
}

func mapOffer(raw rawOffer) (flight.Offer, error) {
	if len(raw.Itineraries) == 0 {
		return flight.Offer{}, &MalformedOfferError{OfferID: raw.ID, Field: "itineraries", Err: flight.ErrNoItineraries}
	}

	itineraries := make([]flight.Itinerary, 0, len(raw.Itineraries))
	for i, rawItin := range raw.Itineraries {
		itin, err := mapItinerary(rawItin)
		if err != nil {
			return flight.Offer{}, &MalformedOfferError{
				OfferID: raw.ID,
				Field:   fmt.Sprintf("itineraries[%d]", i),
				Err:     err,
			}
		}
		itineraries = append(itineraries, itin)
	}

	price, err := mapPrice(raw.Price)
	if err != nil {
		return flight.Offer{}, &MalformedOfferError{OfferID: raw.ID, Field: "price", Err: err}
	}

	if len(raw.ValidatingAirlineCodes) == 0 {
		return flight.Offer{}, &MalformedOfferError{
			OfferID: raw.ID,
			Field:   "validatingAirlineCodes",
			Err:     errors.New("missing validating airline"),
		}
	}

	offer, err := flight.NewOffer(raw.ID, raw.Source, itineraries, price, raw.ValidatingAirlineCodes[0])
	if err != nil {
		return flight.Offer{}, &MalformedOfferError{OfferID: raw.ID, Field: "itineraries", Err: err}
	}

	offer.BookableSeats = raw.NumberOfBookableSeats
	if raw.LastTicketingDate != "" {
		if date, err := flight.ParseDate(raw.LastTicketingDate); err == nil {
			offer.LastTicketingDate = &date
		}
	}
	offer.CabinClass = cabinOf(raw)
	return offer, nil
}

func mapItinerary(raw rawItinerary) (flight.Itinerary, error) {
	segments := make([]flight.Segment, 0, len(raw.Segments))
	for i, rawSeg := range raw.Segments {
		seg, err := mapSegment(rawSeg)
		if err != nil {
			return flight.Itinerary{}, fmt.Errorf("segments[%d]: %w", i, err)
		}
		segments = append(segments, seg)
	}

	duration, err := mapDuration(raw.Duration)
	if err != nil {
		return flight.Itinerary{}, fmt.Errorf("duration: %w", err)
	}
	return flight.NewItinerary(segments, duration)
}

func mapSegment(raw rawSegment) (flight.Segment, error) {
	departureTime, err := parseTimestamp(raw.Departure.At)
	if err != nil {
		return flight.Segment{}, fmt.Errorf("departure.at: %w", err)
	}
	arrivalTime, err := parseTimestamp(raw.Arrival.At)
	if err != nil {
		return flight.Segment{}, fmt.Errorf("arrival.at: %w", err)
	}
	duration, err := mapDuration(raw.Duration)
	if err != nil {
		return flight.Segment{}, fmt.Errorf("duration: %w", err)
	}

	seg := flight.Segment{
		DepartureAirport:  raw.Departure.IATACode,
		DepartureTime:     departureTime,
		DepartureTerminal: optional(raw.Departure.Terminal),
		ArrivalAirport:    raw.Arrival.IATACode,
		ArrivalTime:       arrivalTime,
		ArrivalTerminal:   optional(raw.Arrival.Terminal),
		CarrierCode:       raw.CarrierCode,
		FlightNumber:      raw.Number,
		Duration:          duration,
	}
	if raw.Operating != nil {
		seg.OperatingCarrier = optional(raw.Operating.CarrierCode)
	}
	if raw.Aircraft != nil {
		seg.Aircraft = optional(raw.Aircraft.Code)
	}
	return seg, nil
}

func mapPrice(raw rawPrice) (flight.Price, error) {
	if raw.Currency == "" {
		return flight.Price{}, errors.New("missing currency")
	}
	total, err := decimal.NewFromString(raw.Total)
	if err != nil {
		return flight.Price{}, fmt.Errorf("total %q: %w", raw.Total, err)
	}

	price := flight.Price{Currency: raw.Currency, Total: total}
	if raw.Base != "" {
		base, err := decimal.NewFromString(raw.Base)
		if err != nil {
			return flight.Price{}, fmt.Errorf("base %q: %w", raw.Base, err)
		}
		price.Base = &base
	}
	if len(raw.Fees) > 0 {
		fees := decimal.Zero
		for _, fee := range raw.Fees {
			amount, err := decimal.NewFromString(fee.Amount)
			if err != nil {
				return flight.Price{}, fmt.Errorf("fee amount %q: %w", fee.Amount, err)
			}
			fees = fees.Add(amount)
		}
		price.Fees = &fees
	}
	return price, nil
}

// mapDuration converts an upstream ISO 8601 duration. Absent is a valid
// upstream state and maps to nil, not zero.
func mapDuration(token string) (*time.Duration, error) {
	if token == "" {
		return nil, nil
	}
	d, err := iso8601.ParseDuration(token)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// localTimeLayout is the offset-less local airport time Amadeus usually
// reports. Offset-carrying timestamps are RFC 3339.
const localTimeLayout = "2006-01-02T15:04:05"

// parseTimestamp parses an upstream timestamp. Offset-less values are local
// airport wall-clock times; they parse into flight.LocalClock so the domain
// knows they cannot be compared across airports.
func parseTimestamp(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	if ts, err := time.ParseInLocation(localTimeLayout, value, flight.LocalClock); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

// cabinOf extracts the booked cabin from traveler pricing, best effort.
// Amadeus reports cabins as upper-case tokens like "PREMIUM_ECONOMY".
func cabinOf(raw rawOffer) flight.CabinClass {
	for _, pricing := range raw.TravelerPricings {
		for _, fare := range pricing.FareDetailsBySegment {
			if fare.Cabin == "" {
				continue
			}
			cabin, err := flight.ParseCabinClass(strings.ToLower(fare.Cabin))
			if err != nil {
				return ""
			}
			return cabin
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
