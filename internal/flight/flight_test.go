package flight_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farewatch/farewatch/internal/flight"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func testSegment(dep, arr string, depTime, arrTime time.Time) flight.Segment {
	dur := arrTime.Sub(depTime)
	return flight.Segment{
		DepartureAirport: dep,
		DepartureTime:    depTime,
		ArrivalAirport:   arr,
		ArrivalTime:      arrTime,
		CarrierCode:      "AA",
		FlightNumber:     "123",
		Duration:         &dur,
	}
}

func TestSegment_Validate(t *testing.T) {
	base := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	seg := testSegment("JFK", "LAX", base, base.Add(5*time.Hour))
	assert.NoError(t, seg.Validate())

	// Arrival before departure must be rejected.
	bad := testSegment("JFK", "LAX", base.Add(5*time.Hour), base)
	assert.ErrorIs(t, bad.Validate(), flight.ErrSegmentTimeOrder)

	// Equal timestamps are rejected too.
	equal := testSegment("JFK", "LAX", base, base)
	assert.ErrorIs(t, equal.Validate(), flight.ErrSegmentTimeOrder)

	// Local wall-clock times carry no offset and read different airports'
	// clocks; ordering is not checked for them. Westbound date-line
	// crossings legitimately arrive "before" they depart.
	dep := time.Date(2026, 3, 15, 21, 0, 0, 0, flight.LocalClock)
	arr := time.Date(2026, 3, 15, 9, 55, 0, 0, flight.LocalClock)
	dateline := testSegment("NRT", "HNL", dep, arr)
	assert.NoError(t, dateline.Validate())
}

func TestNewItinerary(t *testing.T) {
	base := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)

	t.Run("empty segments rejected", func(t *testing.T) {
		_, err := flight.NewItinerary(nil, nil)
		assert.ErrorIs(t, err, flight.ErrEmptyItinerary)
	})

	t.Run("invalid segment rejected", func(t *testing.T) {
		bad := testSegment("JFK", "LAX", base, base)
		_, err := flight.NewItinerary([]flight.Segment{bad}, nil)
		assert.ErrorIs(t, err, flight.ErrSegmentTimeOrder)
	})

	t.Run("derived values", func(t *testing.T) {
		segs := []flight.Segment{
			testSegment("JFK", "ORD", base, base.Add(2*time.Hour)),
			testSegment("ORD", "LAX", base.Add(3*time.Hour), base.Add(7*time.Hour)),
		}
		itin, err := flight.NewItinerary(segs, nil)
		require.NoError(t, err)

		assert.Equal(t, "JFK", itin.Origin())
		assert.Equal(t, "LAX", itin.Destination())
		assert.Equal(t, 1, itin.Stops())
		assert.False(t, itin.IsDirect())
		// No itinerary-level duration: falls back to summed segment durations.
		assert.Equal(t, 6*time.Hour, itin.TotalDuration())
	})

	t.Run("reported duration wins over segment sum", func(t *testing.T) {
		segs := []flight.Segment{
			testSegment("JFK", "ORD", base, base.Add(2*time.Hour)),
			testSegment("ORD", "LAX", base.Add(3*time.Hour), base.Add(7*time.Hour)),
		}
		total := 7 * time.Hour // includes the layover
		itin, err := flight.NewItinerary(segs, &total)
		require.NoError(t, err)
		assert.Equal(t, 7*time.Hour, itin.TotalDuration())
	})
}

func TestNewOffer(t *testing.T) {
	base := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	outbound, err := flight.NewItinerary([]flight.Segment{
		testSegment("JFK", "LAX", base, base.Add(6*time.Hour)),
	}, nil)
	require.NoError(t, err)
	inbound, err := flight.NewItinerary([]flight.Segment{
		testSegment("LAX", "ORD", base.Add(7*24*time.Hour), base.Add(7*24*time.Hour+2*time.Hour)),
		testSegment("ORD", "JFK", base.Add(7*24*time.Hour+3*time.Hour), base.Add(7*24*time.Hour+5*time.Hour)),
	}, nil)
	require.NoError(t, err)

	price := flight.Price{Currency: "USD", Total: mustDecimal(t, "450.00")}

	t.Run("zero itineraries rejected", func(t *testing.T) {
		_, err := flight.NewOffer("1", "GDS", nil, price, "AA")
		assert.ErrorIs(t, err, flight.ErrNoItineraries)
	})

	t.Run("three itineraries rejected", func(t *testing.T) {
		_, err := flight.NewOffer("1", "GDS", []flight.Itinerary{outbound, inbound, outbound}, price, "AA")
		assert.ErrorIs(t, err, flight.ErrTooManyItineraries)
	})

	t.Run("one way", func(t *testing.T) {
		offer, err := flight.NewOffer("1", "GDS", []flight.Itinerary{outbound}, price, "AA")
		require.NoError(t, err)
		assert.False(t, offer.IsRoundTrip())
		assert.Equal(t, 0, offer.TotalStops())
		assert.Equal(t, 6*time.Hour, offer.TotalDuration())
	})

	t.Run("round trip aggregates both directions", func(t *testing.T) {
		offer, err := flight.NewOffer("2", "GDS", []flight.Itinerary{outbound, inbound}, price, "AA")
		require.NoError(t, err)
		assert.True(t, offer.IsRoundTrip())
		assert.Equal(t, 1, offer.TotalStops())
		assert.Equal(t, 10*time.Hour, offer.TotalDuration())
	})
}

func TestOffer_JSONRoundTrip(t *testing.T) {
	base := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	itin, err := flight.NewItinerary([]flight.Segment{
		testSegment("JFK", "LAX", base, base.Add(6*time.Hour)),
	}, nil)
	require.NoError(t, err)

	baseFare := mustDecimal(t, "400.00")
	fees := mustDecimal(t, "50.00")
	seats := 4
	ltd := flight.NewDate(2026, time.March, 10)

	offer, err := flight.NewOffer("OFFER-42", "GDS", []flight.Itinerary{itin},
		flight.Price{
			Currency: "USD",
			Total:    mustDecimal(t, "450.00"),
			Base:     &baseFare,
			Fees:     &fees,
		}, "AA")
	require.NoError(t, err)
	offer.CabinClass = flight.CabinEconomy
	offer.BookableSeats = &seats
	offer.LastTicketingDate = &ltd

	data, err := json.Marshal(offer)
	require.NoError(t, err)

	// Monetary values survive as their exact decimal representation and the
	// ticketing date stays a calendar date, not an epoch timestamp.
	assert.Contains(t, string(data), `"450.00"`)
	assert.Contains(t, string(data), `"2026-03-10"`)

	var decoded flight.Offer
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, offer.ID, decoded.ID)
	assert.Equal(t, offer.Source, decoded.Source)
	assert.Equal(t, offer.ValidatingAirline, decoded.ValidatingAirline)
	assert.Equal(t, offer.CabinClass, decoded.CabinClass)
	assert.Equal(t, *offer.BookableSeats, *decoded.BookableSeats)
	assert.Equal(t, *offer.LastTicketingDate, *decoded.LastTicketingDate)
	assert.True(t, offer.Price.Total.Equal(decoded.Price.Total))
	assert.Equal(t, "450.00", decoded.Price.Total.String())
	assert.True(t, offer.Price.Base.Equal(*decoded.Price.Base))
	require.Len(t, decoded.Itineraries, 1)
	assert.Equal(t, "JFK", decoded.Itineraries[0].Origin())
	assert.True(t, offer.Itineraries[0].Segments[0].DepartureTime.Equal(decoded.Itineraries[0].Segments[0].DepartureTime))
}

func TestParseDate(t *testing.T) {
	d, err := flight.ParseDate("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, flight.NewDate(2026, time.March, 15), d)
	assert.Equal(t, "2026-03-15", d.String())
	assert.Equal(t, flight.NewDate(2026, time.March, 18), d.AddDays(3))
	assert.True(t, d.Before(d.AddDays(1)))

	_, err = flight.ParseDate("15/03/2026")
	assert.ErrorIs(t, err, flight.ErrMalformedDate)
	_, err = flight.ParseDate("2026-13-40")
	assert.ErrorIs(t, err, flight.ErrMalformedDate)
}

func TestEnums(t *testing.T) {
	cabin, err := flight.ParseCabinClass("premium_economy")
	require.NoError(t, err)
	assert.Equal(t, flight.CabinPremiumEconomy, cabin)

	_, err = flight.ParseCabinClass("steerage")
	assert.ErrorIs(t, err, flight.ErrUnknownEnumValue)

	pref, err := flight.ParseStopPreference("max_one_stop")
	require.NoError(t, err)
	assert.Equal(t, flight.StopsMaxOne, pref)
	assert.True(t, pref.Valid())
	assert.False(t, flight.StopPreference("nonstop").Valid())

	trip, err := flight.ParseTripType("round_trip")
	require.NoError(t, err)
	assert.Equal(t, flight.TripRoundTrip, trip)
	_, err = flight.ParseTripType("multi_city")
	assert.ErrorIs(t, err, flight.ErrUnknownEnumValue)
}
