package telegram_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farewatch/farewatch/internal/deal"
	"github.com/farewatch/farewatch/internal/flight"
	"github.com/farewatch/farewatch/internal/notify/telegram"
)

func mustItinerary(t *testing.T, origin, destination string, dep time.Time, dur time.Duration) flight.Itinerary {
	t.Helper()
	itin, err := flight.NewItinerary([]flight.Segment{{
		DepartureAirport: origin,
		DepartureTime:    dep,
		ArrivalAirport:   destination,
		ArrivalTime:      dep.Add(dur),
		CarrierCode:      "BA",
		FlightNumber:     "112",
		Duration:         &dur,
	}}, &dur)
	require.NoError(t, err)
	return itin
}

func roundTripOffer(t *testing.T) flight.Offer {
	t.Helper()
	outDep := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	retDep := time.Date(2026, 3, 22, 17, 30, 0, 0, time.UTC)
	offer, err := flight.NewOffer("OFFER-1", "GDS",
		[]flight.Itinerary{
			mustItinerary(t, "JFK", "LHR", outDep, 6*time.Hour+30*time.Minute),
			mustItinerary(t, "LHR", "JFK", retDep, 7*time.Hour+45*time.Minute),
		},
		flight.Price{Currency: "USD", Total: decimal.RequireFromString("845.70")},
		"BA")
	require.NoError(t, err)
	return offer
}

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `450\.00 USD`, telegram.EscapeMarkdownV2("450.00 USD"))
	assert.Equal(t, `JFK \-\> LAX\!`, telegram.EscapeMarkdownV2("JFK -> LAX!"))
	assert.Equal(t, "plain text", telegram.EscapeMarkdownV2("plain text"))
	assert.Equal(t, `\_\*\[\]\(\)\~`+"\\`"+`\>\#\+\-\=\|\{\}\.\!`, telegram.EscapeMarkdownV2("_*[]()~`>#+-=|{}.!"))
}

func TestFormatDeal_RoundTrip(t *testing.T) {
	offer := roundTripOffer(t)
	result := deal.MatchResult{
		Matched: true,
		Passed:  []string{"price 845.70 USD is within budget of 900.00"},
	}

	msg := telegram.FormatDeal(offer, result)

	assert.Contains(t, msg, `*Great Deal Found\!*`)
	assert.Contains(t, msg, "*Route:* JFK → LHR")
	assert.Contains(t, msg, `*Type:* Round\-trip`)
	assert.Contains(t, msg, `845\.70 USD`)
	assert.Contains(t, msg, "🛫 *Outbound*")
	assert.Contains(t, msg, "🛬 *Return*")
	assert.Contains(t, msg, "• Duration: 6h 30m")
	assert.Contains(t, msg, "• Stops: Direct flight")
	assert.Contains(t, msg, "• Airline: BA")
	assert.Contains(t, msg, "📊 *Why this is a deal:*")
	assert.Contains(t, msg, `✓ price 845\.70 USD is within budget of 900\.00`)
	assert.Contains(t, msg, "[Book this flight](https://www.google.com/flights?hl=en#flt=JFK.LHR.2026-03-15.2026-03-22;c:USD;e:1)")
}

func TestFormatDeal_OneWay(t *testing.T) {
	dep := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	offer, err := flight.NewOffer("OFFER-2", "GDS",
		[]flight.Itinerary{mustItinerary(t, "JFK", "LAX", dep, 5*time.Hour+15*time.Minute)},
		flight.Price{Currency: "EUR", Total: decimal.RequireFromString("299.99")},
		"AA")
	require.NoError(t, err)

	msg := telegram.FormatDeal(offer, deal.MatchResult{Matched: true})

	assert.Contains(t, msg, `*Type:* One\-way`)
	assert.Contains(t, msg, "🛫 *Flight Details*")
	assert.NotContains(t, msg, "*Return*")
	assert.NotContains(t, msg, "Why this is a deal")
	assert.Contains(t, msg, "https://www.google.com/flights?hl=en#flt=JFK.LAX.2026-03-15;c:EUR;e:1")
}

func TestBookingLink(t *testing.T) {
	offer := roundTripOffer(t)
	assert.Equal(t,
		"https://www.google.com/flights?hl=en#flt=JFK.LHR.2026-03-15.2026-03-22;c:USD;e:1",
		telegram.BookingLink(offer))
}
