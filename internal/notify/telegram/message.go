package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/farewatch/farewatch/internal/deal"
	"github.com/farewatch/farewatch/internal/flight"
	"github.com/farewatch/farewatch/pkg/iso8601"
)

// markdownV2Specials are the characters Telegram requires escaping in
// MarkdownV2 text.
const markdownV2Specials = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdownV2 escapes text for safe interpolation into a MarkdownV2
// message.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(markdownV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatDeal renders a matched offer as a MarkdownV2 notification: route,
// price, per-direction details, the reasons it qualified, and a booking link.
func FormatDeal(offer flight.Offer, result deal.MatchResult) string {
	lines := []string{"✈️ *Great Deal Found\\!*", ""}

	firstItin := offer.Itineraries[0]
	origin := EscapeMarkdownV2(firstItin.Origin())
	destination := EscapeMarkdownV2(firstItin.Destination())

	tripType := "One\\-way"
	if offer.IsRoundTrip() {
		tripType = "Round\\-trip"
	}

	lines = append(lines,
		fmt.Sprintf("*Route:* %s → %s", origin, destination),
		fmt.Sprintf("*Type:* %s", tripType),
		fmt.Sprintf("*Price:* %s", EscapeMarkdownV2(fmt.Sprintf("%s %s", offer.Price.Total, offer.Price.Currency))),
		"",
	)

	if offer.IsRoundTrip() {
		lines = append(lines, "🛫 *Outbound*")
		lines = append(lines, formatItinerary(offer.Itineraries[0])...)
		lines = append(lines, "", "🛬 *Return*")
		lines = append(lines, formatItinerary(offer.Itineraries[1])...)
		lines = append(lines, "")
	} else {
		lines = append(lines, "🛫 *Flight Details*")
		lines = append(lines, formatItinerary(offer.Itineraries[0])...)
		lines = append(lines, "")
	}

	if len(result.Passed) > 0 {
		lines = append(lines, "📊 *Why this is a deal:*")
		for _, reason := range result.Passed {
			lines = append(lines, "✓ "+EscapeMarkdownV2(reason))
		}
		lines = append(lines, "")
	}

	lines = append(lines, fmt.Sprintf("[Book this flight](%s)", BookingLink(offer)))
	return strings.Join(lines, "\n")
}

func formatItinerary(itin flight.Itinerary) []string {
	first := itin.Segments[0]
	last := itin.Segments[len(itin.Segments)-1]

	stops := itin.Stops()
	stopText := "Direct flight"
	switch {
	case stops == 1:
		stopText = "1 stop"
	case stops > 1:
		stopText = fmt.Sprintf("%d stops", stops)
	}

	return []string{
		fmt.Sprintf("• Departs: %s \\(%s\\)", formatTime(first.DepartureTime), EscapeMarkdownV2(first.DepartureAirport)),
		fmt.Sprintf("• Arrives: %s \\(%s\\)", formatTime(last.ArrivalTime), EscapeMarkdownV2(last.ArrivalAirport)),
		fmt.Sprintf("• Duration: %s", EscapeMarkdownV2(iso8601.FormatDuration(itin.TotalDuration()))),
		fmt.Sprintf("• Stops: %s", stopText),
		fmt.Sprintf("• Airline: %s", EscapeMarkdownV2(first.CarrierCode)),
	}
}

func formatTime(t time.Time) string {
	return t.Format("Jan 02, 03:04 PM")
}

// BookingLink builds a Google Flights search URL for the offer's route and
// dates; the upstream API offers no direct booking link.
func BookingLink(offer flight.Offer) string {
	outbound := offer.Itineraries[0]
	first := outbound.Segments[0]
	last := outbound.Segments[len(outbound.Segments)-1]

	url := fmt.Sprintf("https://www.google.com/flights?hl=en#flt=%s.%s.%s",
		first.DepartureAirport, last.ArrivalAirport, first.DepartureTime.Format("2006-01-02"))

	if offer.IsRoundTrip() {
		returnDeparture := offer.Itineraries[1].Segments[0].DepartureTime
		url += "." + returnDeparture.Format("2006-01-02")
	}
	return url + fmt.Sprintf(";c:%s;e:1", offer.Price.Currency)
}
