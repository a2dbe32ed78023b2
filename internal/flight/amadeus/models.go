package amadeus

import "encoding/json"

// Raw wire types mirroring the Amadeus Flight Offers Search response. They
// exist only as a decode target; nothing outside this package sees them.
//
// API reference: https://developers.amadeus.com/self-service/category/flights/api-doc/flight-offers-search

type searchResponse struct {
	Meta         rawMeta         `json:"meta"`
	Data         []rawOffer      `json:"data"`
	Dictionaries json.RawMessage `json:"dictionaries,omitempty"`
}

type rawMeta struct {
	Count int `json:"count"`
}

type rawOffer struct {
	Type                     string               `json:"type"`
	ID                       string               `json:"id"`
	Source                   string               `json:"source"`
	InstantTicketingRequired bool                 `json:"instantTicketingRequired"`
	NonHomogeneous           bool                 `json:"nonHomogeneous"`
	OneWay                   bool                 `json:"oneWay"`
	LastTicketingDate        string               `json:"lastTicketingDate"`
	NumberOfBookableSeats    *int                 `json:"numberOfBookableSeats"`
	Itineraries              []rawItinerary       `json:"itineraries"`
	Price                    rawPrice             `json:"price"`
	ValidatingAirlineCodes   []string             `json:"validatingAirlineCodes"`
	TravelerPricings         []rawTravelerPricing `json:"travelerPricings,omitempty"`
}

type rawItinerary struct {
	Duration string       `json:"duration"`
	Segments []rawSegment `json:"segments"`
}

type rawSegment struct {
	Departure       rawEndpoint  `json:"departure"`
	Arrival         rawEndpoint  `json:"arrival"`
	CarrierCode     string       `json:"carrierCode"`
	Number          string       `json:"number"`
	Aircraft        *rawAircraft `json:"aircraft,omitempty"`
	Operating       *rawCarrier  `json:"operating,omitempty"`
	Duration        string       `json:"duration"`
	NumberOfStops   int          `json:"numberOfStops"`
	BlacklistedInEU bool         `json:"blacklistedInEU"`
}

type rawEndpoint struct {
	IATACode string `json:"iataCode"`
	Terminal string `json:"terminal,omitempty"`
	At       string `json:"at"`
}

type rawAircraft struct {
	Code string `json:"code"`
}

type rawCarrier struct {
	CarrierCode string `json:"carrierCode"`
}

type rawPrice struct {
	Currency   string   `json:"currency"`
	Total      string   `json:"total"`
	Base       string   `json:"base"`
	Fees       []rawFee `json:"fees"`
	GrandTotal string   `json:"grandTotal,omitempty"`
}

type rawFee struct {
	Amount string `json:"amount"`
	Type   string `json:"type"`
}

type rawTravelerPricing struct {
	TravelerID           string          `json:"travelerId"`
	FareOption           string          `json:"fareOption"`
	TravelerType         string          `json:"travelerType"`
	FareDetailsBySegment []rawFareDetail `json:"fareDetailsBySegment"`
}

type rawFareDetail struct {
	SegmentID string `json:"segmentId"`
	Cabin     string `json:"cabin"`
	Class     string `json:"class"`
}

// errorResponse is the Amadeus error envelope returned on non-2xx statuses.
type errorResponse struct {
	Errors []struct {
		Status int    `json:"status"`
		Code   int    `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}
