package amadeus_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farewatch/farewatch/internal/flight"
	"github.com/farewatch/farewatch/internal/flight/amadeus"
	"github.com/farewatch/farewatch/internal/resilience"
)

// fakeAmadeus serves the token endpoint and delegates search requests.
func fakeAmadeus(t *testing.T, search http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/security/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("client_id") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":1799}`))
	})
	mux.HandleFunc("/v2/shopping/flight-offers", search)
	return httptest.NewServer(mux)
}

func newTestClient(serverURL string) *amadeus.Client {
	return amadeus.NewClient(amadeus.ClientConfig{
		APIKey:    "test-key",
		APISecret: "test-secret",
		BaseURL:   serverURL,
		HTTPClient: resilience.NewClient(resilience.ClientConfig{
			Name:            "amadeus-test",
			MaxRetries:      1,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
		}),
		RequestsPerSecond: 1000,
		Logger:            zerolog.Nop(),
	})
}

func testQuery() amadeus.SearchQuery {
	return amadeus.SearchQuery{
		Origin:        "JFK",
		Destination:   "LAX",
		DepartureDate: flight.NewDate(2026, time.March, 15),
	}
}

func TestClient_SearchOffers(t *testing.T) {
	var gotQuery atomic.Value
	var gotAuth atomic.Value
	server := fakeAmadeus(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query().Encode())
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [` + minimalOffer("OFFER-1") + `]}`))
	})
	defer server.Close()

	client := newTestClient(server.URL)

	ret := flight.NewDate(2026, time.March, 22)
	query := testQuery()
	query.Adults = 2
	query.ReturnDate = &ret
	query.CabinClass = flight.CabinPremiumEconomy
	query.NonStop = true
	query.CurrencyCode = "USD"

	offers, skipped, err := client.SearchOffers(context.Background(), query)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, offers, 1)
	assert.Equal(t, "OFFER-1", offers[0].ID)

	assert.Equal(t, "Bearer tok-123", gotAuth.Load())
	params := gotQuery.Load().(string)
	assert.Contains(t, params, "originLocationCode=JFK")
	assert.Contains(t, params, "destinationLocationCode=LAX")
	assert.Contains(t, params, "departureDate=2026-03-15")
	assert.Contains(t, params, "returnDate=2026-03-22")
	assert.Contains(t, params, "adults=2")
	assert.Contains(t, params, "travelClass=PREMIUM_ECONOMY")
	assert.Contains(t, params, "nonStop=true")
	assert.Contains(t, params, "currencyCode=USD")
}

func TestClient_SearchOffers_InvalidQuery(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")

	_, _, err := client.SearchOffers(context.Background(), amadeus.SearchQuery{Origin: "JFK"})
	assert.Error(t, err)
}

func TestClient_SearchOffers_AuthFailure(t *testing.T) {
	server := fakeAmadeus(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer server.Close()

	client := newTestClient(server.URL)

	_, _, err := client.SearchOffers(context.Background(), testQuery())
	assert.ErrorIs(t, err, amadeus.ErrAuthentication)
}

func TestClient_SearchOffers_BadCredentials(t *testing.T) {
	server := fakeAmadeus(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	client := amadeus.NewClient(amadeus.ClientConfig{
		APIKey:    "wrong-key",
		APISecret: "wrong-secret",
		BaseURL:   server.URL,
		Logger:    zerolog.Nop(),
	})

	_, _, err := client.SearchOffers(context.Background(), testQuery())
	assert.ErrorIs(t, err, amadeus.ErrAuthentication)
}

func TestClient_SearchOffers_TokenFetchRetriesServerErrors(t *testing.T) {
	// The token exchange rides the same resilient transport as searches, so
	// a transient failure at the token endpoint is retried.
	var tokenAttempts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/security/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		if tokenAttempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":1799}`))
	})
	mux.HandleFunc("/v2/shopping/flight-offers", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [` + minimalOffer("OFFER-1") + `]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)

	offers, _, err := client.SearchOffers(context.Background(), testQuery())
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, int32(2), tokenAttempts.Load())
}

func TestClient_SearchOffers_RateLimited(t *testing.T) {
	server := fakeAmadeus(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer server.Close()

	client := newTestClient(server.URL)

	_, _, err := client.SearchOffers(context.Background(), testQuery())
	assert.ErrorIs(t, err, amadeus.ErrRateLimited)
}

func TestClient_SearchOffers_APIError(t *testing.T) {
	server := fakeAmadeus(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"status":400,"code":425,"title":"INVALID DATE","detail":"Date/Time is in the past"}]}`))
	})
	defer server.Close()

	client := newTestClient(server.URL)

	_, _, err := client.SearchOffers(context.Background(), testQuery())
	require.Error(t, err)

	var apiErr *amadeus.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "INVALID DATE", apiErr.Title)
	assert.Contains(t, apiErr.Error(), "Date/Time is in the past")
}

func TestClient_SearchOffers_SkippedOffersReported(t *testing.T) {
	server := fakeAmadeus(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [
			` + minimalOffer("GOOD-1") + `,
			{"type": "flight-offer", "id": "BAD-1", "source": "GDS",
			 "itineraries": [],
			 "price": {"currency": "USD", "total": "1.00", "fees": []},
			 "validatingAirlineCodes": ["AA"]}
		]}`))
	})
	defer server.Close()

	client := newTestClient(server.URL)

	offers, skipped, err := client.SearchOffers(context.Background(), testQuery())
	require.NoError(t, err)
	require.Len(t, offers, 1)
	require.Len(t, skipped, 1)
	assert.Equal(t, "BAD-1", skipped[0].OfferID)
}
