package amadeus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/farewatch/farewatch/internal/flight"
	"github.com/farewatch/farewatch/internal/resilience"
)

const (
	// SourceName identifies this flight-search provider.
	SourceName = "amadeus"

	// DefaultBaseURL is the Amadeus self-service test environment.
	DefaultBaseURL = "https://test.api.amadeus.com"

	// ProductionBaseURL is the Amadeus production environment.
	ProductionBaseURL = "https://api.amadeus.com"

	tokenPath  = "/v1/security/oauth2/token"
	searchPath = "/v2/shopping/flight-offers"

	// defaultMaxResults caps offers per search when the query does not.
	defaultMaxResults = 10
)

// Typed failures of the search API, for callers that branch on cause.
var (
	// ErrAuthentication is returned on 401/403 responses and token failures.
	ErrAuthentication = errors.New("amadeus authentication failed")

	// ErrRateLimited is returned when the quota is exhausted even after
	// retries.
	ErrRateLimited = errors.New("amadeus rate limit exceeded")
)

// APIError is a non-2xx search response outside the auth and rate-limit
// categories.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("amadeus api error %d: %s: %s", e.StatusCode, e.Title, e.Detail)
	}
	return fmt.Sprintf("amadeus api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// SearchQuery describes one flight-offers search.
type SearchQuery struct {
	// Origin and Destination are IATA airport codes.
	Origin      string
	Destination string

	DepartureDate flight.Date

	// ReturnDate, when set, makes the search round-trip.
	ReturnDate *flight.Date

	// Adults defaults to 1.
	Adults int

	// CabinClass, when set, restricts results to one travel class.
	CabinClass flight.CabinClass

	// NonStop restricts results to direct flights.
	NonStop bool

	// CurrencyCode, when set, asks for prices in that currency.
	CurrencyCode string

	// MaxResults defaults to defaultMaxResults.
	MaxResults int
}

// Validate checks the query has the required search parameters.
func (q SearchQuery) Validate() error {
	if q.Origin == "" || q.Destination == "" {
		return errors.New("origin and destination are required")
	}
	if q.DepartureDate.IsZero() {
		return errors.New("departure date is required")
	}
	return nil
}

// Values encodes the query as Flight Offers Search request parameters. The
// encoding is canonical (keys sorted), so it doubles as a cache identity.
func (q SearchQuery) Values() url.Values {
	adults := q.Adults
	if adults == 0 {
		adults = 1
	}
	maxResults := q.MaxResults
	if maxResults == 0 {
		maxResults = defaultMaxResults
	}

	values := url.Values{}
	values.Set("originLocationCode", q.Origin)
	values.Set("destinationLocationCode", q.Destination)
	values.Set("departureDate", q.DepartureDate.String())
	values.Set("adults", strconv.Itoa(adults))
	values.Set("max", strconv.Itoa(maxResults))
	if q.ReturnDate != nil {
		values.Set("returnDate", q.ReturnDate.String())
	}
	if q.CabinClass != "" {
		values.Set("travelClass", strings.ToUpper(string(q.CabinClass)))
	}
	if q.NonStop {
		values.Set("nonStop", "true")
	}
	if q.CurrencyCode != "" {
		values.Set("currencyCode", q.CurrencyCode)
	}
	return values
}

// ClientConfig holds configuration for the Amadeus client.
type ClientConfig struct {
	// APIKey and APISecret are the OAuth2 client credentials (required).
	APIKey    string
	APISecret string

	// BaseURL defaults to the test environment.
	BaseURL string

	// HTTPClient is the resilient transport. If nil, one is created with
	// defaults.
	HTTPClient *resilience.Client

	// RequestsPerSecond throttles outbound searches. The self-service test
	// tier allows 10 transactions per second. Default: 5
	RequestsPerSecond float64

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client searches flight offers via the Amadeus self-service API. It manages
// OAuth2 client-credentials tokens, throttles requests, and normalizes
// responses to domain offers. Safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *resilience.Client
	tokenSource oauth2.TokenSource
	limiter     *rate.Limiter
	logger      zerolog.Logger
}

// NewClient creates an Amadeus client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{Name: SourceName})
	}

	rps := cfg.RequestsPerSecond
	if rps == 0 {
		rps = 5
	}

	creds := clientcredentials.Config{
		ClientID:     cfg.APIKey,
		ClientSecret: cfg.APISecret,
		TokenURL:     baseURL + tokenPath,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	// Token requests go through the same resilient transport as searches.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient.StandardClient())

	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		tokenSource: creds.TokenSource(tokenCtx),
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		logger:      cfg.Logger,
	}
}

// SearchOffers runs a flight-offers search and returns the mapped domain
// offers plus any offers skipped as malformed.
func (c *Client) SearchOffers(ctx context.Context, query SearchQuery) ([]flight.Offer, []SkippedOffer, error) {
	if err := query.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid search query: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	token, err := c.tokenSource.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	searchURL := c.baseURL + searchPath + "?" + query.Values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("creating search request: %w", err)
	}
	token.SetAuthHeader(req)

	c.logger.Debug().
		Str("origin", query.Origin).
		Str("destination", query.Destination).
		Str("departure_date", query.DepartureDate.String()).
		Bool("round_trip", query.ReturnDate != nil).
		Msg("searching flight offers")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		var statusErr *resilience.StatusError
		if errors.As(err, &statusErr) {
			defer resp.Body.Close()
			if statusErr.StatusCode == http.StatusTooManyRequests {
				return nil, nil, ErrRateLimited
			}
			return nil, nil, c.apiError(resp)
		}
		return nil, nil, fmt.Errorf("executing search request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, nil, fmt.Errorf("%w: status %d", ErrAuthentication, resp.StatusCode)
	default:
		return nil, nil, c.apiError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading search response: %w", err)
	}

	offers, skipped, err := MapResponse(body)
	if err != nil {
		return nil, nil, err
	}

	if len(skipped) > 0 {
		c.logger.Warn().
			Int("skipped", len(skipped)).
			Str("origin", query.Origin).
			Str("destination", query.Destination).
			Msg("skipped malformed offers in search response")
	}
	return offers, skipped, nil
}

// BreakerState exposes the transport's circuit breaker state.
func (c *Client) BreakerState() string {
	return c.httpClient.BreakerState().String()
}

// apiError decodes the Amadeus error envelope into an APIError, falling back
// to the bare status when the body is not the expected shape.
func (c *Client) apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && len(envelope.Errors) > 0 {
		apiErr.Title = envelope.Errors[0].Title
		apiErr.Detail = envelope.Errors[0].Detail
	}
	return apiErr
}
