// Package monitor runs the periodic check cycle: load every user's
// preferences, search their routes, evaluate offers, and notify matches.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/farewatch/farewatch/internal/deal"
	"github.com/farewatch/farewatch/internal/flight"
	"github.com/farewatch/farewatch/internal/flight/amadeus"
	"github.com/farewatch/farewatch/internal/notify"
	"github.com/farewatch/farewatch/internal/preferences"
	"github.com/farewatch/farewatch/internal/searchcache"
)

// Searcher is the flight-search collaborator.
type Searcher interface {
	SearchOffers(ctx context.Context, query amadeus.SearchQuery) ([]flight.Offer, []amadeus.SkippedOffer, error)
}

// Config holds monitor configuration.
type Config struct {
	Repository preferences.Repository
	Searcher   Searcher
	Evaluator  *deal.Evaluator
	Notifier   notify.Notifier

	// Cache is optional; nil disables result sharing across users.
	Cache searchcache.Cache

	// Concurrency bounds how many users are checked in parallel.
	// Default: 4
	Concurrency int

	Logger zerolog.Logger
}

// Monitor coordinates check cycles. A single failure - one user's broken
// preferences, one failed search, one undeliverable notification - is logged
// and counted, never fatal to the cycle.
type Monitor struct {
	repo        preferences.Repository
	searcher    Searcher
	evaluator   *deal.Evaluator
	notifier    notify.Notifier
	cache       searchcache.Cache
	concurrency int
	logger      zerolog.Logger
}

// NewMonitor creates a monitor.
func NewMonitor(cfg Config) *Monitor {
	cache := cfg.Cache
	if cache == nil {
		cache = searchcache.NewNoOpCache()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Monitor{
		repo:        cfg.Repository,
		searcher:    cfg.Searcher,
		evaluator:   cfg.Evaluator,
		notifier:    cfg.Notifier,
		cache:       cache,
		concurrency: concurrency,
		logger:      cfg.Logger,
	}
}

// CycleResult summarizes one completed check cycle.
type CycleResult struct {
	RunID             string        `json:"run_id"`
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
	UsersChecked      int64         `json:"users_checked"`
	RoutesSearched    int64         `json:"routes_searched"`
	OffersFound       int64         `json:"offers_found"`
	OffersSkipped     int64         `json:"offers_skipped"`
	DealsMatched      int64         `json:"deals_matched"`
	NotificationsSent int64         `json:"notifications_sent"`
	Errors            int64         `json:"errors"`
}

// cycleCounters aggregates across concurrent user checks.
type cycleCounters struct {
	usersChecked      atomic.Int64
	routesSearched    atomic.Int64
	offersFound       atomic.Int64
	offersSkipped     atomic.Int64
	dealsMatched      atomic.Int64
	notificationsSent atomic.Int64
	errors            atomic.Int64
}

// RunCycle checks every stored user once and returns cycle statistics. It
// never returns an error: failures are counted in the result.
func (m *Monitor) RunCycle(ctx context.Context) CycleResult {
	runID := uuid.NewString()
	start := time.Now()
	logger := m.logger.With().Str("run_id", runID).Logger()

	counters := &cycleCounters{}

	chatIDs, err := m.repo.ListChatIDs(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("listing users failed, skipping cycle")
		counters.errors.Add(1)
		return m.result(runID, start, counters)
	}
	if len(chatIDs) == 0 {
		logger.Info().Msg("no users with preferences, nothing to check")
		return m.result(runID, start, counters)
	}

	logger.Info().Int("users", len(chatIDs)).Msg("starting check cycle")

	sem := make(chan struct{}, m.concurrency)
	var wg sync.WaitGroup
	for _, chatID := range chatIDs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(chatID int64) {
			defer wg.Done()
			defer func() { <-sem }()
			m.checkUser(ctx, logger, chatID, counters)
		}(chatID)
	}
	wg.Wait()

	result := m.result(runID, start, counters)
	logger.Info().
		Int64("users_checked", result.UsersChecked).
		Int64("routes_searched", result.RoutesSearched).
		Int64("offers_found", result.OffersFound).
		Int64("offers_skipped", result.OffersSkipped).
		Int64("deals_matched", result.DealsMatched).
		Int64("notifications_sent", result.NotificationsSent).
		Int64("errors", result.Errors).
		Dur("duration", result.Duration).
		Msg("check cycle complete")
	return result
}

func (m *Monitor) result(runID string, start time.Time, c *cycleCounters) CycleResult {
	return CycleResult{
		RunID:             runID,
		StartedAt:         start,
		Duration:          time.Since(start),
		UsersChecked:      c.usersChecked.Load(),
		RoutesSearched:    c.routesSearched.Load(),
		OffersFound:       c.offersFound.Load(),
		OffersSkipped:     c.offersSkipped.Load(),
		DealsMatched:      c.dealsMatched.Load(),
		NotificationsSent: c.notificationsSent.Load(),
		Errors:            c.errors.Load(),
	}
}

func (m *Monitor) checkUser(ctx context.Context, logger zerolog.Logger, chatID int64, counters *cycleCounters) {
	prefs, err := m.repo.Load(ctx, chatID)
	if err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("loading preferences failed")
		counters.errors.Add(1)
		return
	}
	counters.usersChecked.Add(1)

	for _, route := range prefs.Routes {
		if ctx.Err() != nil {
			return
		}
		counters.routesSearched.Add(1)
		m.checkRoute(ctx, logger, chatID, *prefs, route, counters)
	}
}

func (m *Monitor) checkRoute(ctx context.Context, logger zerolog.Logger, chatID int64, prefs preferences.UserPreferences, route preferences.Route, counters *cycleCounters) {
	query := queryFor(prefs, route)

	offers, cached := m.cache.Get(ctx, query)
	if !cached {
		var skipped []amadeus.SkippedOffer
		var err error
		offers, skipped, err = m.searcher.SearchOffers(ctx, query)
		if err != nil {
			logger.Error().Err(err).
				Int64("chat_id", chatID).
				Str("route", route.String()).
				Msg("flight search failed")
			counters.errors.Add(1)
			return
		}
		counters.offersSkipped.Add(int64(len(skipped)))
		if err := m.cache.Set(ctx, query, offers); err != nil {
			logger.Warn().Err(err).Str("route", route.String()).Msg("caching search results failed")
		}
	}
	counters.offersFound.Add(int64(len(offers)))

	for _, offer := range offers {
		result := m.evaluator.Evaluate(offer, prefs)
		if !result.Matched {
			continue
		}
		counters.dealsMatched.Add(1)
		logger.Info().
			Int64("chat_id", chatID).
			Str("offer_id", offer.ID).
			Str("route", route.String()).
			Str("price", offer.Price.Total.String()).
			Str("currency", offer.Price.Currency).
			Msg("deal matched")

		if err := m.notifier.SendDeal(ctx, chatID, offer, result); err != nil {
			logger.Error().Err(err).
				Int64("chat_id", chatID).
				Str("offer_id", offer.ID).
				Msg("sending notification failed")
			counters.errors.Add(1)
			continue
		}
		counters.notificationsSent.Add(1)
	}
}

// queryFor derives the search for one of a user's routes. Flexible date
// windows search from their earliest day; widening across the window is left
// to future scheduling.
func queryFor(prefs preferences.UserPreferences, route preferences.Route) amadeus.SearchQuery {
	query := amadeus.SearchQuery{
		Origin:       route.Origin,
		Destination:  route.Destination,
		Adults:       prefs.Passengers,
		CabinClass:   prefs.CabinClass,
		NonStop:      prefs.StopPreference == flight.StopsDirectOnly,
		CurrencyCode: prefs.Currency,
	}
	if prefs.DepartureDates != nil {
		query.DepartureDate = prefs.DepartureDates.Earliest
	}
	if prefs.ReturnDates != nil {
		returnDate := prefs.ReturnDates.Earliest
		query.ReturnDate = &returnDate
	}
	return query
}
