// Package app contains application services that orchestrate use cases.
// This is the application layer in Clean Architecture - it coordinates
// domain logic and infrastructure through ports.
//
// Application Layer Responsibilities:
//   - Orchestrate use cases (business workflows)
//   - Coordinate between domain and infrastructure
//   - Handle cross-cutting concerns (logging)
//   - Enforce business rules that span multiple entities
//
// What does NOT belong here:
//   - HTTP/gRPC specifics (that's adapters)
//   - Database queries (that's repository adapters)
//   - Core domain logic (that's the domain layer)
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/voyago/booking-api/internal/apperr"
	"github.com/voyago/booking-api/internal/domain"
	"github.com/voyago/booking-api/internal/platform/logging"
	"github.com/voyago/booking-api/internal/ports"
)

// FlightService orchestrates flight search use cases: cache lookup first,
// then the provider, with the fresh result written back to the cache.
type FlightService struct {
	provider  ports.FlightProvider
	cache     ports.OfferCache
	searchTTL time.Duration
	logger    *slog.Logger
}

// FlightServiceConfig contains dependencies for the flight service.
type FlightServiceConfig struct {
	Provider ports.FlightProvider

	// Cache is optional; without it every search hits the provider.
	Cache ports.OfferCache

	// SearchTTL bounds how long search results are cached. It should stay
	// well below typical offer expiry.
	SearchTTL time.Duration

	Logger *slog.Logger
}

// NewFlightService creates a flight service. Panics if Provider is nil.
func NewFlightService(cfg FlightServiceConfig) *FlightService {
	if cfg.Provider == nil {
		panic("FlightService: Provider is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	searchTTL := cfg.SearchTTL
	if searchTTL <= 0 {
		searchTTL = 5 * time.Minute
	}

	return &FlightService{
		provider:  cfg.Provider,
		cache:     cfg.Cache,
		searchTTL: searchTTL,
		logger:    logger.With(slog.String("component", "app.FlightService")),
	}
}

// Search returns offers for the query, from cache when possible. Cache
// failures are treated as misses; a search never fails because the cache is
// down.
func (s *FlightService) Search(ctx context.Context, query domain.SearchQuery) ([]domain.Offer, error) {
	if err := validateSearchQuery(query); err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	key := query.CacheKey()

	if s.cache != nil {
		offers, ok, err := s.cache.GetSearch(ctx, key)
		if err != nil {
			logger.WarnContext(ctx, "offer cache read failed",
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
		if ok {
			logger.DebugContext(ctx, "offer cache hit",
				slog.String("key", key),
				slog.Int("offers", len(offers)),
			)
			return offers, nil
		}
	}

	offers, err := s.provider.SearchOffers(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetSearch(ctx, key, offers, s.searchTTL); err != nil {
			logger.WarnContext(ctx, "offer cache write failed",
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
	}

	return offers, nil
}

// SearchAllCabins fans the query out across every cabin class and merges the
// results. Individual cabin failures are tolerated as long as at least one
// cabin succeeds; the search only fails when every cabin fails.
func (s *FlightService) SearchAllCabins(ctx context.Context, query domain.SearchQuery) ([]domain.Offer, error) {
	cabins := []domain.CabinClass{
		domain.CabinEconomy,
		domain.CabinPremium,
		domain.CabinBusiness,
		domain.CabinFirst,
	}

	fns := make([]func(context.Context) ([]domain.Offer, error), 0, len(cabins))
	for _, cabin := range cabins {
		cabinQuery := query
		cabinQuery.Cabin = cabin
		fns = append(fns, func(ctx context.Context) ([]domain.Offer, error) {
			return s.Search(ctx, cabinQuery)
		})
	}

	// Two provider searches in flight at a time keeps the fan-out from
	// monopolizing the provider's rate limit.
	results := ParallelPartialLimit(ctx, 2, fns...)

	var (
		offers   []domain.Offer
		firstErr error
		failures int
	)
	for i, r := range results {
		if r.Err != nil {
			failures++
			if firstErr == nil {
				firstErr = r.Err
			}
			logging.FromContext(ctx).WarnContext(ctx, "cabin search failed",
				slog.String("cabin", string(cabins[i])),
				slog.Any("error", r.Err),
			)
			continue
		}
		offers = append(offers, r.Value...)
	}

	if failures == len(results) {
		return nil, firstErr
	}

	return offers, nil
}

// GetOffer fetches a single offer by provider ID.
func (s *FlightService) GetOffer(ctx context.Context, offerID string) (*domain.Offer, error) {
	if offerID == "" {
		return nil, apperr.BadRequest("offer id is required")
	}

	return s.provider.GetOffer(ctx, offerID)
}

// validateSearchQuery checks query fields and reports every violation at
// once, matching the shape produced by request binding validation.
func validateSearchQuery(query domain.SearchQuery) error {
	fields := map[string]string{}

	if len(query.Origin) != 3 {
		fields["origin"] = "must be a 3-letter IATA code"
	}
	if len(query.Destination) != 3 {
		fields["destination"] = "must be a 3-letter IATA code"
	}
	if query.Origin != "" && query.Origin == query.Destination {
		fields["destination"] = "must differ from origin"
	}
	if query.DepartureDate.IsZero() {
		fields["departure_date"] = "is required"
	}
	if query.ReturnDate != nil && query.ReturnDate.Before(query.DepartureDate) {
		fields["return_date"] = "must not be before departure date"
	}
	if query.Adults < 1 || query.Adults > 9 {
		fields["adults"] = "must be between 1 and 9"
	}
	if !query.Cabin.Valid() {
		fields["cabin"] = "must be one of economy, premium_economy, business, first"
	}

	if len(fields) > 0 {
		return apperr.Validation("invalid search query").WithDetails(toDetails(fields))
	}

	return nil
}

func toDetails(fields map[string]string) map[string]any {
	details := make(map[string]any, len(fields))
	for k, v := range fields {
		details[k] = v
	}

	return details
}
