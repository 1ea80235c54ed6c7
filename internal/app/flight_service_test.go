package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyago/booking-api/internal/apperr"
	"github.com/voyago/booking-api/internal/domain"
)

// fakeProvider implements ports.FlightProvider with overridable functions.
type fakeProvider struct {
	searchFn      func(ctx context.Context, query domain.SearchQuery) ([]domain.Offer, error)
	getOfferFn    func(ctx context.Context, offerID string) (*domain.Offer, error)
	createOrderFn func(ctx context.Context, offerID string, passengers []domain.Passenger) (string, error)
	cancelOrderFn func(ctx context.Context, orderID string) error
}

func (f *fakeProvider) SearchOffers(ctx context.Context, query domain.SearchQuery) ([]domain.Offer, error) {
	return f.searchFn(ctx, query)
}

func (f *fakeProvider) GetOffer(ctx context.Context, offerID string) (*domain.Offer, error) {
	return f.getOfferFn(ctx, offerID)
}

func (f *fakeProvider) CreateOrder(ctx context.Context, offerID string, passengers []domain.Passenger) (string, error) {
	return f.createOrderFn(ctx, offerID, passengers)
}

func (f *fakeProvider) CancelOrder(ctx context.Context, orderID string) error {
	return f.cancelOrderFn(ctx, orderID)
}

// fakeCache implements ports.OfferCache in memory.
type fakeCache struct {
	entries map[string][]domain.Offer
	getErr  error
	setErr  error
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]domain.Offer{}}
}

func (f *fakeCache) GetSearch(ctx context.Context, key string) ([]domain.Offer, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}

	offers, ok := f.entries[key]

	return offers, ok, nil
}

func (f *fakeCache) SetSearch(ctx context.Context, key string, offers []domain.Offer, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}

	f.entries[key] = offers
	f.sets++

	return nil
}

func validQuery() domain.SearchQuery {
	return domain.SearchQuery{
		Origin:        "LHR",
		Destination:   "FCO",
		DepartureDate: time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		Adults:        1,
		Cabin:         domain.CabinEconomy,
	}
}

func TestFlightService_Search_ValidatesQuery(t *testing.T) {
	svc := NewFlightService(FlightServiceConfig{Provider: &fakeProvider{}})

	query := validQuery()
	query.Origin = "LONDON"
	query.Adults = 0

	_, err := svc.Search(context.Background(), query)
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)
	assert.Contains(t, appErr.Details, "origin")
	assert.Contains(t, appErr.Details, "adults")
}

func TestFlightService_Search_RejectsSameOriginDestination(t *testing.T) {
	svc := NewFlightService(FlightServiceConfig{Provider: &fakeProvider{}})

	query := validQuery()
	query.Destination = query.Origin

	_, err := svc.Search(context.Background(), query)
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Details, "destination")
}

func TestFlightService_Search_CacheHitSkipsProvider(t *testing.T) {
	query := validQuery()
	cached := []domain.Offer{{ID: "off_cached", Provider: "duffel"}}

	cache := newFakeCache()
	cache.entries[query.CacheKey()] = cached

	providerCalled := false
	svc := NewFlightService(FlightServiceConfig{
		Provider: &fakeProvider{
			searchFn: func(context.Context, domain.SearchQuery) ([]domain.Offer, error) {
				providerCalled = true
				return nil, nil
			},
		},
		Cache: cache,
	})

	offers, err := svc.Search(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, cached, offers)
	assert.False(t, providerCalled)
}

func TestFlightService_Search_CacheMissFillsCache(t *testing.T) {
	query := validQuery()
	fresh := []domain.Offer{{ID: "off_fresh", Provider: "duffel"}}

	cache := newFakeCache()
	svc := NewFlightService(FlightServiceConfig{
		Provider: &fakeProvider{
			searchFn: func(context.Context, domain.SearchQuery) ([]domain.Offer, error) {
				return fresh, nil
			},
		},
		Cache: cache,
	})

	offers, err := svc.Search(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, fresh, offers)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, fresh, cache.entries[query.CacheKey()])
}

func TestFlightService_Search_CacheFailuresAreMisses(t *testing.T) {
	query := validQuery()
	fresh := []domain.Offer{{ID: "off_fresh"}}

	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	svc := NewFlightService(FlightServiceConfig{
		Provider: &fakeProvider{
			searchFn: func(context.Context, domain.SearchQuery) ([]domain.Offer, error) {
				return fresh, nil
			},
		},
		Cache: cache,
	})

	// Neither the read nor the write failure surfaces to the caller.
	offers, err := svc.Search(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, fresh, offers)
}

func TestFlightService_Search_ProviderErrorPropagates(t *testing.T) {
	providerErr := apperr.ExternalAPI("provider exploded")

	svc := NewFlightService(FlightServiceConfig{
		Provider: &fakeProvider{
			searchFn: func(context.Context, domain.SearchQuery) ([]domain.Offer, error) {
				return nil, providerErr
			},
		},
	})

	_, err := svc.Search(context.Background(), validQuery())
	assert.ErrorIs(t, err, providerErr)
}

func TestFlightService_SearchAllCabins_PartialSuccess(t *testing.T) {
	svc := NewFlightService(FlightServiceConfig{
		Provider: &fakeProvider{
			searchFn: func(_ context.Context, query domain.SearchQuery) ([]domain.Offer, error) {
				if query.Cabin == domain.CabinFirst {
					return nil, apperr.ExternalAPI("no first class inventory")
				}
				return []domain.Offer{{ID: "off_" + string(query.Cabin)}}, nil
			},
		},
	})

	offers, err := svc.SearchAllCabins(context.Background(), validQuery())
	require.NoError(t, err)

	// Three of four cabins succeeded.
	assert.Len(t, offers, 3)
}

func TestFlightService_SearchAllCabins_AllFail(t *testing.T) {
	svc := NewFlightService(FlightServiceConfig{
		Provider: &fakeProvider{
			searchFn: func(context.Context, domain.SearchQuery) ([]domain.Offer, error) {
				return nil, apperr.ServiceUnavailable("provider is down")
			},
		},
	})

	_, err := svc.SearchAllCabins(context.Background(), validQuery())
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeServiceUnavailable, appErr.Code)
}

func TestFlightService_GetOffer_RequiresID(t *testing.T) {
	svc := NewFlightService(FlightServiceConfig{Provider: &fakeProvider{}})

	_, err := svc.GetOffer(context.Background(), "")
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeBadRequest, appErr.Code)
}
