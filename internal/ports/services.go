// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Methods represent business operations, not CRUD operations
//   - Keep interfaces small and focused (Interface Segregation Principle)
package ports

import (
	"context"
	"time"

	"github.com/voyago/booking-api/internal/domain"
)

// FlightProvider is the contract with the external flight API. The adapter
// translates provider DTOs into domain types and provider failures into
// taxonomy errors; calls go through the flight-provider circuit breaker.
type FlightProvider interface {
	// SearchOffers runs an offer search. Returned offers carry provider
	// expiry times and must not be cached beyond them.
	SearchOffers(ctx context.Context, query domain.SearchQuery) ([]domain.Offer, error)

	// GetOffer fetches a single offer by provider ID.
	GetOffer(ctx context.Context, offerID string) (*domain.Offer, error)

	// CreateOrder books an offer for the given passengers and returns the
	// provider order ID.
	CreateOrder(ctx context.Context, offerID string, passengers []domain.Passenger) (string, error)

	// CancelOrder cancels a previously created order.
	CancelOrder(ctx context.Context, orderID string) error
}

// BookingRepository persists bookings. Implementations translate storage
// failures into taxonomy errors.
type BookingRepository interface {
	// Create inserts a new booking.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID fetches a booking by internal ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// List returns bookings ordered by creation time descending, starting
	// after the cursor (empty cursor means from the top). It returns the
	// page and the cursor for the next page, empty when exhausted.
	List(ctx context.Context, cursor string, limit int) ([]domain.Booking, string, error)

	// UpdateStatus transitions a booking's status.
	UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error
}

// OfferCache caches flight search results keyed by query. Implementations
// are best-effort; callers treat cache failures as misses.
type OfferCache interface {
	// GetSearch returns cached offers for the key, or ok=false on miss.
	GetSearch(ctx context.Context, key string) ([]domain.Offer, bool, error)

	// SetSearch stores offers under the key for ttl.
	SetSearch(ctx context.Context, key string, offers []domain.Offer, ttl time.Duration) error
}
