package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/voyago/booking-api/internal/apperr"
	"github.com/voyago/booking-api/internal/domain"
	"github.com/voyago/booking-api/internal/ports"
)

// BookingService orchestrates the booking lifecycle. Writes follow the
// transactional pattern (validate, perform, verify, archive, respond) so a
// booking row is only persisted once the provider order is confirmed.
type BookingService struct {
	provider ports.FlightProvider
	repo     ports.BookingRepository
	exec     *Executor

	defaultPageSize int
	maxPageSize     int

	logger *slog.Logger

	// now is overridable for testing.
	now func() time.Time
}

// BookingServiceConfig contains dependencies for the booking service.
type BookingServiceConfig struct {
	Provider ports.FlightProvider
	Repo     ports.BookingRepository

	// DefaultPageSize is used when a list request carries no limit.
	// MaxPageSize caps requested limits. Default to 20 and 100.
	DefaultPageSize int
	MaxPageSize     int

	Logger *slog.Logger
}

// NewBookingService creates a booking service.
// Panics if Provider or Repo is nil.
func NewBookingService(cfg BookingServiceConfig) *BookingService {
	if cfg.Provider == nil {
		panic("BookingService: Provider is required")
	}
	if cfg.Repo == nil {
		panic("BookingService: Repo is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "app.BookingService"))

	defaultPageSize := cfg.DefaultPageSize
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}

	maxPageSize := cfg.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = 100
	}

	return &BookingService{
		provider:        cfg.Provider,
		repo:            cfg.Repo,
		exec:            NewExecutor(logger),
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger,
		now:             time.Now,
	}
}

// CreateBookingInput carries the traveller's booking request.
type CreateBookingInput struct {
	OfferID    string
	Passengers []domain.Passenger
}

// placedOrder is the perform-step result of creating a booking.
type placedOrder struct {
	offer   *domain.Offer
	orderID string
}

// CreateBooking books an offer with the provider and persists the booking.
// The booking row is only written after the provider order is verified, so
// a provider failure never leaves a phantom booking behind.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	op := Operation[CreateBookingInput, placedOrder, *domain.Booking, *domain.Booking]{
		Name: "create-booking",

		Validate: func(ctx context.Context, input CreateBookingInput) error {
			return validateCreateBooking(input)
		},

		Perform: func(ctx context.Context, input CreateBookingInput) (placedOrder, error) {
			offer, err := s.provider.GetOffer(ctx, input.OfferID)
			if err != nil {
				return placedOrder{}, err
			}

			if offer.Expired(s.now()) {
				return placedOrder{}, apperr.Conflict(
					fmt.Sprintf("offer %s has expired", input.OfferID),
				)
			}

			orderID, err := s.provider.CreateOrder(ctx, input.OfferID, input.Passengers)
			if err != nil {
				return placedOrder{}, err
			}

			return placedOrder{offer: offer, orderID: orderID}, nil
		},

		Verify: func(ctx context.Context, input CreateBookingInput, placed placedOrder) (*domain.Booking, error) {
			if placed.orderID == "" {
				return nil, apperr.ExternalAPI("provider returned an empty order id")
			}

			now := s.now()

			return &domain.Booking{
				ID:              uuid.NewString(),
				Reference:       newReference(),
				OfferID:         input.OfferID,
				ProviderOrderID: placed.orderID,
				Status:          domain.BookingConfirmed,
				Passengers:      input.Passengers,
				TotalAmount:     placed.offer.TotalAmount,
				Currency:        placed.offer.Currency,
				CreatedAt:       now,
				UpdatedAt:       now,
			}, nil
		},

		Archive: func(ctx context.Context, input CreateBookingInput, booking *domain.Booking) error {
			return s.repo.Create(ctx, booking)
		},

		Respond: func(ctx context.Context, input CreateBookingInput, booking *domain.Booking) (*domain.Booking, error) {
			return booking, nil
		},
	}

	return Execute(ctx, s.exec, op, input)
}

// GetBooking fetches a booking by internal ID.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	if id == "" {
		return nil, apperr.BadRequest("booking id is required")
	}

	return s.repo.GetByID(ctx, id)
}

// ListBookings returns a page of bookings newest first. A non-positive
// limit falls back to the default page size; oversized limits are clamped.
func (s *BookingService) ListBookings(ctx context.Context, cursor string, limit int) ([]domain.Booking, string, error) {
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	return s.repo.List(ctx, cursor, limit)
}

// CancelBooking cancels the provider order and transitions the booking to
// cancelled. The status is only persisted after the provider confirmed the
// cancellation.
func (s *BookingService) CancelBooking(ctx context.Context, id string) (*domain.Booking, error) {
	op := Operation[string, *domain.Booking, *domain.Booking, *domain.Booking]{
		Name: "cancel-booking",

		Validate: func(ctx context.Context, id string) error {
			if id == "" {
				return apperr.BadRequest("booking id is required")
			}

			return nil
		},

		Perform: func(ctx context.Context, id string) (*domain.Booking, error) {
			booking, err := s.repo.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}

			if !booking.Cancellable() {
				return nil, apperr.Conflict(
					fmt.Sprintf("booking %s is already %s", id, booking.Status),
				)
			}

			if err := s.provider.CancelOrder(ctx, booking.ProviderOrderID); err != nil {
				return nil, err
			}

			return booking, nil
		},

		Verify: func(ctx context.Context, id string, booking *domain.Booking) (*domain.Booking, error) {
			booking.Status = domain.BookingCancelled
			booking.UpdatedAt = s.now()

			return booking, nil
		},

		Archive: func(ctx context.Context, id string, booking *domain.Booking) error {
			return s.repo.UpdateStatus(ctx, id, domain.BookingCancelled)
		},

		Respond: func(ctx context.Context, id string, booking *domain.Booking) (*domain.Booking, error) {
			return booking, nil
		},
	}

	return Execute(ctx, s.exec, op, id)
}

// validateCreateBooking checks the booking request and reports every
// violation at once.
func validateCreateBooking(input CreateBookingInput) error {
	fields := map[string]string{}

	if input.OfferID == "" {
		fields["offer_id"] = "is required"
	}
	if len(input.Passengers) == 0 {
		fields["passengers"] = "at least one passenger is required"
	}

	for i, pax := range input.Passengers {
		switch {
		case pax.GivenName == "":
			fields[fmt.Sprintf("passengers[%d].given_name", i)] = "is required"
		case pax.FamilyName == "":
			fields[fmt.Sprintf("passengers[%d].family_name", i)] = "is required"
		case pax.Email == "":
			fields[fmt.Sprintf("passengers[%d].email", i)] = "is required"
		case pax.DateOfBirth.IsZero():
			fields[fmt.Sprintf("passengers[%d].date_of_birth", i)] = "is required"
		}
	}

	if len(fields) > 0 {
		return apperr.Validation("invalid booking request").WithDetails(toDetails(fields))
	}

	return nil
}

// referenceAlphabet omits easily confused characters (0/O, 1/I).
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newReference generates a 6-character booking reference.
func newReference() string {
	ref := make([]byte, 6)
	for i := range ref {
		ref[i] = referenceAlphabet[rand.IntN(len(referenceAlphabet))]
	}

	return string(ref)
}
