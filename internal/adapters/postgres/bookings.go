package postgres

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyago/booking-api/internal/apperr"
	"github.com/voyago/booking-api/internal/domain"
	"github.com/voyago/booking-api/internal/resilience"
)

// BookingRepository implements ports.BookingRepository backed by PostgreSQL.
// Every query goes through the database circuit breaker.
type BookingRepository struct {
	pool    *pgxpool.Pool
	breaker *resilience.CircuitBreaker
}

// NewBookingRepository creates a booking repository.
// Panics if pool or breaker is nil.
func NewBookingRepository(pool *pgxpool.Pool, breaker *resilience.CircuitBreaker) *BookingRepository {
	if pool == nil {
		panic("BookingRepository: pool is required")
	}
	if breaker == nil {
		panic("BookingRepository: breaker is required")
	}

	return &BookingRepository{
		pool:    pool,
		breaker: breaker,
	}
}

const bookingColumns = `id, reference, offer_id, provider_order_id, status,
	passengers, total_amount, currency, created_at, updated_at`

// Create inserts a new booking. Implements ports.BookingRepository.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	passengers, err := json.Marshal(booking.Passengers)
	if err != nil {
		return fmt.Errorf("encoding passengers: %w", err)
	}

	return r.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO bookings (id, reference, offer_id, provider_order_id, status,
				passengers, total_amount, currency, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			booking.ID,
			booking.Reference,
			booking.OfferID,
			booking.ProviderOrderID,
			booking.Status,
			passengers,
			booking.TotalAmount,
			booking.Currency,
			booking.CreatedAt,
			booking.UpdatedAt,
		)
		return err
	})
}

// GetByID fetches a booking by internal ID. Implements
// ports.BookingRepository.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return resilience.ExecuteWith(ctx, r.breaker, func(ctx context.Context) (*domain.Booking, error) {
		row := r.pool.QueryRow(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)

		booking, err := scanBooking(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(fmt.Sprintf("booking %s not found", id))
		}
		if err != nil {
			return nil, err
		}

		return booking, nil
	})
}

// List returns bookings newest first, resuming after the cursor. Implements
// ports.BookingRepository.
func (r *BookingRepository) List(ctx context.Context, cursor string, limit int) ([]domain.Booking, string, error) {
	after, afterID, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	type page struct {
		bookings []domain.Booking
		next     string
	}

	result, err := resilience.ExecuteWith(ctx, r.breaker, func(ctx context.Context) (page, error) {
		var (
			rows pgx.Rows
			err  error
		)
		// Fetch one extra row to decide whether a next page exists.
		if cursor == "" {
			rows, err = r.pool.Query(ctx, `
				SELECT `+bookingColumns+` FROM bookings
				ORDER BY created_at DESC, id DESC
				LIMIT $1`, limit+1)
		} else {
			rows, err = r.pool.Query(ctx, `
				SELECT `+bookingColumns+` FROM bookings
				WHERE (created_at, id) < ($1, $2)
				ORDER BY created_at DESC, id DESC
				LIMIT $3`, after, afterID, limit+1)
		}
		if err != nil {
			return page{}, err
		}
		defer rows.Close()

		bookings := make([]domain.Booking, 0, limit)
		for rows.Next() {
			booking, err := scanBooking(rows)
			if err != nil {
				return page{}, err
			}
			bookings = append(bookings, *booking)
		}
		if err := rows.Err(); err != nil {
			return page{}, err
		}

		var next string
		if len(bookings) > limit {
			bookings = bookings[:limit]
			last := bookings[len(bookings)-1]
			next = encodeCursor(last.CreatedAt, last.ID)
		}

		return page{bookings: bookings, next: next}, nil
	})
	if err != nil {
		return nil, "", err
	}

	return result.bookings, result.next, nil
}

// UpdateStatus transitions a booking's status. Implements
// ports.BookingRepository.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error {
	return r.breaker.Execute(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1`,
			id, status)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return apperr.NotFound(fmt.Sprintf("booking %s not found", id))
		}

		return nil
	})
}

// Name returns the health check name. Implements ports.HealthChecker.
func (r *BookingRepository) Name() string {
	return "postgres"
}

// Check verifies database connectivity. Implements ports.HealthChecker.
// The check bypasses the breaker so readiness keeps reporting the real
// state while the circuit is open.
func (r *BookingRepository) Check(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// scanBooking reads one booking row.
func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		booking    domain.Booking
		passengers []byte
	)

	err := row.Scan(
		&booking.ID,
		&booking.Reference,
		&booking.OfferID,
		&booking.ProviderOrderID,
		&booking.Status,
		&passengers,
		&booking.TotalAmount,
		&booking.Currency,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(passengers) > 0 {
		if err := json.Unmarshal(passengers, &booking.Passengers); err != nil {
			return nil, fmt.Errorf("decoding passengers: %w", err)
		}
	}

	return &booking, nil
}

// encodeCursor packs the keyset position into an opaque page token.
func encodeCursor(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor unpacks a page token. An empty cursor means the first page.
func decodeCursor(cursor string) (time.Time, string, error) {
	if cursor == "" {
		return time.Time{}, "", nil
	}

	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", apperr.BadRequest("invalid cursor")
	}

	createdAtRaw, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return time.Time{}, "", apperr.BadRequest("invalid cursor")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, createdAtRaw)
	if err != nil {
		return time.Time{}, "", apperr.BadRequest("invalid cursor")
	}

	return createdAt, id, nil
}
