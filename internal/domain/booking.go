package domain

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	// BookingPending means the provider order was placed but not yet
	// confirmed.
	BookingPending BookingStatus = "pending"

	// BookingConfirmed means the provider issued the order.
	BookingConfirmed BookingStatus = "confirmed"

	// BookingCancelled means the booking was cancelled, either by the
	// traveller or because confirmation failed.
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a confirmed or in-flight reservation of a flight offer.
type Booking struct {
	// ID is the internal identifier (UUID).
	ID string

	// Reference is the human-facing booking reference shown to travellers.
	Reference string

	// OfferID is the provider offer this booking was created from.
	OfferID string

	// ProviderOrderID is the order identifier at the flight provider.
	ProviderOrderID string

	Status      BookingStatus
	Passengers  []Passenger
	TotalAmount string
	Currency    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cancellable reports whether the booking may still be cancelled.
func (b *Booking) Cancellable() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// Passenger identifies a traveller on a booking.
type Passenger struct {
	GivenName   string
	FamilyName  string
	DateOfBirth time.Time
	Email       string
	Phone       string
}
