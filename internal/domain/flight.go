// Package domain contains core business entities and rules.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// CabinClass is the requested service class for a flight search.
type CabinClass string

const (
	CabinEconomy  CabinClass = "economy"
	CabinPremium  CabinClass = "premium_economy"
	CabinBusiness CabinClass = "business"
	CabinFirst    CabinClass = "first"
)

// Valid reports whether c is a recognized cabin class.
func (c CabinClass) Valid() bool {
	switch c {
	case CabinEconomy, CabinPremium, CabinBusiness, CabinFirst:
		return true
	}
	return false
}

// SearchQuery describes a flight offer search.
type SearchQuery struct {
	// Origin and Destination are IATA airport codes.
	Origin      string
	Destination string

	// DepartureDate in the origin's local calendar (no time component).
	DepartureDate time.Time

	// ReturnDate is nil for one-way searches.
	ReturnDate *time.Time

	Adults int
	Cabin  CabinClass
}

// CacheKey derives a deterministic cache key for the query. Equal queries
// always produce the same key; the hash keeps route details out of key
// listings.
func (q SearchQuery) CacheKey() string {
	raw := fmt.Sprintf("%s|%s|%s|%d|%s",
		q.Origin,
		q.Destination,
		q.DepartureDate.Format("2006-01-02"),
		q.Adults,
		q.Cabin,
	)
	if q.ReturnDate != nil {
		raw += "|" + q.ReturnDate.Format("2006-01-02")
	}

	sum := sha256.Sum256([]byte(raw))

	return "search:" + hex.EncodeToString(sum[:16])
}

// Offer is a bookable flight offer returned by a provider. Offers expire;
// booking an expired offer is rejected by the provider.
type Offer struct {
	ID          string
	Provider    string
	TotalAmount string
	Currency    string
	ExpiresAt   time.Time
	Segments    []Segment
}

// Expired reports whether the offer can no longer be booked.
func (o *Offer) Expired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && now.After(o.ExpiresAt)
}

// Segment is a single flight leg within an offer.
type Segment struct {
	Origin       string
	Destination  string
	DepartureAt  time.Time
	ArrivalAt    time.Time
	Carrier      string
	FlightNumber string
	Duration     time.Duration
}
