// Package duffel adapts the Duffel flight API to the FlightProvider port.
// It is an anti-corruption layer: Duffel wire DTOs stay inside this package
// and every response is translated to domain types before it crosses the
// port boundary. Authentication and the Duffel-Version header are injected
// by the underlying HTTP client's AuthFunc.
package duffel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/voyago/booking-api/internal/adapters/clients"
	"github.com/voyago/booking-api/internal/apperr"
	"github.com/voyago/booking-api/internal/domain"
	"github.com/voyago/booking-api/internal/platform/logging"
)

// providerName identifies Duffel in offers, logs, and health checks.
const providerName = "duffel"

// Config contains configuration for the Duffel provider.
type Config struct {
	// Client is the HTTP client to use for requests. Its BaseURL should be
	// the Duffel API endpoint and its AuthFunc must set the Authorization
	// and Duffel-Version headers.
	Client *clients.Client

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Provider implements ports.FlightProvider against the Duffel API.
type Provider struct {
	client *clients.Client
	logger *slog.Logger
}

// New creates a new Duffel provider adapter.
// Panics if Client is nil. Defaults logger to slog.Default() if nil.
func New(cfg Config) *Provider {
	if cfg.Client == nil {
		panic("duffel.Provider: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Provider{
		client: cfg.Client,
		logger: logger,
	}
}

// SearchOffers runs an offer search. Implements ports.FlightProvider.
func (p *Provider) SearchOffers(ctx context.Context, query domain.SearchQuery) ([]domain.Offer, error) {
	const path = "/air/offer_requests?return_offers=true"

	slices := []sliceRequest{{
		Origin:        query.Origin,
		Destination:   query.Destination,
		DepartureDate: query.DepartureDate.Format("2006-01-02"),
	}}
	if query.ReturnDate != nil {
		slices = append(slices, sliceRequest{
			Origin:        query.Destination,
			Destination:   query.Origin,
			DepartureDate: query.ReturnDate.Format("2006-01-02"),
		})
	}

	passengers := make([]passengerRequest, query.Adults)
	for i := range passengers {
		passengers[i] = passengerRequest{Type: "adult"}
	}

	body, err := json.Marshal(envelope[offerRequestBody]{Data: offerRequestBody{
		Slices:     slices,
		Passengers: passengers,
		CabinClass: string(query.Cabin),
	}})
	if err != nil {
		return nil, fmt.Errorf("encoding offer request: %w", err)
	}

	logging.FromContext(ctx).DebugContext(ctx, "searching offers",
		slog.String("origin", query.Origin),
		slog.String("destination", query.Destination),
		slog.String("cabin", string(query.Cabin)),
	)

	resp, err := p.client.Post(ctx, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp, "offer request", "")
	}

	var out envelope[offerRequestResponse]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding offer request response: %w", err)
	}

	return translateOffers(out.Data.Offers), nil
}

// GetOffer fetches a single offer by provider ID. Implements
// ports.FlightProvider.
func (p *Provider) GetOffer(ctx context.Context, offerID string) (*domain.Offer, error) {
	resp, err := p.client.Get(ctx, "/air/offers/"+offerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp, "offer", offerID)
	}

	var out envelope[offer]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding offer response: %w", err)
	}

	translated := translateOffer(&out.Data)

	return &translated, nil
}

// CreateOrder books an offer for the given passengers and returns the
// provider order ID. Implements ports.FlightProvider.
func (p *Provider) CreateOrder(ctx context.Context, offerID string, passengers []domain.Passenger) (string, error) {
	orderPassengers := make([]orderPassenger, 0, len(passengers))
	for _, pax := range passengers {
		orderPassengers = append(orderPassengers, orderPassenger{
			GivenName:   pax.GivenName,
			FamilyName:  pax.FamilyName,
			BornOn:      pax.DateOfBirth.Format("2006-01-02"),
			Email:       pax.Email,
			PhoneNumber: pax.Phone,
		})
	}

	body, err := json.Marshal(envelope[orderBody]{Data: orderBody{
		SelectedOffers: []string{offerID},
		Passengers:     orderPassengers,
		Type:           "instant",
	}})
	if err != nil {
		return "", fmt.Errorf("encoding order request: %w", err)
	}

	logging.FromContext(ctx).DebugContext(ctx, "creating order",
		slog.String("offer_id", offerID),
		slog.Int("passengers", len(passengers)),
	)

	resp, err := p.client.Post(ctx, "/air/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		// A 404 here means the selected offer is gone, not the order.
		if resp.StatusCode == http.StatusNotFound {
			drainBody(resp)
			return "", apperr.NotFound(fmt.Sprintf("offer %s not found", offerID))
		}

		return "", decodeError(resp, "order", offerID)
	}

	var out envelope[order]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding order response: %w", err)
	}

	return out.Data.ID, nil
}

// CancelOrder cancels a previously created order. Implements
// ports.FlightProvider.
func (p *Provider) CancelOrder(ctx context.Context, orderID string) error {
	body, err := json.Marshal(envelope[cancellationBody]{Data: cancellationBody{
		OrderID: orderID,
	}})
	if err != nil {
		return fmt.Errorf("encoding cancellation request: %w", err)
	}

	logging.FromContext(ctx).DebugContext(ctx, "cancelling order",
		slog.String("order_id", orderID),
	)

	resp, err := p.client.Post(ctx, "/air/order_cancellations", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp, "order", orderID)
	}

	var out envelope[cancellation]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decoding cancellation response: %w", err)
	}

	return nil
}

// Name returns the health check name for this provider.
// Implements ports.HealthChecker.
func (p *Provider) Name() string {
	return providerName
}

// Check verifies connectivity to the Duffel API.
// Implements ports.HealthChecker.
func (p *Provider) Check(ctx context.Context) error {
	resp, err := p.client.Get(ctx, "/air/airlines?limit=1")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("duffel returned status %d", resp.StatusCode)
	}

	return nil
}
