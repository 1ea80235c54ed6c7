package duffel

import "time"

// Wire DTOs for the Duffel API. These types never leave this package;
// translator.go converts them to domain types.

// envelope wraps every Duffel request and response body.
type envelope[T any] struct {
	Data T `json:"data"`
}

// offerRequestBody is the payload for POST /air/offer_requests.
type offerRequestBody struct {
	Slices     []sliceRequest     `json:"slices"`
	Passengers []passengerRequest `json:"passengers"`
	CabinClass string             `json:"cabin_class"`
}

type sliceRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
}

type passengerRequest struct {
	Type string `json:"type"`
}

// offerRequestResponse is the response from POST /air/offer_requests.
type offerRequestResponse struct {
	ID     string  `json:"id"`
	Offers []offer `json:"offers"`
}

type offer struct {
	ID            string       `json:"id"`
	TotalAmount   string       `json:"total_amount"`
	TotalCurrency string       `json:"total_currency"`
	ExpiresAt     time.Time    `json:"expires_at"`
	Owner         airline      `json:"owner"`
	Slices        []offerSlice `json:"slices"`
}

type airline struct {
	IATACode string `json:"iata_code"`
	Name     string `json:"name"`
}

type offerSlice struct {
	Segments []segment `json:"segments"`
}

type segment struct {
	Origin                       place     `json:"origin"`
	Destination                  place     `json:"destination"`
	DepartingAt                  time.Time `json:"departing_at"`
	ArrivingAt                   time.Time `json:"arriving_at"`
	MarketingCarrier             airline   `json:"marketing_carrier"`
	MarketingCarrierFlightNumber string    `json:"marketing_carrier_flight_number"`
}

type place struct {
	IATACode string `json:"iata_code"`
}

// orderBody is the payload for POST /air/orders.
type orderBody struct {
	SelectedOffers []string         `json:"selected_offers"`
	Passengers     []orderPassenger `json:"passengers"`
	Type           string           `json:"type"`
}

type orderPassenger struct {
	GivenName   string `json:"given_name"`
	FamilyName  string `json:"family_name"`
	BornOn      string `json:"born_on"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

// order is the response from POST /air/orders.
type order struct {
	ID               string `json:"id"`
	BookingReference string `json:"booking_reference"`
}

// cancellationBody is the payload for POST /air/order_cancellations.
type cancellationBody struct {
	OrderID string `json:"order_id"`
}

type cancellation struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
}
