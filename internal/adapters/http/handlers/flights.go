package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voyago/booking-api/internal/adapters/http/dto"
	"github.com/voyago/booking-api/internal/app"
	"github.com/voyago/booking-api/internal/domain"
)

const dateLayout = "2006-01-02"

// FlightHandler handles flight search HTTP endpoints.
type FlightHandler struct {
	service *app.FlightService
}

// NewFlightHandler creates a new flight handler.
func NewFlightHandler(service *app.FlightService) *FlightHandler {
	return &FlightHandler{
		service: service,
	}
}

// SearchFlightsRequest is the HTTP request body for a flight search.
// An empty cabin searches all cabin classes.
type SearchFlightsRequest struct {
	Origin        string `json:"origin"        validate:"required,len=3"`
	Destination   string `json:"destination"   validate:"required,len=3"`
	DepartureDate string `json:"departureDate" validate:"required,datetime=2006-01-02"`
	ReturnDate    string `json:"returnDate"    validate:"omitempty,datetime=2006-01-02"`
	Adults        int    `json:"adults"        validate:"required,gte=1,lte=9"`
	Cabin         string `json:"cabin"         validate:"omitempty,oneof=economy premium_economy business first"`
}

// toSearchQuery converts the request to a domain search query.
// Dates have already passed datetime validation.
func (r *SearchFlightsRequest) toSearchQuery() domain.SearchQuery {
	departure, _ := time.Parse(dateLayout, r.DepartureDate)

	query := domain.SearchQuery{
		Origin:        r.Origin,
		Destination:   r.Destination,
		DepartureDate: departure,
		Adults:        r.Adults,
		Cabin:         domain.CabinClass(r.Cabin),
	}

	if r.ReturnDate != "" {
		ret, _ := time.Parse(dateLayout, r.ReturnDate)
		query.ReturnDate = &ret
	}

	return query
}

// OfferResponse is the HTTP response structure for a flight offer.
type OfferResponse struct {
	ID          string            `json:"id"`
	Provider    string            `json:"provider"`
	TotalAmount string            `json:"totalAmount"`
	Currency    string            `json:"currency"`
	ExpiresAt   time.Time         `json:"expiresAt"`
	Segments    []SegmentResponse `json:"segments"`
}

// SegmentResponse is a single flight leg within an offer response.
type SegmentResponse struct {
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	DepartureAt     time.Time `json:"departureAt"`
	ArrivalAt       time.Time `json:"arrivalAt"`
	Carrier         string    `json:"carrier"`
	FlightNumber    string    `json:"flightNumber"`
	DurationMinutes int       `json:"durationMinutes"`
}

// toOfferResponse converts a domain Offer to an HTTP response.
func toOfferResponse(o *domain.Offer) OfferResponse {
	segments := make([]SegmentResponse, 0, len(o.Segments))
	for _, s := range o.Segments {
		segments = append(segments, SegmentResponse{
			Origin:          s.Origin,
			Destination:     s.Destination,
			DepartureAt:     s.DepartureAt,
			ArrivalAt:       s.ArrivalAt,
			Carrier:         s.Carrier,
			FlightNumber:    s.FlightNumber,
			DurationMinutes: int(s.Duration.Minutes()),
		})
	}

	return OfferResponse{
		ID:          o.ID,
		Provider:    o.Provider,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		ExpiresAt:   o.ExpiresAt,
		Segments:    segments,
	}
}

// toOfferResponses converts a slice of domain offers.
func toOfferResponses(offers []domain.Offer) []OfferResponse {
	out := make([]OfferResponse, 0, len(offers))
	for i := range offers {
		out = append(out, toOfferResponse(&offers[i]))
	}

	return out
}

// SearchFlights handles POST /api/v1/flights/search
// Searches the flight provider for bookable offers.
//
// @Summary Search flight offers
// @Description Searches for bookable flight offers matching the query
// @Tags flights
// @Accept json
// @Produce json
// @Param request body SearchFlightsRequest true "Search parameters"
// @Success 200 {object} dto.DataResponse[[]OfferResponse]
// @Failure 422 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/flights/search [post]
func (h *FlightHandler) SearchFlights(c *gin.Context) {
	var req SearchFlightsRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	query := req.toSearchQuery()

	var (
		offers []domain.Offer
		err    error
	)

	if req.Cabin == "" {
		offers, err = h.service.SearchAllCabins(c.Request.Context(), query)
	} else {
		offers, err = h.service.Search(c.Request.Context(), query)
	}

	if err != nil {
		dto.RespondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, toOfferResponses(offers))
}

// GetOffer handles GET /api/v1/offers/:id
// Returns a single offer by its provider identifier.
//
// @Summary Get an offer by ID
// @Description Fetches a single flight offer from the provider
// @Tags flights
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} dto.DataResponse[OfferResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/offers/{id} [get]
func (h *FlightHandler) GetOffer(c *gin.Context) {
	offer, err := h.service.GetOffer(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.RespondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, toOfferResponse(offer))
}

// RegisterFlightRoutes registers flight routes on the given router group.
func (h *FlightHandler) RegisterFlightRoutes(rg *gin.RouterGroup) {
	rg.POST("/flights/search", h.SearchFlights)
	rg.GET("/offers/:id", h.GetOffer)
}

// respondBindError maps a binding or validation failure to an error response.
// Malformed JSON gets a 400; tag validation failures get a 422 with
// field-level messages.
func respondBindError(c *gin.Context, err error) {
	if fieldErrors := dto.ValidationErrors(err); len(fieldErrors) > 0 {
		dto.RespondValidationErrors(c, fieldErrors)
		return
	}

	if errors.Is(err, dto.ErrBinding) {
		dto.RespondBadRequest(c, "invalid request body")
		return
	}

	dto.RespondBadRequest(c, "invalid request")
}
