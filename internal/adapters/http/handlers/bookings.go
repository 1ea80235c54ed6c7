package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voyago/booking-api/internal/adapters/http/dto"
	"github.com/voyago/booking-api/internal/app"
	"github.com/voyago/booking-api/internal/domain"
)

// BookingHandler handles booking lifecycle HTTP endpoints.
type BookingHandler struct {
	service *app.BookingService
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(service *app.BookingService) *BookingHandler {
	return &BookingHandler{
		service: service,
	}
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	OfferID    string             `json:"offerId"    validate:"required"`
	Passengers []PassengerRequest `json:"passengers" validate:"required,min=1,dive"`
}

// PassengerRequest identifies a traveller on a booking request.
type PassengerRequest struct {
	GivenName   string `json:"givenName"   validate:"required"`
	FamilyName  string `json:"familyName"  validate:"required"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Email       string `json:"email"       validate:"required,email"`
	Phone       string `json:"phone"       validate:"omitempty"`
}

// toInput converts the request to the application-layer input.
// Dates have already passed datetime validation.
func (r *CreateBookingRequest) toInput() app.CreateBookingInput {
	passengers := make([]domain.Passenger, 0, len(r.Passengers))
	for _, p := range r.Passengers {
		born, _ := time.Parse(dateLayout, p.DateOfBirth)
		passengers = append(passengers, domain.Passenger{
			GivenName:   p.GivenName,
			FamilyName:  p.FamilyName,
			DateOfBirth: born,
			Email:       p.Email,
			Phone:       p.Phone,
		})
	}

	return app.CreateBookingInput{
		OfferID:    r.OfferID,
		Passengers: passengers,
	}
}

// BookingResponse is the HTTP response structure for a booking.
// The provider order ID is internal and deliberately not exposed.
type BookingResponse struct {
	ID          string              `json:"id"`
	Reference   string              `json:"reference"`
	OfferID     string              `json:"offerId"`
	Status      string              `json:"status"`
	Passengers  []PassengerResponse `json:"passengers"`
	TotalAmount string              `json:"totalAmount"`
	Currency    string              `json:"currency"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// PassengerResponse is a traveller on a booking response.
type PassengerResponse struct {
	GivenName   string `json:"givenName"`
	FamilyName  string `json:"familyName"`
	DateOfBirth string `json:"dateOfBirth"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
}

// toBookingResponse converts a domain Booking to an HTTP response.
func toBookingResponse(b *domain.Booking) BookingResponse {
	passengers := make([]PassengerResponse, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		passengers = append(passengers, PassengerResponse{
			GivenName:   p.GivenName,
			FamilyName:  p.FamilyName,
			DateOfBirth: p.DateOfBirth.Format(dateLayout),
			Email:       p.Email,
			Phone:       p.Phone,
		})
	}

	return BookingResponse{
		ID:          b.ID,
		Reference:   b.Reference,
		OfferID:     b.OfferID,
		Status:      string(b.Status),
		Passengers:  passengers,
		TotalAmount: b.TotalAmount,
		Currency:    b.Currency,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// toBookingResponses converts a slice of domain bookings.
func toBookingResponses(bookings []domain.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}

	return out
}

// CreateBooking handles POST /api/v1/bookings
// Books an offer with the flight provider and persists the booking.
//
// @Summary Create a booking
// @Description Books a flight offer for the given passengers
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body CreateBookingRequest true "Booking request"
// @Success 201 {object} dto.DataResponse[BookingResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.service.CreateBooking(c.Request.Context(), req.toInput())
	if err != nil {
		dto.RespondError(c, err)
		return
	}

	dto.Respond(c, http.StatusCreated, toBookingResponse(booking))
}

// GetBooking handles GET /api/v1/bookings/:id
// Returns a booking by its internal identifier.
//
// @Summary Get a booking by ID
// @Description Fetches a booking by its internal identifier
// @Tags bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} dto.DataResponse[BookingResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.RespondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, toBookingResponse(booking))
}

// ListBookings handles GET /api/v1/bookings
// Returns a page of bookings, newest first.
//
// @Summary List bookings
// @Description Lists bookings with cursor-based pagination
// @Tags bookings
// @Produce json
// @Param cursor query string false "Opaque cursor from a previous page"
// @Param limit query int false "Page size (1-100, default 20)"
// @Success 200 {object} dto.DataResponse[dto.PaginatedResponse[BookingResponse]]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	var page dto.PaginationRequest
	if err := dto.BindQueryAndValidate(c, &page); err != nil {
		respondBindError(c, err)
		return
	}

	bookings, nextCursor, err := h.service.ListBookings(c.Request.Context(), page.Cursor, page.GetLimit())
	if err != nil {
		dto.RespondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, dto.NewPaginatedResponse(toBookingResponses(bookings), nextCursor))
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
// Cancels the provider order and transitions the booking to cancelled.
//
// @Summary Cancel a booking
// @Description Cancels the provider order and marks the booking cancelled
// @Tags bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} dto.DataResponse[BookingResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	booking, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.RespondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, toBookingResponse(booking))
}

// RegisterBookingRoutes registers booking routes on the given router group.
func (h *BookingHandler) RegisterBookingRoutes(rg *gin.RouterGroup) {
	bookings := rg.Group("/bookings")
	bookings.POST("", h.CreateBooking)
	bookings.GET("", h.ListBookings)
	bookings.GET("/:id", h.GetBooking)
	bookings.POST("/:id/cancel", h.CancelBooking)
}
