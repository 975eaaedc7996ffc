package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/smartticket/internal/domain"
	"github.com/Domenick1991/smartticket/internal/logger"
	"github.com/Domenick1991/smartticket/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type BookingHandler struct {
	service booking.BookingUseCase
	auth    *Authenticator
	log     logger.Logger
}

type createdBookingResponse struct {
	BookingID  int64  `json:"bookingId"`
	TotalPrice string `json:"totalPrice"`
}

type bookingResponse struct {
	ID                int64     `json:"id"`
	UserID            *int64    `json:"userId"`
	FullName          string    `json:"fullName"`
	Email             string    `json:"email"`
	PhoneNumber       string    `json:"phoneNumber"`
	DepartureLocation string    `json:"departureLocation"`
	Destination       string    `json:"destination"`
	TravelDate        string    `json:"travelDate"`
	TicketType        string    `json:"ticketType"`
	TotalPrice        string    `json:"totalPrice"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
}

func NewBookingHandler(service booking.BookingUseCase, auth *Authenticator, log logger.Logger) *BookingHandler {
	return &BookingHandler{service: service, auth: auth, log: log}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.auth.OptionalAuth(), h.create)
	router.GET("/mine", h.auth.RequireAuth(), h.listMine)
	router.GET("/my-bookings", h.auth.RequireAuth(), h.listMine)
	router.GET("/:id", h.auth.RequireAuth(), h.get)
	router.PUT("/:id", h.auth.RequireAuth(), h.update)
	router.PATCH("/:id/cancel", h.auth.RequireAuth(), h.cancel)
	router.GET("/:id/download", h.auth.PublicAuth(), h.download)
}

// RegisterAdmin mounts the administrative booking endpoints.
func (h *BookingHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.Use(h.auth.RequireAuth(), RequireAdmin())
	router.GET("/bookings", h.listAll)
	router.DELETE("/bookings/:id", h.delete)
}

func (h *BookingHandler) create(c *gin.Context) {
	var input booking.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), requesterFrom(c), input)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	respond(c, http.StatusCreated, "Booking created successfully", createdBookingResponse{
		BookingID:  created.ID,
		TotalPrice: created.TotalPrice.StringFixed(2),
	})
}

func (h *BookingHandler) listMine(c *gin.Context) {
	bookings, err := h.service.ListMyBookings(c.Request.Context(), requesterFrom(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", toBookingResponses(bookings))
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), id, requesterFrom(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", toBookingResponse(*b))
}

func (h *BookingHandler) update(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var input booking.UpdateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	b, err := h.service.UpdateBooking(c.Request.Context(), id, requesterFrom(c), input)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Booking updated successfully", toBookingResponse(*b))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	if _, err := h.service.CancelBooking(c.Request.Context(), id, requesterFrom(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Booking cancelled successfully", nil)
}

func (h *BookingHandler) download(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	artifact, err := h.service.DownloadTicket(c.Request.Context(), id, requesterFrom(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, artifact.FileName))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Content)
}

func (h *BookingHandler) listAll(c *gin.Context) {
	bookings, err := h.service.ListAllBookings(c.Request.Context(), requesterFrom(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", toBookingResponses(bookings))
}

func (h *BookingHandler) delete(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteBooking(c.Request.Context(), id, requesterFrom(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Booking deleted successfully", nil)
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid booking id")
		return 0, false
	}
	return id, true
}

func toBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:                b.ID,
		UserID:            b.OwnerID,
		FullName:          b.FullName,
		Email:             b.Email,
		PhoneNumber:       b.PhoneNumber,
		DepartureLocation: b.DepartureLocation,
		Destination:       b.Destination,
		TravelDate:        b.TravelDate.Format(domain.DateLayout),
		TicketType:        string(b.TicketClass),
		TotalPrice:        b.TotalPrice.StringFixed(2),
		Status:            string(b.Status),
		CreatedAt:         b.CreatedAt,
	}
}

func toBookingResponses(bookings []domain.Booking) []bookingResponse {
	return lo.Map(bookings, func(b domain.Booking, _ int) bookingResponse {
		return toBookingResponse(b)
	})
}
