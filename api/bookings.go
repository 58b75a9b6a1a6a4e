package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skyvia/flightcore/internal/domain"
	"github.com/skyvia/flightcore/internal/reservation"
)

type ReservationUseCase interface {
	Reserve(ctx context.Context, in reservation.Input) (*domain.Booking, []reservation.Effect, error)
	Lookup(ctx context.Context, reference string) (*domain.Booking, error)
	History(ctx context.Context, memberID string) ([]reservation.HistoryEntry, error)
}

type EffectDispatcher interface {
	Dispatch(ctx context.Context, effects []reservation.Effect)
}

type BookingHandler struct {
	reservations ReservationUseCase
	dispatcher   EffectDispatcher
}

func NewBookingHandler(reservations ReservationUseCase, dispatcher EffectDispatcher) *BookingHandler {
	return &BookingHandler{reservations: reservations, dispatcher: dispatcher}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:reference", h.get)
	router.GET("/member/:memberId", h.history)
}

type passengerRequest struct {
	FirstName      string `json:"first_name" binding:"required"`
	LastName       string `json:"last_name" binding:"required"`
	DateOfBirth    string `json:"date_of_birth"`
	PassportNumber string `json:"passport_number"`
	Nationality    string `json:"nationality"`
}

type createBookingRequest struct {
	// FlightID accepts a plain id or a legacy "conn_<a>_<b>" composite.
	FlightID     string             `json:"flight_id"`
	Segments     []int64            `json:"flight_segments"`
	Passengers   []passengerRequest `json:"passengers" binding:"required,min=1,dive"`
	ContactEmail string             `json:"contact_email" binding:"required,email"`
	ContactPhone string             `json:"contact_phone"`
	UserID       string             `json:"user_id"`
	MemberID     string             `json:"miles_member_id"`
	UseMiles     bool               `json:"use_miles"`
}

func (r createBookingRequest) selector() (domain.ItinerarySelector, error) {
	if len(r.Segments) > 1 {
		return domain.ConnectionSelector(r.Segments)
	}
	if len(r.Segments) == 1 {
		return domain.DirectSelector(r.Segments[0]), nil
	}
	return domain.ParseSelector(r.FlightID)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	selector, err := req.selector()
	if err != nil {
		respondError(c, err)
		return
	}

	passengers := make([]domain.Passenger, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passengers = append(passengers, domain.Passenger{
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			DateOfBirth:    p.DateOfBirth,
			PassportNumber: p.PassportNumber,
			Nationality:    p.Nationality,
		})
	}

	booking, effects, err := h.reservations.Reserve(c.Request.Context(), reservation.Input{
		Selector:     selector,
		Passengers:   passengers,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		UserID:       req.UserID,
		MemberID:     req.MemberID,
		UseMiles:     req.UseMiles,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// The booking is committed; a client disconnect must not cancel the
	// effect publishes.
	h.dispatcher.Dispatch(context.WithoutCancel(c.Request.Context()), effects)
	c.JSON(http.StatusCreated, booking)
}

func (h *BookingHandler) get(c *gin.Context) {
	booking, err := h.reservations.Lookup(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) history(c *gin.Context) {
	memberID := c.Param("memberId")
	entries, err := h.reservations.History(c.Request.Context(), memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member_id": memberID, "bookings": entries})
}
