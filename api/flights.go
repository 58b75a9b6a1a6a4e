package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skyvia/flightcore/internal/fare"
	"github.com/skyvia/flightcore/internal/search"
	"github.com/skyvia/flightcore/internal/service/flights"
)

// Searcher is the slice of the search engine the handler needs.
type Searcher interface {
	Search(ctx context.Context, p search.Params) (*search.Result, error)
}

type FlightHandler struct {
	flights flights.FlightUseCase
	engine  Searcher
}

func NewFlightHandler(flights flights.FlightUseCase, engine Searcher) *FlightHandler {
	return &FlightHandler{flights: flights, engine: engine}
}

func (h *FlightHandler) Register(router *gin.RouterGroup, searchLimiter gin.HandlerFunc) {
	router.GET("/search", searchLimiter, h.search)
	router.GET("/airports", h.airports)
	router.GET("/:id", h.get)
	router.POST("/", h.create)
	router.POST("/predict-price", h.predictPrice)
}

type searchRequest struct {
	From       string `form:"from" binding:"required,iata"`
	To         string `form:"to" binding:"required,iata"`
	Date       string `form:"date"`
	StartDate  string `form:"start_date"`
	EndDate    string `form:"end_date"`
	Passengers int    `form:"passengers"`
	Flexible   bool   `form:"flexible"`
	DirectOnly bool   `form:"direct_only"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit" binding:"omitempty,max=100"`
}

func (h *FlightHandler) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.Search(c.Request.Context(), search.Params{
		Origin:      req.From,
		Destination: req.To,
		Date:        req.Date,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Passengers:  req.Passengers,
		Flexible:    req.Flexible,
		DirectOnly:  req.DirectOnly,
		Page:        req.Page,
		Limit:       req.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FlightHandler) airports(c *gin.Context) {
	airports, err := h.flights.Airports(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"airports": airports})
}

func (h *FlightHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flight id"})
		return
	}
	flight, err := h.flights.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

type createFlightRequest struct {
	FlightNumber  string    `json:"flight_number" binding:"required"`
	Origin        string    `json:"origin" binding:"required,iata"`
	Destination   string    `json:"destination" binding:"required,iata"`
	DepartureTime time.Time `json:"departure_time" binding:"required"`
	ArrivalTime   time.Time `json:"arrival_time" binding:"required"`
	TotalCapacity int       `json:"total_capacity" binding:"required"`
	BasePrice     float64   `json:"base_price" binding:"required"`
}

func (h *FlightHandler) create(c *gin.Context) {
	var req createFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flight, err := h.flights.Create(c.Request.Context(), flights.CreateFlightInput{
		FlightNumber:  req.FlightNumber,
		OriginCode:    req.Origin,
		DestCode:      req.Destination,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		TotalCapacity: req.TotalCapacity,
		BasePrice:     req.BasePrice,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, flight)
}

type predictPriceRequest struct {
	Origin          string    `json:"origin" binding:"required,iata"`
	Destination     string    `json:"destination" binding:"required,iata"`
	DepartureTime   time.Time `json:"departure_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,gt=0"`
	IsDirect        bool      `json:"is_direct"`
	BasePrice       float64   `json:"base_price"`
}

type predictPriceResponse struct {
	PredictedPrice float64      `json:"predicted_price"`
	Currency       string       `json:"currency"`
	Confidence     float64      `json:"confidence"`
	Factors        fare.Factors `json:"factors"`
}

func (h *FlightHandler) predictPrice(c *gin.Context) {
	var req predictPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quote, err := h.flights.Estimate(c.Request.Context(), flights.EstimateInput{
		OriginCode:      req.Origin,
		DestCode:        req.Destination,
		DepartureTime:   req.DepartureTime,
		DurationMinutes: req.DurationMinutes,
		IsDirect:        req.IsDirect,
		BasePrice:       req.BasePrice,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, predictPriceResponse{
		PredictedPrice: quote.Price,
		Currency:       quote.Currency,
		Confidence:     quote.Confidence,
		Factors:        quote.Factors,
	})
}
