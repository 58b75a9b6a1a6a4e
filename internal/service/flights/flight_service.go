// Package flights serves the read and admin side of the flight catalog:
// cached flight and airport lookups, flight creation, and price quotes.
package flights

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/skyvia/flightcore/internal/cache"
	"github.com/skyvia/flightcore/internal/domain"
	"github.com/skyvia/flightcore/internal/fare"
	"github.com/skyvia/flightcore/internal/repository"
)

const maxFlightCapacity = 1000

var flightNumberRe = regexp.MustCompile(`^[A-Z]{2}\d{1,4}$`)

type FlightUseCase interface {
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Airports(ctx context.Context) ([]domain.Airport, error)
	Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error)
	Estimate(ctx context.Context, input EstimateInput) (*fare.Quote, error)
}

type Estimator interface {
	Estimate(in fare.Input) (*fare.Quote, error)
}

type FlightService struct {
	flights     repository.FlightRepository
	airports    repository.AirportRepository
	estimator   Estimator
	store       cache.Store
	flightTTL   time.Duration
	airportsTTL time.Duration
}

type CreateFlightInput struct {
	FlightNumber  string    `json:"flight_number"`
	OriginCode    string    `json:"origin"`
	DestCode      string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	TotalCapacity int       `json:"total_capacity"`
	BasePrice     float64   `json:"base_price"`
}

type EstimateInput struct {
	OriginCode      string    `json:"origin"`
	DestCode        string    `json:"destination"`
	DepartureTime   time.Time `json:"departure_time"`
	DurationMinutes int       `json:"duration_minutes"`
	IsDirect        bool      `json:"is_direct"`
	BasePrice       float64   `json:"base_price,omitempty"`
}

func NewFlightService(
	flights repository.FlightRepository,
	airports repository.AirportRepository,
	estimator Estimator,
	store cache.Store,
	flightTTL, airportsTTL time.Duration,
) *FlightService {
	return &FlightService{
		flights:     flights,
		airports:    airports,
		estimator:   estimator,
		store:       store,
		flightTTL:   flightTTL,
		airportsTTL: airportsTTL,
	}
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	key := cache.FlightKey(id)
	var cached domain.Flight
	if s.store.Get(ctx, key, &cached) {
		return &cached, nil
	}

	flight, err := s.flights.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.store.Set(ctx, key, flight, s.flightTTL)
	return flight, nil
}

func (s *FlightService) Airports(ctx context.Context) ([]domain.Airport, error) {
	var cached []domain.Airport
	if s.store.Get(ctx, cache.AirportsKey, &cached) {
		return cached, nil
	}

	airports, err := s.airports.List(ctx)
	if err != nil {
		return nil, err
	}
	s.store.Set(ctx, cache.AirportsKey, airports, s.airportsTTL)
	return airports, nil
}

// Create validates and persists a new scheduled flight, pricing it once
// with the estimator so searches can rank it without re-quoting.
func (s *FlightService) Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	origin, err := s.airports.GetByCode(ctx, input.OriginCode)
	if err != nil {
		return nil, err
	}
	dest, err := s.airports.GetByCode(ctx, input.DestCode)
	if err != nil {
		return nil, err
	}
	if origin.ID == dest.ID {
		return nil, fmt.Errorf("%w: origin and destination must differ", domain.ErrValidation)
	}

	duration := int(input.ArrivalTime.Sub(input.DepartureTime).Minutes())
	flight := &domain.Flight{
		FlightNumber:      input.FlightNumber,
		OriginID:          origin.ID,
		DestinationID:     dest.ID,
		Origin:            *origin,
		Destination:       *dest,
		DepartureTime:     input.DepartureTime,
		ArrivalTime:       input.ArrivalTime,
		DurationMinutes:   duration,
		TotalCapacity:     input.TotalCapacity,
		AvailableCapacity: input.TotalCapacity,
		BasePrice:         input.BasePrice,
		Status:            domain.FlightStatusScheduled,
		IsDirect:          true,
	}

	quote, err := s.estimator.Estimate(fare.Input{
		DurationMinutes: duration,
		DepartureTime:   input.DepartureTime,
		IsDirect:        true,
		OriginCode:      origin.Code,
		DestinationCode: dest.Code,
		BasePrice:       input.BasePrice,
	})
	if err != nil {
		return nil, err
	}
	flight.PredictedPrice = quote.Price

	if err := s.flights.Create(ctx, flight); err != nil {
		return nil, err
	}

	// New inventory invalidates every cached search on the route.
	s.store.InvalidateByPrefix(ctx, cache.SearchPrefix)
	return flight, nil
}

func (s *FlightService) Estimate(ctx context.Context, input EstimateInput) (*fare.Quote, error) {
	return s.estimator.Estimate(fare.Input{
		DurationMinutes: input.DurationMinutes,
		DepartureTime:   input.DepartureTime,
		IsDirect:        input.IsDirect,
		OriginCode:      input.OriginCode,
		DestinationCode: input.DestCode,
		BasePrice:       input.BasePrice,
	})
}

func validateCreate(input CreateFlightInput) error {
	if !flightNumberRe.MatchString(input.FlightNumber) {
		return fmt.Errorf("%w: flight number must match two letters followed by 1-4 digits", domain.ErrValidation)
	}
	if input.OriginCode == "" || input.DestCode == "" {
		return fmt.Errorf("%w: origin and destination are required", domain.ErrInvalidInput)
	}
	if input.DepartureTime.IsZero() || input.ArrivalTime.IsZero() {
		return fmt.Errorf("%w: departure and arrival times are required", domain.ErrInvalidInput)
	}
	if !input.ArrivalTime.After(input.DepartureTime) {
		return fmt.Errorf("%w: arrival must be after departure", domain.ErrValidation)
	}
	if input.TotalCapacity < 1 || input.TotalCapacity > maxFlightCapacity {
		return fmt.Errorf("%w: capacity must be between 1 and %d", domain.ErrValidation, maxFlightCapacity)
	}
	if input.BasePrice <= 0 {
		return fmt.Errorf("%w: base price must be positive", domain.ErrValidation)
	}
	return nil
}

var _ FlightUseCase = (*FlightService)(nil)
