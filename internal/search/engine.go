// Package search builds ranked direct and one-stop itineraries from the
// flat flight table. Hub fan-out runs concurrently; a failed hub query
// only shrinks the candidate set and never fails the search.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skyvia/flightcore/config"
	"github.com/skyvia/flightcore/internal/cache"
	"github.com/skyvia/flightcore/internal/domain"
	"github.com/skyvia/flightcore/internal/fare"
	"github.com/skyvia/flightcore/internal/repository"
)

var defaultHubs = []string{"IST", "SAW", "DXB", "LHR", "FRA", "CDG"}

const (
	defaultMaxConnections = 20
	defaultFirstLegLimit  = 5
	defaultSecondLegLimit = 3
	// First legs considered for second-leg expansion across all hubs.
	firstLegFanoutCap = 30
	// A connection departs no later than 12h after the first leg lands.
	maxConnectionGap = 12 * time.Hour

	defaultPageLimit = 100
)

// Params are the normalized search inputs.
type Params struct {
	Origin      string `json:"from"`
	Destination string `json:"to"`
	Date        string `json:"date,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Passengers  int    `json:"passengers"`
	Flexible    bool   `json:"flexible"`
	DirectOnly  bool   `json:"direct_only"`
	Page        int    `json:"page"`
	Limit       int    `json:"limit"`
}

func (p Params) isRange() bool { return p.StartDate != "" && p.EndDate != "" }

func (p Params) cacheQuery() cache.SearchQuery {
	date := p.Date
	if p.isRange() {
		date = p.StartDate + "_" + p.EndDate
	}
	return cache.SearchQuery{
		Origin:      strings.ToUpper(p.Origin),
		Destination: strings.ToUpper(p.Destination),
		Date:        date,
		Passengers:  p.Passengers,
		Flexible:    p.Flexible,
		DirectOnly:  p.DirectOnly,
		Page:        p.Page,
		Limit:       p.Limit,
	}
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type Result struct {
	Itineraries []domain.Itinerary `json:"flights"`
	Params      Params             `json:"search_params"`
	Pagination  Pagination         `json:"pagination"`
	Cached      bool               `json:"cached"`
}

type Engine struct {
	airports  repository.AirportRepository
	flights   repository.FlightRepository
	estimator *fare.Estimator
	store     cache.Store
	logger    *zap.Logger

	hubs           []string
	maxConnections int
	firstLegLimit  int
	secondLegLimit int
	timeout        time.Duration
	searchTTL      time.Duration
}

func NewEngine(
	airports repository.AirportRepository,
	flights repository.FlightRepository,
	estimator *fare.Estimator,
	store cache.Store,
	cfg config.SearchConfig,
	searchTTL time.Duration,
	logger *zap.Logger,
) *Engine {
	e := &Engine{
		airports:       airports,
		flights:        flights,
		estimator:      estimator,
		store:          store,
		logger:         logger,
		hubs:           cfg.Hubs,
		maxConnections: cfg.MaxConnections,
		firstLegLimit:  cfg.FirstLegLimit,
		secondLegLimit: cfg.SecondLegLimit,
		timeout:        cfg.Timeout(),
		searchTTL:      searchTTL,
	}
	if len(e.hubs) == 0 {
		e.hubs = defaultHubs
	}
	if e.maxConnections <= 0 {
		e.maxConnections = defaultMaxConnections
	}
	if e.firstLegLimit <= 0 {
		e.firstLegLimit = defaultFirstLegLimit
	}
	if e.secondLegLimit <= 0 {
		e.secondLegLimit = defaultSecondLegLimit
	}
	return e
}

// Search returns ranked itineraries for the route: direct flights ordered
// by departure, then one-stop connections ordered by score. Results are
// cached under a deterministic key for the configured TTL.
func (e *Engine) Search(ctx context.Context, p Params) (*Result, error) {
	if p.Origin == "" || p.Destination == "" {
		return nil, fmt.Errorf("%w: origin and destination are required", domain.ErrInvalidInput)
	}
	if p.Passengers <= 0 {
		p.Passengers = 1
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	p.Origin = strings.ToUpper(p.Origin)
	p.Destination = strings.ToUpper(p.Destination)

	window, err := BuildWindow(p.Date, p.StartDate, p.EndDate, p.Flexible)
	if err != nil {
		return nil, err
	}

	key := cache.SearchKey(p.cacheQuery())
	var cached Result
	if e.store.Get(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	origin, err := e.airports.GetByCode(ctx, p.Origin)
	if err != nil {
		return nil, err
	}
	dest, err := e.airports.GetByCode(ctx, p.Destination)
	if err != nil {
		return nil, err
	}

	offset := (p.Page - 1) * p.Limit
	directQ := repository.FlightQuery{
		OriginID:      origin.ID,
		DestinationID: dest.ID,
		From:          window.From,
		To:            window.To,
		MinSeats:      p.Passengers,
	}
	// Date-range queries return the full direct set so clients can
	// paginate across days themselves; merged results are paginated here.
	paginateDirectQuery := p.DirectOnly && !p.isRange()
	if paginateDirectQuery {
		directQ.Limit = p.Limit
		directQ.Offset = offset
	}

	direct, err := e.flights.FindScheduled(ctx, directQ)
	if err != nil {
		return nil, err
	}

	itineraries := make([]domain.Itinerary, 0, len(direct))
	for i := range direct {
		itineraries = append(itineraries, directItinerary(&direct[i]))
	}

	total := len(itineraries)
	if paginateDirectQuery {
		if total, err = e.flights.CountScheduled(ctx, directQ); err != nil {
			return nil, err
		}
	}

	if !p.DirectOnly {
		connections := e.buildConnections(ctx, origin, dest, window, p.Passengers)
		itineraries = append(itineraries, connections...)
		total = len(itineraries)
		itineraries = paginate(itineraries, offset, p.Limit)
	}

	result := &Result{
		Itineraries: itineraries,
		Params:      p,
		Pagination: Pagination{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: (total + p.Limit - 1) / p.Limit,
		},
	}

	e.store.Set(ctx, key, result, e.searchTTL)
	return result, nil
}

// buildConnections fans out over the hub airports, joins first and second
// legs under the layover constraints, prices each candidate and returns
// up to maxConnections of them ordered by score. Sub-query failures are
// logged and tolerated.
func (e *Engine) buildConnections(ctx context.Context, origin, dest *domain.Airport, window Window, passengers int) []domain.Itinerary {
	hubs, err := e.airports.ListByCodes(ctx, e.hubs, []int64{origin.ID, dest.ID})
	if err != nil {
		e.logger.Warn("hub lookup failed, skipping connections", zap.Error(err))
		return nil
	}
	if len(hubs) == 0 {
		return nil
	}

	// Repositories make no ordering promise, but equal-score connections
	// tie-break on hub position, so pin hubs to the configured order.
	position := make(map[string]int, len(e.hubs))
	for i, code := range e.hubs {
		position[code] = i
	}
	sort.SliceStable(hubs, func(i, j int) bool {
		return position[hubs[i].Code] < position[hubs[j].Code]
	})

	// First legs per hub, fetched concurrently. Results stay slotted by
	// hub index so discovery order is deterministic.
	firstLegsByHub := make([][]domain.Flight, len(hubs))
	var wg sync.WaitGroup
	for i, hub := range hubs {
		wg.Add(1)
		go func(i int, hub domain.Airport) {
			defer wg.Done()
			legs, err := e.flights.FindScheduled(ctx, repository.FlightQuery{
				OriginID:      origin.ID,
				DestinationID: hub.ID,
				From:          window.From,
				To:            window.To,
				MinSeats:      passengers,
				Limit:         e.firstLegLimit,
			})
			if err != nil {
				e.logger.Warn("first-leg query failed", zap.String("hub", hub.Code), zap.Error(err))
				return
			}
			firstLegsByHub[i] = legs
		}(i, hub)
	}
	wg.Wait()

	type legPair struct {
		first domain.Flight
		hub   domain.Airport
	}
	firstLegs := make([]legPair, 0)
	for i, legs := range firstLegsByHub {
		for _, leg := range legs {
			firstLegs = append(firstLegs, legPair{first: leg, hub: hubs[i]})
		}
	}
	if len(firstLegs) > firstLegFanoutCap {
		firstLegs = firstLegs[:firstLegFanoutCap]
	}
	if len(firstLegs) == 0 {
		return nil
	}

	secondLegsByFirst := make([][]domain.Flight, len(firstLegs))
	for i, pair := range firstLegs {
		wg.Add(1)
		go func(i int, pair legPair) {
			defer wg.Done()
			arrival := pair.first.ArrivalTime
			to := arrival.Add(maxConnectionGap)
			if window.To.Before(to) {
				to = window.To
			}
			legs, err := e.flights.FindScheduled(ctx, repository.FlightQuery{
				OriginID:      pair.hub.ID,
				DestinationID: dest.ID,
				From:          arrival.Add(domain.MinLayoverMinutes * time.Minute),
				To:            to,
				MinSeats:      passengers,
				Limit:         e.secondLegLimit,
			})
			if err != nil {
				e.logger.Warn("second-leg query failed", zap.String("hub", pair.hub.Code), zap.Error(err))
				return
			}
			secondLegsByFirst[i] = legs
		}(i, pair)
	}
	wg.Wait()

	connections := make([]domain.Itinerary, 0, e.maxConnections)
outer:
	for i, pair := range firstLegs {
		for j := range secondLegsByFirst[i] {
			if len(connections) >= e.maxConnections {
				break outer
			}
			second := &secondLegsByFirst[i][j]
			layover := int(second.DepartureTime.Sub(pair.first.ArrivalTime).Minutes())
			if layover < domain.MinLayoverMinutes || layover > domain.MaxLayoverMinutes {
				continue
			}
			conn, err := e.connect(&pair.first, second, &pair.hub, layover)
			if err != nil {
				e.logger.Warn("dropping unpriceable connection",
					zap.Int64("first", pair.first.ID), zap.Int64("second", second.ID), zap.Error(err))
				continue
			}
			connections = append(connections, *conn)
		}
	}

	// Stable so equal scores keep discovery order.
	sort.SliceStable(connections, func(i, j int) bool {
		return connections[i].Score < connections[j].Score
	})
	return connections
}

func (e *Engine) connect(first, second *domain.Flight, hub *domain.Airport, layoverMinutes int) (*domain.Itinerary, error) {
	firstQuote, err := e.estimator.Estimate(segmentInput(first))
	if err != nil {
		return nil, err
	}
	secondQuote, err := e.estimator.Estimate(segmentInput(second))
	if err != nil {
		return nil, err
	}

	totalPrice := firstQuote.Price + secondQuote.Price
	totalDuration := int(second.ArrivalTime.Sub(first.DepartureTime).Minutes())

	return &domain.Itinerary{
		ID:                fmt.Sprintf("conn_%d_%d", first.ID, second.ID),
		FlightNumber:      first.FlightNumber + " + " + second.FlightNumber,
		Origin:            first.Origin,
		Destination:       second.Destination,
		DepartureTime:     first.DepartureTime.Format(time.RFC3339),
		ArrivalTime:       second.ArrivalTime.Format(time.RFC3339),
		DurationMinutes:   totalDuration,
		TotalCapacity:     min(first.TotalCapacity, second.TotalCapacity),
		AvailableCapacity: min(first.AvailableCapacity, second.AvailableCapacity),
		BasePrice:         round2(first.BasePrice + second.BasePrice),
		PredictedPrice:    round2(totalPrice),
		IsDirect:          false,
		Status:            domain.FlightStatusScheduled,
		Segments: []domain.Segment{
			{
				FlightID:        first.ID,
				FlightNumber:    first.FlightNumber,
				Origin:          first.Origin,
				Destination:     first.Destination,
				DepartureTime:   first.DepartureTime.Format(time.RFC3339),
				ArrivalTime:     first.ArrivalTime.Format(time.RFC3339),
				DurationMinutes: first.DurationMinutes,
			},
			{
				FlightID:        second.ID,
				FlightNumber:    second.FlightNumber,
				Origin:          second.Origin,
				Destination:     second.Destination,
				DepartureTime:   second.DepartureTime.Format(time.RFC3339),
				ArrivalTime:     second.ArrivalTime.Format(time.RFC3339),
				DurationMinutes: second.DurationMinutes,
				LayoverMinutes:  layoverMinutes,
			},
		},
		ConnectionAirport: hub,
		LayoverMinutes:    layoverMinutes,
		Score:             totalPrice + 0.1*float64(totalDuration) + 0.05*float64(layoverMinutes),
	}, nil
}

func segmentInput(f *domain.Flight) fare.Input {
	return fare.Input{
		DurationMinutes: f.DurationMinutes,
		DepartureTime:   f.DepartureTime,
		IsDirect:        f.IsDirect,
		OriginCode:      f.Origin.Code,
		DestinationCode: f.Destination.Code,
		BasePrice:       f.BasePrice,
	}
}

func directItinerary(f *domain.Flight) domain.Itinerary {
	return domain.Itinerary{
		ID:                fmt.Sprintf("%d", f.ID),
		FlightNumber:      f.FlightNumber,
		Origin:            f.Origin,
		Destination:       f.Destination,
		DepartureTime:     f.DepartureTime.Format(time.RFC3339),
		ArrivalTime:       f.ArrivalTime.Format(time.RFC3339),
		DurationMinutes:   f.DurationMinutes,
		TotalCapacity:     f.TotalCapacity,
		AvailableCapacity: f.AvailableCapacity,
		BasePrice:         f.BasePrice,
		PredictedPrice:    f.Price(),
		IsDirect:          true,
		Status:            f.Status,
	}
}

func paginate(items []domain.Itinerary, offset, limit int) []domain.Itinerary {
	if offset >= len(items) {
		return []domain.Itinerary{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
