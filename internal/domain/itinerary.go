package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Layover bounds for a valid connection, in minutes.
const (
	MinLayoverMinutes = 60
	MaxLayoverMinutes = 720
)

// Itinerary is a search-time result: either a single direct flight or two
// flights joined at a connection airport. It is never persisted.
type Itinerary struct {
	ID                string       `json:"id"`
	FlightNumber      string       `json:"flight_number"`
	Origin            Airport      `json:"origin"`
	Destination       Airport      `json:"destination"`
	DepartureTime     string       `json:"departure_time"`
	ArrivalTime       string       `json:"arrival_time"`
	DurationMinutes   int          `json:"duration_minutes"`
	TotalCapacity     int          `json:"total_capacity"`
	AvailableCapacity int          `json:"available_capacity"`
	BasePrice         float64      `json:"base_price"`
	PredictedPrice    float64      `json:"predicted_price"`
	IsDirect          bool         `json:"is_direct"`
	Status            FlightStatus `json:"status"`

	// Connection-only fields.
	Segments          []Segment `json:"segments,omitempty"`
	ConnectionAirport *Airport  `json:"connection_airport,omitempty"`
	LayoverMinutes    int       `json:"layover_minutes,omitempty"`
	Score             float64   `json:"connection_score,omitempty"`
}

// Segment is one leg of a connecting itinerary.
type Segment struct {
	FlightID        int64   `json:"flight_id"`
	FlightNumber    string  `json:"flight_number"`
	Origin          Airport `json:"origin"`
	Destination     Airport `json:"destination"`
	DepartureTime   string  `json:"departure_time"`
	ArrivalTime     string  `json:"arrival_time"`
	DurationMinutes int     `json:"duration_minutes"`
	LayoverMinutes  int     `json:"layover_minutes,omitempty"`
}

// ItinerarySelector identifies what a client is booking: one direct flight
// or an ordered list of connecting segments. It replaces the composite
// "conn_<a>_<b>" string ids that used to be parsed back out of the search
// response.
type ItinerarySelector struct {
	segments []int64
}

func DirectSelector(flightID int64) ItinerarySelector {
	return ItinerarySelector{segments: []int64{flightID}}
}

func ConnectionSelector(segmentIDs []int64) (ItinerarySelector, error) {
	if len(segmentIDs) < 2 {
		return ItinerarySelector{}, fmt.Errorf("%w: a connection needs at least two segments", ErrInvalidInput)
	}
	return ItinerarySelector{segments: segmentIDs}, nil
}

// ParseSelector accepts either a plain flight id or a legacy composite
// connection id of the form "conn_<a>_<b>".
func ParseSelector(raw string) (ItinerarySelector, error) {
	if rest, ok := strings.CutPrefix(raw, "conn_"); ok {
		parts := strings.Split(rest, "_")
		ids := make([]int64, 0, len(parts))
		for _, p := range parts {
			id, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return ItinerarySelector{}, fmt.Errorf("%w: malformed connection id %q", ErrInvalidInput, raw)
			}
			ids = append(ids, id)
		}
		return ConnectionSelector(ids)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ItinerarySelector{}, fmt.Errorf("%w: malformed flight id %q", ErrInvalidInput, raw)
	}
	return DirectSelector(id), nil
}

func (s ItinerarySelector) IsDirect() bool { return len(s.segments) == 1 }

// SegmentIDs returns the flight ids in travel order. A direct selector
// yields a single id.
func (s ItinerarySelector) SegmentIDs() []int64 { return s.segments }

func (s ItinerarySelector) IsZero() bool { return len(s.segments) == 0 }
