package domain

import "time"

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "SCHEDULED"
	FlightStatusCancelled FlightStatus = "CANCELLED"
	FlightStatusCompleted FlightStatus = "COMPLETED"
	FlightStatusDelayed   FlightStatus = "DELAYED"
)

// Flight is a stored, directly operated leg. Multi-leg itineraries are a
// search-time construct and never persisted as flights.
type Flight struct {
	ID                int64        `json:"id"`
	FlightNumber      string       `json:"flight_number"`
	OriginID          int64        `json:"-"`
	DestinationID     int64        `json:"-"`
	Origin            Airport      `json:"origin"`
	Destination       Airport      `json:"destination"`
	DepartureTime     time.Time    `json:"departure_time"`
	ArrivalTime       time.Time    `json:"arrival_time"`
	DurationMinutes   int          `json:"duration_minutes"`
	TotalCapacity     int          `json:"total_capacity"`
	AvailableCapacity int          `json:"available_capacity"`
	BasePrice         float64      `json:"base_price"`
	PredictedPrice    float64      `json:"predicted_price"`
	Status            FlightStatus `json:"status"`
	IsDirect          bool         `json:"is_direct"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Price returns the listed fare for the flight: the estimator quote when
// one was stored, the administrative base price otherwise.
func (f *Flight) Price() float64 {
	if f.PredictedPrice > 0 {
		return f.PredictedPrice
	}
	return f.BasePrice
}
