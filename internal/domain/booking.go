package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "CASH"
	PaymentMethodMiles PaymentMethod = "MILES"
)

// PointsPerCurrencyUnit converts a cash price into the loyalty points
// required to redeem it (1 currency unit = 100 points).
const PointsPerCurrencyUnit = 100

// Booking is created atomically with its passenger rows and hard-deleted
// only as a compensating action when a later reservation step fails.
type Booking struct {
	ID             int64         `json:"id"`
	Reference      string        `json:"booking_reference"`
	FlightID       int64         `json:"flight_id"`
	Segments       []int64       `json:"flight_segments,omitempty"`
	UserID         string        `json:"user_id,omitempty"`
	MemberID       string        `json:"miles_member_id,omitempty"`
	PassengerCount int           `json:"passenger_count"`
	TotalPrice     float64       `json:"total_price"`
	PointsUsed     int64         `json:"points_used"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	Status         BookingStatus `json:"status"`
	ContactEmail   string        `json:"contact_email"`
	ContactPhone   string        `json:"contact_phone,omitempty"`
	Passengers     []Passenger   `json:"passengers,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Passenger rows belong to exactly one booking and are never mutated
// after creation.
type Passenger struct {
	ID             int64  `json:"id"`
	BookingID      int64  `json:"-"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	PassportNumber string `json:"passport_number,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
}
