package reservation

import "github.com/skyvia/flightcore/internal/loyalty"

// EffectKind selects the downstream channel an effect is dispatched to.
type EffectKind string

const (
	EffectNotifyConfirmation EffectKind = "booking_confirmation"
	EffectCreditMiles        EffectKind = "miles_credit"
	EffectRedeemMiles        EffectKind = "miles_redemption"
)

// Effect is a side effect a successful reservation asks the caller to
// dispatch. The coordinator itself never publishes anything: returning
// the list keeps the reservation protocol testable without brokers.
type Effect struct {
	Kind    EffectKind `json:"kind"`
	Key     string     `json:"key"`
	Payload any        `json:"payload"`
}

// ConfirmationNotice is the payload behind EffectNotifyConfirmation.
type ConfirmationNotice struct {
	Reference      string   `json:"booking_reference"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone,omitempty"`
	FlightNumbers  []string `json:"flight_numbers"`
	Route          string   `json:"route"`
	DepartureTime  string   `json:"departure_time"`
	PassengerCount int      `json:"passenger_count"`
	TotalPrice     float64  `json:"total_price"`
	PointsUsed     int64    `json:"points_used,omitempty"`
	PaymentMethod  string   `json:"payment_method"`
}

func notifyEffect(n ConfirmationNotice) Effect {
	return Effect{Kind: EffectNotifyConfirmation, Key: n.Reference, Payload: n}
}

func creditEffect(req loyalty.CreditRequest) Effect {
	return Effect{Kind: EffectCreditMiles, Key: req.BookingReference, Payload: req}
}

func redeemEffect(req loyalty.RedeemRequest) Effect {
	return Effect{Kind: EffectRedeemMiles, Key: req.BookingReference, Payload: req}
}
