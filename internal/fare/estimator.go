// Package fare implements the deterministic rule-based fare estimator used
// both for display quotes and for ranking connection candidates. It is a
// pure computation: no state, no I/O, and the clock is injected so
// identical inputs always produce identical quotes.
package fare

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/skyvia/flightcore/internal/domain"
)

// Coefficients tune the estimator. Values outside the documented ranges
// are ignored in favor of the built-in route-based defaults.
type Coefficients struct {
	DurationCoef           float64 // $/minute override, honored only in [0.20, 0.70]
	PeakHourSurcharge      float64
	WeekendSurcharge       float64
	DirectFlightPremium    float64
	LastMinuteCoef         float64
	AdvanceBookingDiscount float64 // per discount-day, capped at 23 days
	InternationalMult      float64
	BusyMonthMult          float64
	OffPeakDiscount        float64
}

func DefaultCoefficients() Coefficients {
	return Coefficients{
		DurationCoef:           0.18,
		PeakHourSurcharge:      30,
		WeekendSurcharge:       40,
		DirectFlightPremium:    50,
		LastMinuteCoef:         0.85,
		AdvanceBookingDiscount: 0.015,
		InternationalMult:      1.9,
		BusyMonthMult:          1.15,
		OffPeakDiscount:        0.15,
	}
}

const baseConfidence = 0.95

// Input describes one flight leg to price.
type Input struct {
	DurationMinutes int
	DepartureTime   time.Time
	IsDirect        bool
	OriginCode      string
	DestinationCode string
	// BasePrice, when positive, is blended into the computed price at a
	// fixed 60/40 ratio so an administrative price can steer the quote.
	BasePrice float64
}

// Factors is the explainable breakdown returned with every quote.
type Factors struct {
	BaseCost            float64 `json:"base_cost"`
	DurationCost        float64 `json:"duration_cost"`
	RouteDistanceKM     float64 `json:"route_distance_km"`
	IsPremiumRoute      bool    `json:"is_premium_route"`
	PeakHourSurcharge   float64 `json:"peak_hour_surcharge"`
	OffPeakDiscountPct  float64 `json:"off_peak_discount_pct"`
	WeekendSurcharge    float64 `json:"weekend_surcharge"`
	DirectFlightPremium float64 `json:"direct_flight_premium"`
	BusyMonthMult       float64 `json:"busy_month_multiplier"`
	InternationalMult   float64 `json:"international_multiplier"`
	DaysUntilDeparture  int     `json:"days_until_departure"`
	IsLastMinute        bool    `json:"is_last_minute"`
	RouteType           string  `json:"route_type"`
	Route               string  `json:"route"`
}

// Quote is a priced leg with a confidence score in [0.75, 0.98].
type Quote struct {
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	Confidence float64 `json:"confidence"`
	Factors    Factors `json:"factors"`
}

type Option func(*Estimator)

// WithCoefficients replaces the default coefficient set.
func WithCoefficients(c Coefficients) Option {
	return func(e *Estimator) { e.coef = c }
}

// WithClock fixes the reference time used for advance-booking pricing.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) { e.now = now }
}

type Estimator struct {
	coef Coefficients
	now  func() time.Time
}

func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{coef: DefaultCoefficients(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate prices a flight leg. Factor application order is fixed for
// reproducibility; see Factors for the resulting breakdown.
func (e *Estimator) Estimate(in Input) (*Quote, error) {
	if in.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", domain.ErrInvalidInput)
	}
	if in.DepartureTime.IsZero() {
		return nil, fmt.Errorf("%w: departure time is required", domain.ErrInvalidInput)
	}

	origin := strings.ToUpper(in.OriginCode)
	dest := strings.ToUpper(in.DestinationCode)
	duration := float64(in.DurationMinutes)

	now := e.now()
	daysUntil := int(math.Floor(in.DepartureTime.Sub(now).Hours() / 24))
	if daysUntil < 0 {
		daysUntil = 0
	}
	hour := in.DepartureTime.Hour()
	weekday := in.DepartureTime.Weekday()
	month := in.DepartureTime.Month()

	isPeakHour := (hour >= 6 && hour <= 9) || (hour >= 17 && hour <= 20)
	isOffPeak := hour >= 22 || hour < 5
	isWeekend := weekday == time.Saturday || weekday == time.Sunday
	isBusyMonth := month == time.January || month == time.July || month == time.August || month == time.December

	originCountry, originKnown := airportCountries[origin]
	destCountry, destKnown := airportCountries[dest]
	// Fall back to a duration heuristic when either country is unknown:
	// legs over three hours are most likely international.
	var international bool
	if originKnown && destKnown {
		international = originCountry != destCountry
	} else {
		international = in.DurationMinutes > 180
	}

	routeKey := origin + "-" + dest
	reverseKey := dest + "-" + origin
	distance, haveDistance := routeDistances[routeKey]
	if !haveDistance {
		distance, haveDistance = routeDistances[reverseKey]
	}
	if !haveDistance {
		// ~800 km/h average commercial cruise speed.
		distance = duration / 60 * 800
	}
	_, premium := premiumRoutes[routeKey]
	if !premium {
		_, premium = premiumRoutes[reverseKey]
	}

	baseCost := math.Max(120, distance*0.08)
	if premium {
		baseCost = math.Max(200, distance*0.13)
	}
	if in.DurationMinutes < 120 {
		baseCost = math.Max(80, duration*0.8)
	}

	durationCoef := 0.30
	if international {
		durationCoef = 0.40
		if premium {
			durationCoef = 0.60
		}
	}
	if e.coef.DurationCoef >= 0.20 && e.coef.DurationCoef <= 0.70 {
		durationCoef = e.coef.DurationCoef
	}
	durationCost := duration * durationCoef

	price := baseCost + durationCost

	if premium {
		price *= 1.22
	}
	if isPeakHour {
		price += e.coef.PeakHourSurcharge
	}
	if isOffPeak {
		price *= 1 - e.coef.OffPeakDiscount
	}
	if isWeekend {
		price += e.coef.WeekendSurcharge
	}
	if in.IsDirect {
		price += e.coef.DirectFlightPremium
	}
	if isBusyMonth {
		price *= e.coef.BusyMonthMult
	}
	if daysUntil < 7 {
		urgency := float64(7-daysUntil) / 7
		price *= 1 + e.coef.LastMinuteCoef*urgency
	}
	if daysUntil > 7 && daysUntil <= 30 {
		discountDays := math.Min(float64(daysUntil-7), 23)
		price *= 1 - e.coef.AdvanceBookingDiscount*discountDays
	}

	intlMult := 1.0
	if international {
		if premium {
			intlMult = e.coef.InternationalMult
			if intlMult < 1.8 {
				intlMult = 1.95
			}
		} else {
			intlMult = e.coef.InternationalMult
			if intlMult < 1.3 {
				intlMult = 1.7
			}
		}
		price *= intlMult
	}

	if in.BasePrice > 0 {
		price = price*0.6 + in.BasePrice*0.4
	}

	price = round2(price)

	// Sanity floors and ceilings keyed on route type.
	var floor float64
	if international {
		floor = math.Max(150, duration*0.5)
	} else {
		floor = math.Max(80, duration*0.4)
	}
	price = math.Max(price, floor)

	perMinuteCeiling := 5.0
	if international {
		perMinuteCeiling = 8.0
	}
	price = math.Min(price, duration*perMinuteCeiling)

	confidence := baseConfidence
	if !originKnown || !destKnown {
		confidence *= 0.95
	}
	if in.DurationMinutes < 60 || in.DurationMinutes > 720 {
		confidence *= 0.92
	}
	if perMinute := price / duration; perMinute < 0.2 || perMinute > 3.0 {
		confidence *= 0.90
	}
	confidence = math.Max(0.75, math.Min(0.98, confidence))

	routeType := "domestic"
	if international {
		routeType = "international"
	}
	route := "estimated"
	if originKnown && destKnown {
		route = originCountry + " - " + destCountry
	}

	factors := Factors{
		BaseCost:            round2(baseCost),
		DurationCost:        round2(durationCost),
		RouteDistanceKM:     math.Round(distance),
		IsPremiumRoute:      premium,
		DaysUntilDeparture:  daysUntil,
		IsLastMinute:        daysUntil < 7,
		RouteType:           routeType,
		Route:               route,
		BusyMonthMult:       1,
		InternationalMult:   intlMult,
		DirectFlightPremium: 0,
	}
	if isPeakHour {
		factors.PeakHourSurcharge = e.coef.PeakHourSurcharge
	}
	if isOffPeak {
		factors.OffPeakDiscountPct = round2(e.coef.OffPeakDiscount * 100)
	}
	if isWeekend {
		factors.WeekendSurcharge = e.coef.WeekendSurcharge
	}
	if in.IsDirect {
		factors.DirectFlightPremium = e.coef.DirectFlightPremium
	}
	if isBusyMonth {
		factors.BusyMonthMult = e.coef.BusyMonthMult
	}

	return &Quote{
		Price:      price,
		Currency:   "USD",
		Confidence: round2(confidence),
		Factors:    factors,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
