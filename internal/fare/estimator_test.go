package fare

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyvia/flightcore/internal/domain"
)

var testNow = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func newTestEstimator() *Estimator {
	return NewEstimator(WithClock(func() time.Time { return testNow }))
}

func TestEstimate_Deterministic(t *testing.T) {
	e := newTestEstimator()

	in := Input{
		DurationMinutes: 240,
		DepartureTime:   time.Date(2026, time.March, 20, 8, 30, 0, 0, time.UTC),
		IsDirect:        true,
		OriginCode:      "IST",
		DestinationCode: "DXB",
	}

	first, err := e.Estimate(in)
	require.NoError(t, err)
	second, err := e.Estimate(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEstimate_InvalidInput(t *testing.T) {
	e := newTestEstimator()

	_, err := e.Estimate(Input{DurationMinutes: 0, DepartureTime: testNow})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.Estimate(Input{DurationMinutes: -10, DepartureTime: testNow})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.Estimate(Input{DurationMinutes: 120})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEstimate_PremiumInternationalRoute(t *testing.T) {
	e := newTestEstimator()

	quote, err := e.Estimate(Input{
		DurationMinutes: 240,
		DepartureTime:   time.Date(2026, time.March, 20, 7, 0, 0, 0, time.UTC), // Friday, peak hour
		IsDirect:        true,
		OriginCode:      "IST",
		DestinationCode: "DXB",
	})
	require.NoError(t, err)

	assert.Equal(t, "USD", quote.Currency)
	assert.True(t, quote.Factors.IsPremiumRoute)
	assert.Equal(t, "international", quote.Factors.RouteType)
	assert.Equal(t, "Turkey - UAE", quote.Factors.Route)
	assert.InDelta(t, 3100, quote.Factors.RouteDistanceKM, 0.5)
	assert.Equal(t, 30.0, quote.Factors.PeakHourSurcharge)
	assert.Equal(t, 50.0, quote.Factors.DirectFlightPremium)
	assert.GreaterOrEqual(t, quote.Factors.InternationalMult, 1.8)

	// Within the international per-minute sanity bounds.
	assert.GreaterOrEqual(t, quote.Price, 150.0)
	assert.LessOrEqual(t, quote.Price, 240*8.0)
}

func TestEstimate_AdvanceBookingCheaperThanLastMinute(t *testing.T) {
	e := newTestEstimator()

	// Same weekday and hour so only the booking horizon differs.
	base := Input{
		DurationMinutes: 300,
		IsDirect:        true,
		OriginCode:      "AAA",
		DestinationCode: "BBB",
	}

	lastMinute := base
	lastMinute.DepartureTime = testNow.AddDate(0, 0, 2).Add(12 * time.Hour)
	nearTerm := base
	nearTerm.DepartureTime = testNow.AddDate(0, 0, 9).Add(12 * time.Hour)
	advance := base
	advance.DepartureTime = testNow.AddDate(0, 0, 23).Add(12 * time.Hour)

	qLast, err := e.Estimate(lastMinute)
	require.NoError(t, err)
	qNear, err := e.Estimate(nearTerm)
	require.NoError(t, err)
	qAdvance, err := e.Estimate(advance)
	require.NoError(t, err)

	assert.Greater(t, qLast.Price, qNear.Price)
	assert.Greater(t, qNear.Price, qAdvance.Price)
	assert.True(t, qLast.Factors.IsLastMinute)
	assert.False(t, qAdvance.Factors.IsLastMinute)
}

func TestEstimate_BasePriceBlend(t *testing.T) {
	e := newTestEstimator()

	in := Input{
		DurationMinutes: 300,
		DepartureTime:   time.Date(2026, time.March, 18, 12, 0, 0, 0, time.UTC),
		IsDirect:        true,
		OriginCode:      "AAA",
		DestinationCode: "BBB",
	}

	plain, err := e.Estimate(in)
	require.NoError(t, err)

	in.BasePrice = 500
	blended, err := e.Estimate(in)
	require.NoError(t, err)

	assert.InDelta(t, plain.Price*0.6+500*0.4, blended.Price, 0.05)
}

func TestEstimate_ConfidenceBounds(t *testing.T) {
	e := newTestEstimator()

	known, err := e.Estimate(Input{
		DurationMinutes: 240,
		DepartureTime:   time.Date(2026, time.March, 18, 12, 0, 0, 0, time.UTC),
		OriginCode:      "IST",
		DestinationCode: "LHR",
	})
	require.NoError(t, err)

	unknown, err := e.Estimate(Input{
		DurationMinutes: 900, // extreme duration
		DepartureTime:   time.Date(2026, time.March, 18, 12, 0, 0, 0, time.UTC),
		OriginCode:      "XXA",
		DestinationCode: "XXB",
	})
	require.NoError(t, err)

	assert.Greater(t, known.Confidence, unknown.Confidence)
	for _, q := range []*Quote{known, unknown} {
		assert.GreaterOrEqual(t, q.Confidence, 0.75)
		assert.LessOrEqual(t, q.Confidence, 0.98)
	}
}

func TestEstimate_CoefficientOverrideRange(t *testing.T) {
	in := Input{
		DurationMinutes: 200,
		DepartureTime:   time.Date(2026, time.March, 18, 12, 0, 0, 0, time.UTC),
		OriginCode:      "XXA",
		DestinationCode: "XXB",
	}

	// 0.18 is below the honored range, so the route-based $/minute applies.
	defaultQuote, err := newTestEstimator().Estimate(in)
	require.NoError(t, err)

	overridden := NewEstimator(
		WithClock(func() time.Time { return testNow }),
		WithCoefficients(func() Coefficients {
			c := DefaultCoefficients()
			c.DurationCoef = 0.65
			return c
		}()),
	)
	boosted, err := overridden.Estimate(in)
	require.NoError(t, err)

	assert.Greater(t, boosted.Factors.DurationCost, defaultQuote.Factors.DurationCost)
}
