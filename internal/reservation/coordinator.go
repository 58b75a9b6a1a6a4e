// Package reservation implements the multi-segment booking protocol:
// validate the itinerary, price it, persist the booking, then decrement
// seat capacity segment by segment with optimistic guards. Any failure
// after the first write triggers full compensation so a reservation is
// either completely visible or leaves no trace.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skyvia/flightcore/internal/cache"
	"github.com/skyvia/flightcore/internal/domain"
	"github.com/skyvia/flightcore/internal/fare"
	"github.com/skyvia/flightcore/internal/loyalty"
	"github.com/skyvia/flightcore/internal/repository"
)

const (
	maxPassengersPerBooking = 9

	// Create retries on a reference collision, drawing a fresh code
	// each time.
	referenceAttempts = 3
)

// Estimator prices one leg. Satisfied by *fare.Estimator.
type Estimator interface {
	Estimate(in fare.Input) (*fare.Quote, error)
}

// BalanceChecker is the slice of the loyalty client the coordinator
// needs synchronously: redemption itself is dispatched as an effect.
type BalanceChecker interface {
	Balance(ctx context.Context, memberID string) (int64, error)
}

type Input struct {
	Selector     domain.ItinerarySelector
	Passengers   []domain.Passenger
	ContactEmail string
	ContactPhone string
	UserID       string
	MemberID     string
	UseMiles     bool
}

type Coordinator struct {
	flights  repository.FlightRepository
	bookings repository.BookingRepository
	fares    Estimator
	loyalty  BalanceChecker
	store    cache.Store
	logger   *zap.Logger
}

func NewCoordinator(
	flights repository.FlightRepository,
	bookings repository.BookingRepository,
	fares Estimator,
	loyalty BalanceChecker,
	store cache.Store,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		flights:  flights,
		bookings: bookings,
		fares:    fares,
		loyalty:  loyalty,
		store:    store,
		logger:   logger,
	}
}

// Reserve books every segment of the selected itinerary atomically and
// returns the confirmed booking together with the side effects the
// caller must dispatch. On any error no seat stays taken and no booking
// row survives.
func (c *Coordinator) Reserve(ctx context.Context, in Input) (*domain.Booking, []Effect, error) {
	if err := validateInput(in); err != nil {
		return nil, nil, err
	}

	segments, err := c.fetchSegments(ctx, in.Selector.SegmentIDs(), len(in.Passengers))
	if err != nil {
		return nil, nil, err
	}

	total, err := c.price(segments, len(in.Passengers))
	if err != nil {
		return nil, nil, err
	}

	booking := &domain.Booking{
		FlightID:       segments[0].ID,
		Segments:       in.Selector.SegmentIDs(),
		UserID:         in.UserID,
		MemberID:       in.MemberID,
		PassengerCount: len(in.Passengers),
		TotalPrice:     total,
		PaymentMethod:  domain.PaymentMethodCash,
		Status:         domain.BookingStatusConfirmed,
		ContactEmail:   in.ContactEmail,
		ContactPhone:   in.ContactPhone,
	}

	if in.UseMiles {
		points := int64(math.Ceil(total * domain.PointsPerCurrencyUnit))
		balance, err := c.loyalty.Balance(ctx, in.MemberID)
		if err != nil {
			return nil, nil, err
		}
		if balance < points {
			return nil, nil, fmt.Errorf("%w: insufficient miles balance, need %d have %d", domain.ErrValidation, points, balance)
		}
		booking.PaymentMethod = domain.PaymentMethodMiles
		booking.PointsUsed = points
		booking.TotalPrice = 0
	}

	if err := c.create(ctx, booking); err != nil {
		return nil, nil, err
	}
	if err := c.bookings.InsertPassengers(ctx, booking.ID, in.Passengers); err != nil {
		c.compensate(ctx, booking.ID, nil, booking.PassengerCount)
		return nil, nil, err
	}
	booking.Passengers = in.Passengers

	// Seats are taken one segment at a time, each guarded by the capacity
	// value read during validation. A concurrent booking on any segment
	// fails the guard and rolls back everything taken so far.
	taken := make([]*domain.Flight, 0, len(segments))
	for _, seg := range segments {
		if err := c.flights.DecrementCapacity(ctx, seg.ID, seg.AvailableCapacity, booking.PassengerCount); err != nil {
			c.compensate(ctx, booking.ID, taken, booking.PassengerCount)
			if errors.Is(err, domain.ErrConcurrencyConflict) {
				return nil, nil, fmt.Errorf("seats on flight %s were taken concurrently: %w", seg.FlightNumber, err)
			}
			return nil, nil, err
		}
		taken = append(taken, seg)
	}

	c.invalidate(ctx, segments)

	c.logger.Info("reservation confirmed",
		zap.String("reference", booking.Reference),
		zap.Int64s("segments", booking.Segments),
		zap.Int("passengers", booking.PassengerCount),
		zap.String("payment_method", string(booking.PaymentMethod)))

	return booking, c.effects(booking, segments, total), nil
}

// create inserts the booking under a fresh reference, drawing a new one
// on a collision. No seat has been taken yet, so the retry is free of
// side effects.
func (c *Coordinator) create(ctx context.Context, b *domain.Booking) error {
	var err error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		b.Reference = newReference()
		err = c.bookings.Create(ctx, b)
		if err == nil || !errors.Is(err, domain.ErrDuplicateReference) {
			return err
		}
		c.logger.Warn("booking reference collision",
			zap.String("reference", b.Reference), zap.Int("attempt", attempt+1))
	}
	return err
}

// Lookup returns a booking with its passengers by reference.
func (c *Coordinator) Lookup(ctx context.Context, reference string) (*domain.Booking, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: booking reference is required", domain.ErrInvalidInput)
	}
	return c.bookings.GetByReference(ctx, reference)
}

// HistoryEntry pairs a booking with its flight details and the miles
// it earned for the member.
type HistoryEntry struct {
	Booking     domain.Booking  `json:"booking"`
	Flights     []domain.Flight `json:"flights,omitempty"`
	MilesEarned int64           `json:"miles_earned"`
}

// History returns a member's bookings, newest first, each enriched with
// its flight details and earned miles. A segment that no longer
// resolves is skipped rather than failing the listing.
func (c *Coordinator) History(ctx context.Context, memberID string) ([]HistoryEntry, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, fmt.Errorf("%w: member id is required", domain.ErrInvalidInput)
	}

	bookings, err := c.bookings.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(bookings))
	for _, b := range bookings {
		entry := HistoryEntry{Booking: b}
		for _, id := range b.Segments {
			flight, err := c.flights.GetByID(ctx, id)
			if err != nil {
				c.logger.Warn("history flight lookup failed",
					zap.Int64("flight_id", id), zap.String("reference", b.Reference), zap.Error(err))
				continue
			}
			entry.Flights = append(entry.Flights, *flight)
			entry.MilesEarned += int64(flight.DurationMinutes * b.PassengerCount)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func validateInput(in Input) error {
	if in.Selector.IsZero() {
		return fmt.Errorf("%w: itinerary is required", domain.ErrInvalidInput)
	}
	if in.ContactEmail == "" {
		return fmt.Errorf("%w: contact email is required", domain.ErrInvalidInput)
	}
	if len(in.Passengers) == 0 {
		return fmt.Errorf("%w: at least one passenger is required", domain.ErrInvalidInput)
	}
	if len(in.Passengers) > maxPassengersPerBooking {
		return fmt.Errorf("%w: at most %d passengers per booking", domain.ErrValidation, maxPassengersPerBooking)
	}
	for i, p := range in.Passengers {
		if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
			return fmt.Errorf("%w: passenger %d needs a first and last name", domain.ErrValidation, i+1)
		}
	}
	if in.UseMiles && in.MemberID == "" {
		return fmt.Errorf("%w: miles payment requires a member id", domain.ErrInvalidInput)
	}
	return nil
}

// fetchSegments loads every segment and verifies the itinerary is
// bookable: all legs scheduled, enough seats on each, and consecutive
// legs joined within the layover bounds.
func (c *Coordinator) fetchSegments(ctx context.Context, ids []int64, passengers int) ([]*domain.Flight, error) {
	segments := make([]*domain.Flight, 0, len(ids))
	for _, id := range ids {
		f, err := c.flights.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if f.Status != domain.FlightStatusScheduled {
			return nil, fmt.Errorf("%w: flight %s is not open for booking", domain.ErrValidation, f.FlightNumber)
		}
		if f.AvailableCapacity < passengers {
			return nil, fmt.Errorf("%w: flight %s has only %d seats left", domain.ErrValidation, f.FlightNumber, f.AvailableCapacity)
		}
		segments = append(segments, f)
	}

	for i := 1; i < len(segments); i++ {
		prev, next := segments[i-1], segments[i]
		if next.OriginID != prev.DestinationID {
			return nil, fmt.Errorf("%w: segments %s and %s do not connect", domain.ErrValidation, prev.FlightNumber, next.FlightNumber)
		}
		layover := int(next.DepartureTime.Sub(prev.ArrivalTime).Minutes())
		if layover < domain.MinLayoverMinutes || layover > domain.MaxLayoverMinutes {
			return nil, fmt.Errorf("%w: layover of %d minutes between %s and %s is out of bounds", domain.ErrValidation, layover, prev.FlightNumber, next.FlightNumber)
		}
	}
	return segments, nil
}

func (c *Coordinator) price(segments []*domain.Flight, passengers int) (float64, error) {
	var perSeat float64
	for _, seg := range segments {
		quote, err := c.fares.Estimate(fare.Input{
			DurationMinutes: seg.DurationMinutes,
			DepartureTime:   seg.DepartureTime,
			IsDirect:        seg.IsDirect,
			OriginCode:      seg.Origin.Code,
			DestinationCode: seg.Destination.Code,
			BasePrice:       seg.BasePrice,
		})
		if err != nil {
			return 0, err
		}
		perSeat += quote.Price
	}
	return math.Round(perSeat*float64(passengers)*100) / 100, nil
}

// compensate undoes a partially applied reservation: capacity first,
// then the booking and passenger rows. Failures here are logged, not
// returned, because the original error is what the caller needs.
func (c *Coordinator) compensate(ctx context.Context, bookingID int64, taken []*domain.Flight, passengers int) {
	for _, seg := range taken {
		if err := c.flights.RestoreCapacity(ctx, seg.ID, passengers); err != nil {
			c.logger.Error("capacity restore failed during rollback",
				zap.Int64("flight_id", seg.ID), zap.Int64("booking_id", bookingID), zap.Error(err))
		}
	}
	if err := c.bookings.Delete(ctx, bookingID); err != nil {
		c.logger.Error("booking delete failed during rollback",
			zap.Int64("booking_id", bookingID), zap.Error(err))
	}
}

func (c *Coordinator) invalidate(ctx context.Context, segments []*domain.Flight) {
	keys := make([]string, 0, len(segments))
	for _, seg := range segments {
		keys = append(keys, cache.FlightKey(seg.ID))
	}
	c.store.Invalidate(ctx, keys...)
	c.store.InvalidateByPrefix(ctx, cache.SearchPrefix)
}

func (c *Coordinator) effects(b *domain.Booking, segments []*domain.Flight, total float64) []Effect {
	numbers := make([]string, 0, len(segments))
	totalDuration := 0
	for _, seg := range segments {
		numbers = append(numbers, seg.FlightNumber)
		totalDuration += seg.DurationMinutes
	}

	effects := []Effect{notifyEffect(ConfirmationNotice{
		Reference:      b.Reference,
		Email:          b.ContactEmail,
		Phone:          b.ContactPhone,
		FlightNumbers:  numbers,
		Route:          segments[0].Origin.Code + " - " + segments[len(segments)-1].Destination.Code,
		DepartureTime:  segments[0].DepartureTime.Format(time.RFC3339),
		PassengerCount: b.PassengerCount,
		TotalPrice:     b.TotalPrice,
		PointsUsed:     b.PointsUsed,
		PaymentMethod:  string(b.PaymentMethod),
	})}

	if b.MemberID != "" {
		effects = append(effects, creditEffect(loyalty.CreditRequest{
			MemberID:         b.MemberID,
			BookingReference: b.Reference,
			Points:           int64(totalDuration * b.PassengerCount),
		}))
	}
	if b.PaymentMethod == domain.PaymentMethodMiles {
		effects = append(effects, redeemEffect(loyalty.RedeemRequest{
			MemberID:         b.MemberID,
			BookingReference: b.Reference,
			Points:           b.PointsUsed,
		}))
	}
	return effects
}

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newReference maps a fresh UUID onto a 6-character alphanumeric code.
func newReference() string {
	id := uuid.New()
	ref := make([]byte, 6)
	for i := range ref {
		ref[i] = referenceAlphabet[int(id[i])%len(referenceAlphabet)]
	}
	return string(ref)
}
