// Package email renders and delivers booking confirmations. Delivery is
// a stub that logs the rendered message; the worker owns retries.
package email

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/skyvia/flightcore/internal/reservation"
)

type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, notice reservation.ConfirmationNotice) error {
	if notice.Email == "" {
		return fmt.Errorf("confirmation %s has no recipient", notice.Reference)
	}

	s.logger.Info("sending booking confirmation",
		zap.String("to", notice.Email),
		zap.String("reference", notice.Reference),
		zap.String("subject", Subject(notice)))
	return nil
}

func Subject(notice reservation.ConfirmationNotice) string {
	return fmt.Sprintf("Booking %s confirmed: %s", notice.Reference, notice.Route)
}

// Body renders the plain-text confirmation.
func Body(notice reservation.ConfirmationNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your booking %s is confirmed.\n\n", notice.Reference)
	fmt.Fprintf(&b, "Route: %s\n", notice.Route)
	fmt.Fprintf(&b, "Flights: %s\n", strings.Join(notice.FlightNumbers, ", "))
	fmt.Fprintf(&b, "Departure: %s\n", notice.DepartureTime)
	fmt.Fprintf(&b, "Passengers: %d\n", notice.PassengerCount)
	if notice.PaymentMethod == "MILES" {
		fmt.Fprintf(&b, "Paid with %d miles\n", notice.PointsUsed)
	} else {
		fmt.Fprintf(&b, "Total: %.2f USD\n", notice.TotalPrice)
	}
	return b.String()
}
