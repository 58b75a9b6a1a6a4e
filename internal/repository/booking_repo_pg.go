package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyvia/flightcore/internal/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	InsertPassengers(ctx context.Context, bookingID int64, passengers []domain.Passenger) error
	// Delete is the compensating action: it removes the booking and its
	// passenger rows so a failed reservation leaves nothing visible.
	Delete(ctx context.Context, bookingID int64) error
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
	// ListByMember returns a member's bookings, newest first, without
	// passenger rows.
	ListByMember(ctx context.Context, memberID string) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO bookings (booking_reference, flight_id, flight_segments, user_id, miles_member_id,
			passenger_count, total_price, points_used, payment_method, status, contact_email, contact_phone)
		VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), $6, $7, $8, $9, $10, $11, NULLIF($12,''))
		RETURNING id, created_at`,
		b.Reference, b.FlightID, b.Segments, b.UserID, b.MemberID,
		b.PassengerCount, b.TotalPrice, b.PointsUsed, b.PaymentMethod, b.Status, b.ContactEmail, b.ContactPhone,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "bookings_booking_reference_key" {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateReference, b.Reference)
		}
		return fmt.Errorf("create booking %s: %w", b.Reference, err)
	}
	return nil
}

func (r *PGBookingRepository) InsertPassengers(ctx context.Context, bookingID int64, passengers []domain.Passenger) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("insert passengers: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range passengers {
		p := &passengers[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO passengers (booking_id, first_name, last_name, date_of_birth, passport_number, nationality)
			VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''))
			RETURNING id`,
			bookingID, p.FirstName, p.LastName, p.DateOfBirth, p.PassportNumber, p.Nationality,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("insert passenger %d for booking %d: %w", i+1, bookingID, err)
		}
		p.BookingID = bookingID
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) Delete(ctx context.Context, bookingID int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("delete booking %d: %w", bookingID, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM passengers WHERE booking_id=$1`, bookingID); err != nil {
		return fmt.Errorf("delete passengers for booking %d: %w", bookingID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, bookingID); err != nil {
		return fmt.Errorf("delete booking %d: %w", bookingID, err)
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, booking_reference, flight_id, flight_segments,
			COALESCE(user_id,''), COALESCE(miles_member_id,''),
			passenger_count, total_price, points_used, payment_method, status,
			contact_email, COALESCE(contact_phone,''), created_at
		FROM bookings WHERE booking_reference=$1`, strings.ToUpper(reference))

	var b domain.Booking
	err := row.Scan(&b.ID, &b.Reference, &b.FlightID, &b.Segments,
		&b.UserID, &b.MemberID,
		&b.PassengerCount, &b.TotalPrice, &b.PointsUsed, &b.PaymentMethod, &b.Status,
		&b.ContactEmail, &b.ContactPhone, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking %s", domain.ErrNotFound, reference)
		}
		return nil, fmt.Errorf("get booking %s: %w", reference, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, first_name, last_name,
			COALESCE(date_of_birth::text,''), COALESCE(passport_number,''), COALESCE(nationality,'')
		FROM passengers WHERE booking_id=$1 ORDER BY id`, b.ID)
	if err != nil {
		return nil, fmt.Errorf("get passengers for booking %s: %w", reference, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Passenger
		if err := rows.Scan(&p.ID, &p.BookingID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.PassportNumber, &p.Nationality); err != nil {
			return nil, err
		}
		b.Passengers = append(b.Passengers, p)
	}
	return &b, rows.Err()
}

func (r *PGBookingRepository) ListByMember(ctx context.Context, memberID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, booking_reference, flight_id, flight_segments,
			COALESCE(user_id,''), COALESCE(miles_member_id,''),
			passenger_count, total_price, points_used, payment_method, status,
			contact_email, COALESCE(contact_phone,''), created_at
		FROM bookings WHERE miles_member_id=$1
		ORDER BY created_at DESC`, memberID)
	if err != nil {
		return nil, fmt.Errorf("list bookings for member %s: %w", memberID, err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		err := rows.Scan(&b.ID, &b.Reference, &b.FlightID, &b.Segments,
			&b.UserID, &b.MemberID,
			&b.PassengerCount, &b.TotalPrice, &b.PointsUsed, &b.PaymentMethod, &b.Status,
			&b.ContactEmail, &b.ContactPhone, &b.CreatedAt)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
