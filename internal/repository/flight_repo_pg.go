package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyvia/flightcore/internal/domain"
)

// FlightQuery selects scheduled flights between two airports inside a
// departure window with at least MinSeats available. Limit <= 0 returns
// the whole matching set.
type FlightQuery struct {
	OriginID      int64
	DestinationID int64
	From          time.Time
	To            time.Time
	MinSeats      int
	DirectOnly    bool
	Limit         int
	Offset        int
}

type FlightRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, f *domain.Flight) error
	FindScheduled(ctx context.Context, q FlightQuery) ([]domain.Flight, error)
	CountScheduled(ctx context.Context, q FlightQuery) (int, error)
	// DecrementCapacity performs the optimistic conditional update that
	// serializes all writers of available_capacity: the decrement applies
	// only while the stored value still equals what the caller read.
	DecrementCapacity(ctx context.Context, id int64, observed, delta int) error
	RestoreCapacity(ctx context.Context, id int64, delta int) error
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `
	f.id, f.flight_number, f.origin_airport_id, f.destination_airport_id,
	f.departure_time, f.arrival_time, f.duration_minutes,
	f.total_capacity, f.available_capacity, f.base_price, f.predicted_price,
	f.status, f.is_direct, f.created_at, f.updated_at,
	o.id, o.code, o.name, o.city, o.country,
	d.id, d.code, d.name, d.city, d.country`

const flightJoins = `
	FROM flights f
	JOIN airports o ON o.id = f.origin_airport_id
	JOIN airports d ON d.id = f.destination_airport_id`

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	err := row.Scan(
		&f.ID, &f.FlightNumber, &f.OriginID, &f.DestinationID,
		&f.DepartureTime, &f.ArrivalTime, &f.DurationMinutes,
		&f.TotalCapacity, &f.AvailableCapacity, &f.BasePrice, &f.PredictedPrice,
		&f.Status, &f.IsDirect, &f.CreatedAt, &f.UpdatedAt,
		&f.Origin.ID, &f.Origin.Code, &f.Origin.Name, &f.Origin.City, &f.Origin.Country,
		&f.Destination.ID, &f.Destination.Code, &f.Destination.Name, &f.Destination.City, &f.Destination.Country,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT`+flightColumns+flightJoins+` WHERE f.id=$1`, id)
	f, err := scanFlight(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: flight %d", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get flight %d: %w", id, err)
	}
	return f, nil
}

func (r *PGFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO flights (flight_number, origin_airport_id, destination_airport_id,
			departure_time, arrival_time, duration_minutes,
			total_capacity, available_capacity, base_price, predicted_price, status, is_direct)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		f.FlightNumber, f.OriginID, f.DestinationID,
		f.DepartureTime, f.ArrivalTime, f.DurationMinutes,
		f.TotalCapacity, f.AvailableCapacity, f.BasePrice, f.PredictedPrice, f.Status, f.IsDirect,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create flight: %w", err)
	}
	return nil
}

func (r *PGFlightRepository) FindScheduled(ctx context.Context, q FlightQuery) ([]domain.Flight, error) {
	sql := `SELECT` + flightColumns + flightJoins + `
	WHERE f.origin_airport_id=$1 AND f.destination_airport_id=$2
	  AND f.departure_time BETWEEN $3 AND $4
	  AND f.available_capacity >= $5
	  AND f.status = $6`
	args := []any{q.OriginID, q.DestinationID, q.From, q.To, q.MinSeats, domain.FlightStatusScheduled}
	if q.DirectOnly {
		sql += ` AND f.is_direct`
	}
	sql += ` ORDER BY f.departure_time`
	if q.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find scheduled flights: %w", err)
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) CountScheduled(ctx context.Context, q FlightQuery) (int, error) {
	sql := `SELECT count(*) FROM flights f
	WHERE f.origin_airport_id=$1 AND f.destination_airport_id=$2
	  AND f.departure_time BETWEEN $3 AND $4
	  AND f.available_capacity >= $5
	  AND f.status = $6`
	if q.DirectOnly {
		sql += ` AND f.is_direct`
	}

	var total int
	err := r.db.QueryRow(ctx, sql, q.OriginID, q.DestinationID, q.From, q.To, q.MinSeats, domain.FlightStatusScheduled).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count scheduled flights: %w", err)
	}
	return total, nil
}

func (r *PGFlightRepository) DecrementCapacity(ctx context.Context, id int64, observed, delta int) error {
	res, err := r.db.Exec(ctx, `
		UPDATE flights SET available_capacity = available_capacity - $3, updated_at = now()
		WHERE id=$1 AND available_capacity = $2 AND available_capacity >= $3`,
		id, observed, delta)
	if err != nil {
		return fmt.Errorf("decrement capacity for flight %d: %w", id, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: flight %d capacity changed", domain.ErrConcurrencyConflict, id)
	}
	return nil
}

func (r *PGFlightRepository) RestoreCapacity(ctx context.Context, id int64, delta int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE flights SET available_capacity = available_capacity + $2, updated_at = now()
		WHERE id=$1`, id, delta)
	if err != nil {
		return fmt.Errorf("restore capacity for flight %d: %w", id, err)
	}
	return nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
