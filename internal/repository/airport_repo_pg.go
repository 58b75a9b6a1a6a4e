package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyvia/flightcore/internal/domain"
)

type AirportRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Airport, error)
	List(ctx context.Context) ([]domain.Airport, error)
	// ListByCodes resolves the given codes, skipping the excluded airport
	// ids. Used by the search engine to pick connection hubs.
	ListByCodes(ctx context.Context, codes []string, exclude []int64) ([]domain.Airport, error)
}

type PGAirportRepository struct {
	db *pgxpool.Pool
}

func NewAirportRepository(db *pgxpool.Pool) AirportRepository {
	return &PGAirportRepository{db: db}
}

func (r *PGAirportRepository) GetByCode(ctx context.Context, code string) (*domain.Airport, error) {
	row := r.db.QueryRow(ctx, `SELECT id, code, name, city, country FROM airports WHERE code=$1`, strings.ToUpper(code))
	var a domain.Airport
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.City, &a.Country); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: airport %s", domain.ErrUnknownAirport, strings.ToUpper(code))
		}
		return nil, fmt.Errorf("get airport %s: %w", code, err)
	}
	return &a, nil
}

func (r *PGAirportRepository) List(ctx context.Context) ([]domain.Airport, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, city, country FROM airports ORDER BY city`)
	if err != nil {
		return nil, fmt.Errorf("list airports: %w", err)
	}
	defer rows.Close()

	airports := make([]domain.Airport, 0)
	for rows.Next() {
		var a domain.Airport
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.City, &a.Country); err != nil {
			return nil, err
		}
		airports = append(airports, a)
	}
	return airports, rows.Err()
}

func (r *PGAirportRepository) ListByCodes(ctx context.Context, codes []string, exclude []int64) ([]domain.Airport, error) {
	upper := make([]string, len(codes))
	for i, c := range codes {
		upper[i] = strings.ToUpper(c)
	}

	// Rows come back in the caller's code order so hub fan-out is
	// repeatable across identical searches.
	rows, err := r.db.Query(ctx, `
		SELECT id, code, name, city, country FROM airports
		WHERE code = ANY($1) AND NOT (id = ANY($2))
		ORDER BY array_position($1::text[], code)`, upper, exclude)
	if err != nil {
		return nil, fmt.Errorf("list airports by code: %w", err)
	}
	defer rows.Close()

	airports := make([]domain.Airport, 0, len(codes))
	for rows.Next() {
		var a domain.Airport
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.City, &a.Country); err != nil {
			return nil, err
		}
		airports = append(airports, a)
	}
	return airports, rows.Err()
}

var _ AirportRepository = (*PGAirportRepository)(nil)
