package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/smartticket/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type RouteRepository interface {
	List(ctx context.Context) ([]domain.Route, error)
	Search(ctx context.Context, departure, destination string) ([]domain.Route, error)
	// FindBaseFare returns the cheapest base fare for an exact (case-insensitive)
	// departure/destination pair; ok is false when no route matches.
	FindBaseFare(ctx context.Context, departure, destination string) (fare decimal.Decimal, ok bool, err error)
}

type PGRouteRepository struct {
	db *pgxpool.Pool
}

func NewRouteRepository(db *pgxpool.Pool) RouteRepository {
	return &PGRouteRepository{db: db}
}

const routeColumns = `id, departure_location, destination, distance::float8, estimated_time::text, base_price::text`

func (r *PGRouteRepository) List(ctx context.Context) ([]domain.Route, error) {
	return r.query(ctx, `SELECT `+routeColumns+` FROM routes ORDER BY departure_location, destination`)
}

func (r *PGRouteRepository) Search(ctx context.Context, departure, destination string) ([]domain.Route, error) {
	return r.query(ctx, `SELECT `+routeColumns+` FROM routes
		WHERE departure_location ILIKE '%' || $1 || '%' AND destination ILIKE '%' || $2 || '%'
		ORDER BY base_price ASC`, departure, destination)
}

func (r *PGRouteRepository) FindBaseFare(ctx context.Context, departure, destination string) (decimal.Decimal, bool, error) {
	var price string
	err := r.db.QueryRow(ctx, `SELECT base_price::text FROM routes
		WHERE lower(departure_location)=lower($1) AND lower(destination)=lower($2)
		ORDER BY base_price ASC LIMIT 1`, departure, destination).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	fare, err := decimal.NewFromString(price)
	if err != nil {
		return decimal.Zero, false, err
	}
	return fare, true, nil
}

func (r *PGRouteRepository) query(ctx context.Context, query string, args ...any) ([]domain.Route, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routes := make([]domain.Route, 0)
	for rows.Next() {
		var (
			route domain.Route
			price string
		)
		if err := rows.Scan(&route.ID, &route.DepartureLocation, &route.Destination, &route.DistanceKm, &route.EstimatedTime, &price); err != nil {
			return nil, err
		}
		if route.BasePrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

var _ RouteRepository = (*PGRouteRepository)(nil)
