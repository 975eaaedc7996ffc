package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/smartticket/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrStatusChanged is returned by UpdateStatus when the booking exists but is
// no longer in the expected status.
var ErrStatusChanged = errors.New("booking status changed concurrently")

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Booking, error)
	ListAll(ctx context.Context) ([]domain.Booking, error)
	Update(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus) (*domain.Booking, error)
	Delete(ctx context.Context, id int64) error
}

// querier is the part of *pgxpool.Pool the repositories use.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PGBookingRepository struct {
	db querier
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, user_id, full_name, email, phone_number, departure_location, destination,
	travel_date, ticket_type, total_price::text, status, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b     domain.Booking
		price string
	)
	if err := row.Scan(&b.ID, &b.OwnerID, &b.FullName, &b.Email, &b.PhoneNumber, &b.DepartureLocation, &b.Destination,
		&b.TravelDate, &b.TicketClass, &price, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	total, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	b.TotalPrice = total
	return &b, nil
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	return r.db.QueryRow(ctx, `INSERT INTO bookings
		(user_id, full_name, email, phone_number, departure_location, destination, travel_date, ticket_type, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::text::numeric, $10)
		RETURNING id, created_at, updated_at`,
		booking.OwnerID, booking.FullName, booking.Email, booking.PhoneNumber, booking.DepartureLocation, booking.Destination,
		booking.TravelDate, booking.TicketClass, booking.TotalPrice.String(), booking.Status).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
}

func (r *PGBookingRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC`, ownerID)
}

func (r *PGBookingRepository) ListAll(ctx context.Context) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
}

func (r *PGBookingRepository) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// Update replaces every mutable field of the booking in one statement,
// provided the stored status still equals expected. The owner and creation
// time are never written.
func (r *PGBookingRepository) Update(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) (*domain.Booking, error) {
	updated, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings
		SET full_name=$2, email=$3, phone_number=$4, departure_location=$5, destination=$6,
			travel_date=$7, ticket_type=$8, total_price=$9::text::numeric, status=$10, updated_at=now()
		WHERE id=$1 AND status=$11
		RETURNING `+bookingColumns,
		booking.ID, booking.FullName, booking.Email, booking.PhoneNumber, booking.DepartureLocation, booking.Destination,
		booking.TravelDate, booking.TicketClass, booking.TotalPrice.String(), booking.Status, expected))
	return updated, r.statusConflict(ctx, booking.ID, err)
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus) (*domain.Booking, error) {
	updated, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2
		RETURNING `+bookingColumns, id, from, to))
	return updated, r.statusConflict(ctx, id, err)
}

// statusConflict tells a missing row apart from a status guard miss.
func (r *PGBookingRepository) statusConflict(ctx context.Context, id int64, err error) error {
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if _, getErr := r.GetByID(ctx, id); getErr == nil {
		return ErrStatusChanged
	}
	return err
}

func (r *PGBookingRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
