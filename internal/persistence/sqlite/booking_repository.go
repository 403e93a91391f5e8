package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raj29code/playohcanada/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
//
// Admission is decided inside a single transaction: the capacity check
// and the insert commit together, so two racing joins for the last spot
// cannot both succeed. The partial unique index on (schedule_id,
// user_id) backstops the duplicate check for registered users.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const bookingColumns = `id, schedule_id, user_id, guest_name, guest_mobile, created_at`

// InsertBooking claims a spot in the booking's schedule, atomically with
// the capacity and duplicate checks. Contended writes are retried when
// the database is momentarily locked.
func (r *BookingRepository) InsertBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" || booking.ScheduleID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var maxPlayers int
			err := r.helper.QueryRowTx(tx,
				`SELECT max_players FROM schedules WHERE id = ?`, booking.ScheduleID,
			).Scan(&maxPlayers)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return persistence.ErrNotFound
				}
				return r.mapper.MapError(err)
			}

			var occupied int
			err = r.helper.QueryRowTx(tx,
				`SELECT COUNT(*) FROM bookings WHERE schedule_id = ?`, booking.ScheduleID,
			).Scan(&occupied)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if occupied >= maxPlayers {
				return persistence.ErrCapacityExceeded
			}

			_, err = r.helper.ExecTx(tx,
				`INSERT INTO bookings (`+bookingColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
				booking.ID,
				booking.ScheduleID,
				nullString(booking.UserID),
				nullString(booking.GuestName),
				nullString(booking.GuestMobile),
				booking.CreatedAt.UTC().Format(time.RFC3339),
			)
			if err != nil {
				return r.mapBookingError(err)
			}
			return nil
		})
	})
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBookingFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Booking{}, persistence.ErrNotFound
		}
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	return booking, nil
}

// DeleteBooking releases a claimed spot.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return r.mapBookingError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListBookingsForSchedule returns bookings for an occurrence in claim order.
func (r *BookingRepository) ListBookingsForSchedule(ctx context.Context, scheduleID string) ([]persistence.Booking, error) {
	return r.listBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE schedule_id = ? ORDER BY created_at ASC, id ASC`,
		scheduleID)
}

// ListBookingsForUser returns a registered user's bookings, oldest first.
func (r *BookingRepository) ListBookingsForUser(ctx context.Context, userID string) ([]persistence.Booking, error) {
	return r.listBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at ASC, id ASC`,
		userID)
}

func (r *BookingRepository) listBookings(ctx context.Context, query string, args ...any) ([]persistence.Booking, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBookingFrom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return bookings, nil
}

// CountBookings returns how many spots are claimed in an occurrence.
func (r *BookingRepository) CountBookings(ctx context.Context, scheduleID string) (int, error) {
	var count int
	err := r.helper.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE schedule_id = ?`, scheduleID,
	).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// CountBookingsBySchedule returns booking counts keyed by schedule ID.
func (r *BookingRepository) CountBookingsBySchedule(ctx context.Context, scheduleIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(scheduleIDs))
	if len(scheduleIDs) == 0 {
		return counts, nil
	}

	placeholders := make([]string, len(scheduleIDs))
	args := make([]any, len(scheduleIDs))
	for i, id := range scheduleIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT schedule_id, COUNT(*)
		FROM bookings
		WHERE schedule_id IN (` + strings.Join(placeholders, ",") + `)
		GROUP BY schedule_id
	`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var scheduleID string
		var count int
		if err := rows.Scan(&scheduleID, &count); err != nil {
			return nil, r.mapper.MapError(err)
		}
		counts[scheduleID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return counts, nil
}

func scanBookingFrom(s rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var userID, guestName, guestMobile sql.NullString
	var createdAtStr string

	err := s.Scan(&booking.ID, &booking.ScheduleID, &userID, &guestName, &guestMobile, &createdAtStr)
	if err != nil {
		return persistence.Booking{}, err
	}

	if userID.Valid {
		booking.UserID = &userID.String
	}
	if guestName.Valid {
		booking.GuestName = &guestName.String
	}
	if guestMobile.Valid {
		booking.GuestMobile = &guestMobile.String
	}
	if booking.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return booking, nil
}

// mapBookingError maps SQLite errors for booking operations.
func (r *BookingRepository) mapBookingError(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return persistence.ErrDuplicate
	}
	if strings.Contains(errStr, "FOREIGN KEY constraint failed") {
		return persistence.ErrForeignKeyViolation
	}
	if strings.Contains(errStr, "CHECK constraint failed") {
		return persistence.ErrConstraintViolation
	}
	return r.mapper.MapError(err)
}
