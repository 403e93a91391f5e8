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

// ScheduleRepository implements persistence.ScheduleRepository using SQLite.
type ScheduleRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewScheduleRepository creates a new SQLite schedule repository.
func NewScheduleRepository(pool *ConnectionPool) *ScheduleRepository {
	return &ScheduleRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const scheduleColumns = `id, sport_id, venue, start_time, end_time,
	max_players, equipment, created_by_admin_id, created_at, updated_at`

// CreateSchedules inserts a batch of occurrences in one transaction.
// A recurrence expansion either materialises completely or not at all.
func (r *ScheduleRepository) CreateSchedules(ctx context.Context, schedules []persistence.Schedule) error {
	if len(schedules) == 0 {
		return nil
	}
	for _, schedule := range schedules {
		if schedule.ID == "" {
			return persistence.ErrConstraintViolation
		}
		if !schedule.EndTime.After(schedule.StartTime) {
			return persistence.ErrConstraintViolation
		}
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO schedules (` + scheduleColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		for _, schedule := range schedules {
			_, err := r.helper.ExecTx(tx, query,
				schedule.ID,
				schedule.SportID,
				schedule.Venue,
				schedule.StartTime.UTC().Format(time.RFC3339),
				schedule.EndTime.UTC().Format(time.RFC3339),
				schedule.MaxPlayers,
				nullString(schedule.Equipment),
				schedule.CreatedByAdminID,
				schedule.CreatedAt.UTC().Format(time.RFC3339),
				schedule.UpdatedAt.UTC().Format(time.RFC3339),
			)
			if err != nil {
				return r.mapScheduleError(err)
			}
		}
		return nil
	})
}

// UpdateSchedule updates an existing occurrence. The creating admin is
// never changed.
func (r *ScheduleRepository) UpdateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	if schedule.ID == "" {
		return persistence.ErrNotFound
	}
	if !schedule.EndTime.After(schedule.StartTime) {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE schedules
		SET sport_id = ?, venue = ?, start_time = ?, end_time = ?,
			max_players = ?, equipment = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		schedule.SportID,
		schedule.Venue,
		schedule.StartTime.UTC().Format(time.RFC3339),
		schedule.EndTime.UTC().Format(time.RFC3339),
		schedule.MaxPlayers,
		nullString(schedule.Equipment),
		schedule.UpdatedAt.UTC().Format(time.RFC3339),
		schedule.ID,
	)
	if err != nil {
		return r.mapScheduleError(err)
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

// GetSchedule retrieves an occurrence by ID.
func (r *ScheduleRepository) GetSchedule(ctx context.Context, id string) (persistence.Schedule, error) {
	if id == "" {
		return persistence.Schedule{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	schedule, err := scanScheduleFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Schedule{}, persistence.ErrNotFound
		}
		return persistence.Schedule{}, r.mapper.MapError(err)
	}
	return schedule, nil
}

// ListSchedules lists occurrences matching the filter, soonest first.
func (r *ScheduleRepository) ListSchedules(ctx context.Context, filter persistence.ScheduleFilter) ([]persistence.Schedule, error) {
	query, args := buildScheduleListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var schedules []persistence.Schedule
	for rows.Next() {
		schedule, err := scanScheduleFrom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return schedules, nil
}

func buildScheduleListQuery(filter persistence.ScheduleFilter) (string, []any) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules`

	var conditions []string
	var args []any

	if filter.SportID != nil {
		conditions = append(conditions, "sport_id = ?")
		args = append(args, *filter.SportID)
	}
	if filter.Venue != nil {
		conditions = append(conditions, `venue LIKE ? ESCAPE '\' COLLATE NOCASE`)
		args = append(args, "%"+escapeLike(*filter.Venue)+"%")
	}
	if filter.StartsAfter != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, filter.StartsAfter.UTC().Format(time.RFC3339))
	}
	if filter.StartsBefore != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, filter.StartsBefore.UTC().Format(time.RFC3339))
	}
	if filter.CreatedByAdminID != nil {
		conditions = append(conditions, "created_by_admin_id = ?")
		args = append(args, *filter.CreatedByAdminID)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"
	return query, args
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// DeleteSchedule removes an occurrence. Its bookings go with it through
// the cascading foreign key.
func (r *ScheduleRepository) DeleteSchedule(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return r.mapScheduleError(err)
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

// DeleteSchedulesByAdmin removes every occurrence the admin created and
// reports how many schedules and bookings were dropped.
func (r *ScheduleRepository) DeleteSchedulesByAdmin(ctx context.Context, adminID string) (persistence.DeletionCounts, error) {
	if adminID == "" {
		return persistence.DeletionCounts{}, persistence.ErrNotFound
	}
	return r.deleteScheduleSet(ctx, `created_by_admin_id = ?`, adminID)
}

// DeleteSchedulesEndedBefore removes occurrences whose end time precedes
// the cutoff.
func (r *ScheduleRepository) DeleteSchedulesEndedBefore(ctx context.Context, cutoff time.Time) (persistence.DeletionCounts, error) {
	return r.deleteScheduleSet(ctx, `end_time < ?`, cutoff.UTC().Format(time.RFC3339))
}

func (r *ScheduleRepository) deleteScheduleSet(ctx context.Context, condition string, arg any) (persistence.DeletionCounts, error) {
	var counts persistence.DeletionCounts

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		// Counted before the delete; the cascade removes the booking
		// rows silently.
		err := r.helper.QueryRowTx(tx,
			`SELECT COUNT(*) FROM bookings WHERE schedule_id IN (SELECT id FROM schedules WHERE `+condition+`)`,
			arg,
		).Scan(&counts.Bookings)
		if err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(tx, `DELETE FROM schedules WHERE `+condition, arg)
		if err != nil {
			return r.mapScheduleError(err)
		}
		deleted, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		counts.Schedules = int(deleted)
		return nil
	})
	if err != nil {
		return persistence.DeletionCounts{}, err
	}
	return counts, nil
}

// ListVenues returns usage statistics for each distinct venue whose name
// starts with the prefix, most used first. The reference time splits
// upcoming occurrences from past ones.
func (r *ScheduleRepository) ListVenues(ctx context.Context, prefix string, reference time.Time) ([]persistence.VenueUsage, error) {
	query := `
		SELECT venue,
			COUNT(*),
			SUM(CASE WHEN start_time >= ? THEN 1 ELSE 0 END),
			MIN(start_time),
			MAX(start_time)
		FROM schedules
	`
	args := []any{reference.UTC().Format(time.RFC3339)}

	if prefix != "" {
		query += ` WHERE venue LIKE ? ESCAPE '\' COLLATE NOCASE`
		args = append(args, escapeLike(prefix)+"%")
	}
	query += ` GROUP BY venue COLLATE NOCASE ORDER BY COUNT(*) DESC, venue ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var venues []persistence.VenueUsage
	for rows.Next() {
		var usage persistence.VenueUsage
		var firstStr, lastStr string
		if err := rows.Scan(&usage.Venue, &usage.ScheduleCount, &usage.UpcomingCount, &firstStr, &lastStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if usage.FirstScheduled, err = time.Parse(time.RFC3339, firstStr); err != nil {
			return nil, fmt.Errorf("failed to parse first start_time: %w", err)
		}
		if usage.LastScheduled, err = time.Parse(time.RFC3339, lastStr); err != nil {
			return nil, fmt.Errorf("failed to parse last start_time: %w", err)
		}
		venues = append(venues, usage)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return venues, nil
}

// RenameVenue rewrites the venue on every matching occurrence. Matching
// is case-insensitive; renaming onto an existing venue merges the two.
func (r *ScheduleRepository) RenameVenue(ctx context.Context, from, to string) (int, error) {
	result, err := r.helper.Exec(ctx,
		`UPDATE schedules SET venue = ?, updated_at = ? WHERE venue = ? COLLATE NOCASE`,
		to,
		time.Now().UTC().Format(time.RFC3339),
		from,
	)
	if err != nil {
		return 0, r.mapScheduleError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func scanScheduleFrom(s rowScanner) (persistence.Schedule, error) {
	var schedule persistence.Schedule
	var equipment sql.NullString
	var startStr, endStr, createdAtStr, updatedAtStr string

	err := s.Scan(
		&schedule.ID,
		&schedule.SportID,
		&schedule.Venue,
		&startStr,
		&endStr,
		&schedule.MaxPlayers,
		&equipment,
		&schedule.CreatedByAdminID,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Schedule{}, err
	}

	if equipment.Valid {
		schedule.Equipment = &equipment.String
	}
	if schedule.StartTime, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.Schedule{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if schedule.EndTime, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.Schedule{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if schedule.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Schedule{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if schedule.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Schedule{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return schedule, nil
}

// mapScheduleError maps SQLite errors for schedule operations.
func (r *ScheduleRepository) mapScheduleError(err error) error {
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
