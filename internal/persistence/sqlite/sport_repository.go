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

// SportRepository implements persistence.SportRepository using SQLite.
type SportRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSportRepository creates a new SQLite sport repository.
func NewSportRepository(pool *ConnectionPool) *SportRepository {
	return &SportRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const sportColumns = `id, name, description, created_at, updated_at`

// CreateSport inserts a new sport catalog entry.
func (r *SportRepository) CreateSport(ctx context.Context, sport persistence.Sport) error {
	if sport.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx,
		`INSERT INTO sports (`+sportColumns+`) VALUES (?, ?, ?, ?, ?)`,
		sport.ID,
		sport.Name,
		nullString(sport.Description),
		sport.CreatedAt.UTC().Format(time.RFC3339),
		sport.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapSportError(err)
	}
	return nil
}

// UpdateSport updates a sport catalog entry.
func (r *SportRepository) UpdateSport(ctx context.Context, sport persistence.Sport) error {
	if sport.ID == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx,
		`UPDATE sports SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		sport.Name,
		nullString(sport.Description),
		sport.UpdatedAt.UTC().Format(time.RFC3339),
		sport.ID,
	)
	if err != nil {
		return r.mapSportError(err)
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

// GetSport retrieves a sport by ID.
func (r *SportRepository) GetSport(ctx context.Context, id string) (persistence.Sport, error) {
	if id == "" {
		return persistence.Sport{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+sportColumns+` FROM sports WHERE id = ?`, id)
	sport, err := scanSportFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Sport{}, persistence.ErrNotFound
		}
		return persistence.Sport{}, r.mapper.MapError(err)
	}
	return sport, nil
}

// ListSports returns all sports ordered by name.
func (r *SportRepository) ListSports(ctx context.Context) ([]persistence.Sport, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+sportColumns+` FROM sports ORDER BY name ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sports []persistence.Sport
	for rows.Next() {
		sport, err := scanSportFrom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		sports = append(sports, sport)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return sports, nil
}

// DeleteSport removes a sport. Schedules referencing it keep the delete
// from succeeding.
func (r *SportRepository) DeleteSport(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM sports WHERE id = ?`, id)
	if err != nil {
		return r.mapSportError(err)
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

func scanSportFrom(s rowScanner) (persistence.Sport, error) {
	var sport persistence.Sport
	var description sql.NullString
	var createdAtStr, updatedAtStr string

	err := s.Scan(&sport.ID, &sport.Name, &description, &createdAtStr, &updatedAtStr)
	if err != nil {
		return persistence.Sport{}, err
	}

	if description.Valid {
		sport.Description = &description.String
	}
	if sport.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Sport{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if sport.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Sport{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return sport, nil
}

// mapSportError maps SQLite errors for sport operations.
func (r *SportRepository) mapSportError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed: sports.name") {
		return persistence.ErrDuplicate
	}
	return r.mapper.MapError(err)
}
