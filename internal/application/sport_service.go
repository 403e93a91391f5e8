package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raj29code/playohcanada/internal/persistence"
)

const (
	minSportNameLength = 2
	maxSportNameLength = 100
)

// SportStore exposes the sport catalog operations needed by the service.
type SportStore interface {
	CreateSport(ctx context.Context, sport persistence.Sport) error
	UpdateSport(ctx context.Context, sport persistence.Sport) error
	GetSport(ctx context.Context, id string) (persistence.Sport, error)
	ListSports(ctx context.Context) ([]persistence.Sport, error)
	DeleteSport(ctx context.Context, id string) error
}

// SportService manages the sport catalog. Writes are admin only.
type SportService struct {
	sports      SportStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSportService constructs a SportService with the provided dependencies.
func NewSportService(sports SportStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SportService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SportService{
		sports:      sports,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *SportService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SportService", operation, attrs...)
}

// CreateSport adds a sport to the catalog.
func (s *SportService) CreateSport(ctx context.Context, params CreateSportParams) (sport Sport, err error) {
	if s == nil || s.sports == nil {
		return Sport{}, fmt.Errorf("sport store not configured")
	}

	logger := s.loggerWith(ctx, "CreateSport", "name", params.Input.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "sport creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("sport_id", sport.ID).InfoContext(ctx, "sport created")
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return Sport{}, err
	}
	if err = validateSportInput(params.Input); err != nil {
		return Sport{}, err
	}

	now := s.now()
	record := persistence.Sport{
		ID:          s.idGenerator(),
		Name:        strings.TrimSpace(params.Input.Name),
		Description: params.Input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.sports.CreateSport(ctx, record); err != nil {
		err = mapSportStoreError(err)
		return Sport{}, err
	}
	return toSport(record), nil
}

// UpdateSport changes a sport's name or description.
func (s *SportService) UpdateSport(ctx context.Context, params UpdateSportParams) (sport Sport, err error) {
	if s == nil || s.sports == nil {
		return Sport{}, fmt.Errorf("sport store not configured")
	}

	logger := s.loggerWith(ctx, "UpdateSport", "sport_id", params.SportID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "sport update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "sport updated")
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return Sport{}, err
	}
	if err = validateSportInput(params.Input); err != nil {
		return Sport{}, err
	}

	record, err := s.sports.GetSport(ctx, params.SportID)
	if err != nil {
		err = mapSportStoreError(err)
		return Sport{}, err
	}

	record.Name = strings.TrimSpace(params.Input.Name)
	record.Description = params.Input.Description
	record.UpdatedAt = s.now()
	if err = s.sports.UpdateSport(ctx, record); err != nil {
		err = mapSportStoreError(err)
		return Sport{}, err
	}
	return toSport(record), nil
}

// GetSport returns a single catalog entry.
func (s *SportService) GetSport(ctx context.Context, id string) (Sport, error) {
	if s == nil || s.sports == nil {
		return Sport{}, fmt.Errorf("sport store not configured")
	}
	record, err := s.sports.GetSport(ctx, id)
	if err != nil {
		return Sport{}, mapSportStoreError(err)
	}
	return toSport(record), nil
}

// ListSports returns the full catalog. Open to anonymous callers.
func (s *SportService) ListSports(ctx context.Context) ([]Sport, error) {
	if s == nil || s.sports == nil {
		return nil, fmt.Errorf("sport store not configured")
	}
	records, err := s.sports.ListSports(ctx)
	if err != nil {
		return nil, err
	}
	sports := make([]Sport, 0, len(records))
	for _, record := range records {
		sports = append(sports, toSport(record))
	}
	return sports, nil
}

// DeleteSport removes a catalog entry. A sport still referenced by
// schedules cannot be removed.
func (s *SportService) DeleteSport(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.sports == nil {
		return fmt.Errorf("sport store not configured")
	}

	logger := s.loggerWith(ctx, "DeleteSport", "sport_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "sport deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "sport deleted")
	}()

	if err = requireAdmin(principal); err != nil {
		return err
	}
	if err = s.sports.DeleteSport(ctx, id); err != nil {
		err = mapSportStoreError(err)
		return err
	}
	return nil
}

func validateSportInput(input SportInput) error {
	vErr := &ValidationError{}
	name := strings.TrimSpace(input.Name)
	if len(name) < minSportNameLength || len(name) > maxSportNameLength {
		vErr.add("name", fmt.Sprintf("name must be between %d and %d characters", minSportNameLength, maxSportNameLength))
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func mapSportStoreError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		vErr := &ValidationError{}
		vErr.add("name", "a sport with this name already exists")
		return vErr
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrSportInUse
	default:
		return err
	}
}

func toSport(record persistence.Sport) Sport {
	return Sport{
		ID:          record.ID,
		Name:        record.Name,
		Description: record.Description,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}
