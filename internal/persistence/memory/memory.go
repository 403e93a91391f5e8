// Package memory provides an in-memory persistence implementation. It
// backs tests and keeps the repository contracts honest, including the
// admission guarantees the SQLite implementation makes transactionally.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/raj29code/playohcanada/internal/persistence"
)

// Storage implements every repository interface over process memory.
// A single mutex serialises writes, which is what makes InsertBooking's
// check-then-insert atomic.
type Storage struct {
	mu            sync.RWMutex
	users         map[string]persistence.User
	sports        map[string]persistence.Sport
	schedules     map[string]persistence.Schedule
	bookings      map[string]persistence.Booking
	revokedTokens map[string]persistence.RevokedToken
}

// Open returns a new empty Storage.
func Open() *Storage {
	return &Storage{
		users:         make(map[string]persistence.User),
		sports:        make(map[string]persistence.Sport),
		schedules:     make(map[string]persistence.Schedule),
		bookings:      make(map[string]persistence.Booking),
		revokedTokens: make(map[string]persistence.RevokedToken),
	}
}

// Close releases resources held by the storage. No-op in memory.
func (s *Storage) Close() error {
	return nil
}

// --- UserRepository implementation ---

// CreateUser stores a new user.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}
	if err := s.ensureUniqueEmailLocked(user.ID, user.Email); err != nil {
		return err
	}

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	s.users[user.ID] = cloneUser(user)
	return nil
}

// UpdateUser updates an existing user.
func (s *Storage) UpdateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	if err := s.ensureUniqueEmailLocked(user.ID, user.Email); err != nil {
		return err
	}

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	s.users[user.ID] = cloneUser(user)
	return nil
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return cloneUser(user), nil
}

// GetUserByEmail retrieves a user by email address, case-insensitively.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(strings.TrimSpace(email))
	for _, user := range s.users {
		if user.Email == lower {
			return cloneUser(user), nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// ListUsers returns all users ordered by creation time.
func (s *Storage) ListUsers(ctx context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, cloneUser(user))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// DeleteUser removes a user by ID.
func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Storage) ensureUniqueEmailLocked(id, email string) error {
	lower := strings.ToLower(strings.TrimSpace(email))
	for _, user := range s.users {
		if user.ID != id && user.Email == lower {
			return persistence.ErrDuplicate
		}
	}
	return nil
}

// --- SportRepository implementation ---

// CreateSport stores a new sport catalog entry.
func (s *Storage) CreateSport(ctx context.Context, sport persistence.Sport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sports[sport.ID]; ok {
		return persistence.ErrDuplicate
	}
	for _, existing := range s.sports {
		if strings.EqualFold(existing.Name, sport.Name) {
			return persistence.ErrDuplicate
		}
	}

	s.sports[sport.ID] = cloneSport(sport)
	return nil
}

// UpdateSport updates a sport catalog entry.
func (s *Storage) UpdateSport(ctx context.Context, sport persistence.Sport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sports[sport.ID]; !ok {
		return persistence.ErrNotFound
	}
	for _, existing := range s.sports {
		if existing.ID != sport.ID && strings.EqualFold(existing.Name, sport.Name) {
			return persistence.ErrDuplicate
		}
	}

	s.sports[sport.ID] = cloneSport(sport)
	return nil
}

// GetSport retrieves a sport by ID.
func (s *Storage) GetSport(ctx context.Context, id string) (persistence.Sport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sport, ok := s.sports[id]
	if !ok {
		return persistence.Sport{}, persistence.ErrNotFound
	}
	return cloneSport(sport), nil
}

// ListSports returns all sports ordered by name.
func (s *Storage) ListSports(ctx context.Context) ([]persistence.Sport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sports := make([]persistence.Sport, 0, len(s.sports))
	for _, sport := range s.sports {
		sports = append(sports, cloneSport(sport))
	}
	sort.Slice(sports, func(i, j int) bool {
		return sports[i].Name < sports[j].Name
	})
	return sports, nil
}

// DeleteSport removes a sport unless schedules still reference it.
func (s *Storage) DeleteSport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sports[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, schedule := range s.schedules {
		if schedule.SportID == id {
			return persistence.ErrForeignKeyViolation
		}
	}
	delete(s.sports, id)
	return nil
}

// --- ScheduleRepository implementation ---

// CreateSchedules stores a batch of occurrences. All or none.
func (s *Storage) CreateSchedules(ctx context.Context, schedules []persistence.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, schedule := range schedules {
		if schedule.ID == "" || !schedule.EndTime.After(schedule.StartTime) {
			return persistence.ErrConstraintViolation
		}
		if _, ok := s.schedules[schedule.ID]; ok {
			return persistence.ErrDuplicate
		}
		if _, ok := s.sports[schedule.SportID]; !ok {
			return persistence.ErrForeignKeyViolation
		}
	}
	for _, schedule := range schedules {
		s.schedules[schedule.ID] = cloneSchedule(schedule)
	}
	return nil
}

// UpdateSchedule updates an existing occurrence.
func (s *Storage) UpdateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.schedules[schedule.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if !schedule.EndTime.After(schedule.StartTime) {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.sports[schedule.SportID]; !ok {
		return persistence.ErrForeignKeyViolation
	}

	schedule.CreatedByAdminID = current.CreatedByAdminID
	s.schedules[schedule.ID] = cloneSchedule(schedule)
	return nil
}

// GetSchedule retrieves an occurrence by ID.
func (s *Storage) GetSchedule(ctx context.Context, id string) (persistence.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedule, ok := s.schedules[id]
	if !ok {
		return persistence.Schedule{}, persistence.ErrNotFound
	}
	return cloneSchedule(schedule), nil
}

// ListSchedules lists occurrences matching the filter, soonest first.
func (s *Storage) ListSchedules(ctx context.Context, filter persistence.ScheduleFilter) ([]persistence.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var schedules []persistence.Schedule
	for _, schedule := range s.schedules {
		if matchesScheduleFilter(schedule, filter) {
			schedules = append(schedules, cloneSchedule(schedule))
		}
	}
	sort.Slice(schedules, func(i, j int) bool {
		if schedules[i].StartTime.Equal(schedules[j].StartTime) {
			return schedules[i].ID < schedules[j].ID
		}
		return schedules[i].StartTime.Before(schedules[j].StartTime)
	})
	return schedules, nil
}

// DeleteSchedule removes an occurrence and its bookings.
func (s *Storage) DeleteSchedule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.schedules, id)
	s.deleteBookingsForSchedulesLocked(map[string]struct{}{id: {}})
	return nil
}

// DeleteSchedulesByAdmin removes every occurrence the admin created.
func (s *Storage) DeleteSchedulesByAdmin(ctx context.Context, adminID string) (persistence.DeletionCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doomed := make(map[string]struct{})
	for id, schedule := range s.schedules {
		if schedule.CreatedByAdminID == adminID {
			doomed[id] = struct{}{}
		}
	}
	return s.removeSchedulesLocked(doomed), nil
}

// DeleteSchedulesEndedBefore removes occurrences that ended before the cutoff.
func (s *Storage) DeleteSchedulesEndedBefore(ctx context.Context, cutoff time.Time) (persistence.DeletionCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doomed := make(map[string]struct{})
	for id, schedule := range s.schedules {
		if schedule.EndTime.Before(cutoff) {
			doomed[id] = struct{}{}
		}
	}
	return s.removeSchedulesLocked(doomed), nil
}

func (s *Storage) removeSchedulesLocked(doomed map[string]struct{}) persistence.DeletionCounts {
	counts := persistence.DeletionCounts{Schedules: len(doomed)}
	for id := range doomed {
		delete(s.schedules, id)
	}
	counts.Bookings = s.deleteBookingsForSchedulesLocked(doomed)
	return counts
}

func (s *Storage) deleteBookingsForSchedulesLocked(scheduleIDs map[string]struct{}) int {
	removed := 0
	for id, booking := range s.bookings {
		if _, ok := scheduleIDs[booking.ScheduleID]; ok {
			delete(s.bookings, id)
			removed++
		}
	}
	return removed
}

// ListVenues returns usage statistics for venues matching the prefix.
func (s *Storage) ListVenues(ctx context.Context, prefix string, reference time.Time) ([]persistence.VenueUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byVenue := make(map[string]*persistence.VenueUsage)
	lowerPrefix := strings.ToLower(prefix)
	for _, schedule := range s.schedules {
		if prefix != "" && !strings.HasPrefix(strings.ToLower(schedule.Venue), lowerPrefix) {
			continue
		}
		key := strings.ToLower(schedule.Venue)
		usage, ok := byVenue[key]
		if !ok {
			usage = &persistence.VenueUsage{
				Venue:          schedule.Venue,
				FirstScheduled: schedule.StartTime,
				LastScheduled:  schedule.StartTime,
			}
			byVenue[key] = usage
		}
		usage.ScheduleCount++
		if !schedule.StartTime.Before(reference) {
			usage.UpcomingCount++
		}
		if schedule.StartTime.Before(usage.FirstScheduled) {
			usage.FirstScheduled = schedule.StartTime
		}
		if schedule.StartTime.After(usage.LastScheduled) {
			usage.LastScheduled = schedule.StartTime
		}
	}

	venues := make([]persistence.VenueUsage, 0, len(byVenue))
	for _, usage := range byVenue {
		venues = append(venues, *usage)
	}
	sort.Slice(venues, func(i, j int) bool {
		if venues[i].ScheduleCount == venues[j].ScheduleCount {
			return venues[i].Venue < venues[j].Venue
		}
		return venues[i].ScheduleCount > venues[j].ScheduleCount
	})
	return venues, nil
}

// RenameVenue rewrites the venue on every matching occurrence.
func (s *Storage) RenameVenue(ctx context.Context, from, to string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	renamed := 0
	for id, schedule := range s.schedules {
		if strings.EqualFold(schedule.Venue, from) {
			schedule.Venue = to
			s.schedules[id] = schedule
			renamed++
		}
	}
	return renamed, nil
}

// --- BookingRepository implementation ---

// InsertBooking claims a spot. The write lock makes the capacity check
// and the insert a single step, so racing joins observe each other.
func (s *Storage) InsertBooking(ctx context.Context, booking persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if booking.ID == "" || booking.ScheduleID == "" {
		return persistence.ErrConstraintViolation
	}
	if (booking.UserID == nil) == (booking.GuestName == nil) {
		return persistence.ErrConstraintViolation
	}

	schedule, ok := s.schedules[booking.ScheduleID]
	if !ok {
		return persistence.ErrNotFound
	}

	// Capacity is judged before duplicates so a full occurrence reports
	// full regardless of who is asking, matching the durable store.
	occupied := 0
	duplicate := false
	for _, existing := range s.bookings {
		if existing.ScheduleID != booking.ScheduleID {
			continue
		}
		occupied++
		if booking.UserID != nil && existing.UserID != nil && *existing.UserID == *booking.UserID {
			duplicate = true
		}
	}
	if occupied >= schedule.MaxPlayers {
		return persistence.ErrCapacityExceeded
	}
	if duplicate {
		return persistence.ErrDuplicate
	}

	s.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

// GetBooking retrieves a booking by ID.
func (s *Storage) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return cloneBooking(booking), nil
}

// DeleteBooking releases a claimed spot.
func (s *Storage) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

// ListBookingsForSchedule returns bookings for an occurrence in claim order.
func (s *Storage) ListBookingsForSchedule(ctx context.Context, scheduleID string) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bookings []persistence.Booking
	for _, booking := range s.bookings {
		if booking.ScheduleID == scheduleID {
			bookings = append(bookings, cloneBooking(booking))
		}
	}
	sortBookings(bookings)
	return bookings, nil
}

// ListBookingsForUser returns a registered user's bookings.
func (s *Storage) ListBookingsForUser(ctx context.Context, userID string) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bookings []persistence.Booking
	for _, booking := range s.bookings {
		if booking.UserID != nil && *booking.UserID == userID {
			bookings = append(bookings, cloneBooking(booking))
		}
	}
	sortBookings(bookings)
	return bookings, nil
}

// CountBookings returns how many spots are claimed in an occurrence.
func (s *Storage) CountBookings(ctx context.Context, scheduleID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, booking := range s.bookings {
		if booking.ScheduleID == scheduleID {
			count++
		}
	}
	return count, nil
}

// CountBookingsBySchedule returns booking counts keyed by schedule ID.
func (s *Storage) CountBookingsBySchedule(ctx context.Context, scheduleIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(scheduleIDs))
	for _, id := range scheduleIDs {
		wanted[id] = struct{}{}
	}

	counts := make(map[string]int, len(scheduleIDs))
	for _, booking := range s.bookings {
		if _, ok := wanted[booking.ScheduleID]; ok {
			counts[booking.ScheduleID]++
		}
	}
	return counts, nil
}

// --- RevokedTokenRepository implementation ---

// RevokeToken records a token on the blacklist. Idempotent.
func (s *Storage) RevokeToken(ctx context.Context, token persistence.RevokedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token.Token == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.revokedTokens[token.Token]; ok {
		return nil
	}
	s.revokedTokens[token.Token] = token
	return nil
}

// IsTokenRevoked reports whether the token is on the blacklist.
func (s *Storage) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.revokedTokens[token]
	return ok, nil
}

// DeleteExpiredTokens drops blacklist entries whose token has expired.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, reference time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, token := range s.revokedTokens {
		if token.ExpiresAt.Before(reference) {
			delete(s.revokedTokens, key)
			removed++
		}
	}
	return removed, nil
}

// --- Helpers ---

func cloneUser(user persistence.User) persistence.User {
	user.Mobile = clonePtr(user.Mobile)
	return user
}

func cloneSport(sport persistence.Sport) persistence.Sport {
	sport.Description = clonePtr(sport.Description)
	return sport
}

func cloneSchedule(schedule persistence.Schedule) persistence.Schedule {
	schedule.Equipment = clonePtr(schedule.Equipment)
	return schedule
}

func cloneBooking(booking persistence.Booking) persistence.Booking {
	booking.UserID = clonePtr(booking.UserID)
	booking.GuestName = clonePtr(booking.GuestName)
	booking.GuestMobile = clonePtr(booking.GuestMobile)
	return booking
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	value := *s
	return &value
}

func matchesScheduleFilter(schedule persistence.Schedule, filter persistence.ScheduleFilter) bool {
	if filter.SportID != nil && schedule.SportID != *filter.SportID {
		return false
	}
	if filter.Venue != nil && !strings.Contains(strings.ToLower(schedule.Venue), strings.ToLower(*filter.Venue)) {
		return false
	}
	if filter.StartsAfter != nil && schedule.StartTime.Before(*filter.StartsAfter) {
		return false
	}
	if filter.StartsBefore != nil && !schedule.StartTime.Before(*filter.StartsBefore) {
		return false
	}
	if filter.CreatedByAdminID != nil && schedule.CreatedByAdminID != *filter.CreatedByAdminID {
		return false
	}
	return true
}

func sortBookings(bookings []persistence.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
}
