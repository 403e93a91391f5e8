package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/raj29code/playohcanada/internal/persistence"
)

// UserDirectory captures the account operations needed by the service.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (persistence.User, error)
	UpdateUser(ctx context.Context, user persistence.User) error
	ListUsers(ctx context.Context) ([]persistence.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// UserService handles account administration and profile updates. Account
// creation lives in AuthService; this service covers everything after.
type UserService struct {
	users UserDirectory
	now   func() time.Time
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserDirectory, now func() time.Time) *UserService {
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, now: now}
}

// UpdateProfileParams captures a profile change. Email and role are fixed
// at registration and cannot be changed here.
type UpdateProfileParams struct {
	Principal   Principal
	DisplayName string
	Mobile      *string
}

// UpdateProfile changes the caller's display name and mobile number.
func (s *UserService) UpdateProfile(ctx context.Context, params UpdateProfileParams) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user directory not configured")
	}
	if params.Principal.IsAnonymous() {
		return User{}, ErrUnauthorized
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		vErr := &ValidationError{}
		vErr.add("display_name", "display name is required")
		return User{}, vErr
	}

	record, err := s.users.GetUser(ctx, params.Principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	record.DisplayName = displayName
	record.Mobile = params.Mobile
	record.UpdatedAt = s.now()
	if err := s.users.UpdateUser(ctx, record); err != nil {
		return User{}, err
	}
	return toUser(record), nil
}

// ListUsers enumerates every account, email order. Admin only.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil || s.users == nil {
		return nil, fmt.Errorf("user directory not configured")
	}
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	records, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]User, len(records))
	for i, record := range records {
		users[i] = toUser(record)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// DeleteUser removes an account. Admin only, and admins cannot remove
// themselves.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) error {
	if s == nil || s.users == nil {
		return fmt.Errorf("user directory not configured")
	}
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if userID == principal.UserID {
		return ErrForbidden
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
