package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/raj29code/playohcanada/internal/application"
)

var (
	errBadRequestBody = errors.New("request body is not valid JSON")
	errMissingToken   = errors.New("authentication token is required")
	errInvalidID      = errors.New("invalid resource id")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError translates application sentinels into a status plus a
// stable machine readable error code.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	status, code, message := classifyServiceError(err)
	if code == "" {
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				ErrorCode: "VALIDATION_FAILED",
				Message:   "one or more fields are invalid",
				Errors:    vErr.FieldErrors,
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error", "error", err, "error_kind", application.ErrorKind(err))
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			ErrorCode: "INTERNAL",
			Message:   "an internal error occurred",
		})
		return
	}

	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

func classifyServiceError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusUnauthorized, "AUTH_REQUIRED", "authentication is required"
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", "email or password is incorrect"
	case errors.Is(err, application.ErrTokenRevoked):
		return http.StatusUnauthorized, "AUTH_TOKEN_REVOKED", "this token has been logged out"
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden, "AUTH_FORBIDDEN", "you do not have permission to perform this operation"
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "the requested resource was not found"
	case errors.Is(err, application.ErrScheduleFull):
		return http.StatusConflict, "SCHEDULE_FULL", "this schedule has no spots left"
	case errors.Is(err, application.ErrAlreadyBooked):
		return http.StatusConflict, "ALREADY_BOOKED", "you already hold a spot in this schedule"
	case errors.Is(err, application.ErrScheduleStarted):
		return http.StatusConflict, "SCHEDULE_STARTED", "this schedule has already started"
	case errors.Is(err, application.ErrCancellationTooLate):
		return http.StatusConflict, "CANCELLATION_TOO_LATE", "bookings cannot be cancelled within two hours of the start"
	case errors.Is(err, application.ErrCapacityBelowOccupancy):
		return http.StatusConflict, "CAPACITY_BELOW_OCCUPANCY", "max players cannot drop below the current booking count"
	case errors.Is(err, application.ErrEmailTaken):
		return http.StatusConflict, "EMAIL_TAKEN", "an account with this email already exists"
	case errors.Is(err, application.ErrSportInUse):
		return http.StatusConflict, "SPORT_IN_USE", "this sport still has schedules and cannot be removed"
	case errors.Is(err, application.ErrGuestNameRequired):
		return http.StatusBadRequest, "GUEST_NAME_REQUIRED", "guests must provide a name to join"
	default:
		return 0, "", ""
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
