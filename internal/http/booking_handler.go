package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/raj29code/playohcanada/internal/application"
)

type bookingService interface {
	Join(ctx context.Context, params application.JoinScheduleParams) (application.Booking, error)
	Cancel(ctx context.Context, params application.CancelBookingParams) error
	GetBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	MyBookings(ctx context.Context, principal application.Principal) ([]application.BookingDetail, error)
	ListForSchedule(ctx context.Context, principal application.Principal, scheduleID string) ([]application.Booking, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

// Join claims a spot in a schedule. The body is optional; a registered
// user can send an empty body, a guest must include guest_name.
func (h *BookingHandler) Join(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	booking, err := h.service.Join(r.Context(), application.JoinScheduleParams{
		Principal:   principal,
		ScheduleID:  id,
		GuestName:   req.GuestName,
		GuestMobile: req.GuestMobile,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	err := h.service.Cancel(r.Context(), application.CancelBookingParams{
		Principal: principal,
		BookingID: id,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *BookingHandler) MyBookings(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	details, err := h.service.MyBookings(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]bookingDetailDTO, len(details))
	for i, detail := range details {
		dtos[i] = bookingDetailDTO{
			Booking:  toBookingDTO(detail.Booking),
			Schedule: toScheduleDTO(detail.Schedule, nil),
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingDetailsResponse{Bookings: dtos})
}

// Roster lists every booking for a schedule. Admin only.
func (h *BookingHandler) Roster(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	bookings, err := h.service.ListForSchedule(r.Context(), principal, id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]bookingDTO, len(bookings))
	for i, booking := range bookings {
		dtos[i] = toBookingDTO(booking)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: dtos})
}

type joinRequest struct {
	GuestName   string `json:"guest_name"`
	GuestMobile string `json:"guest_mobile"`
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type bookingDetailDTO struct {
	Booking  bookingDTO  `json:"booking"`
	Schedule scheduleDTO `json:"schedule"`
}

type listBookingDetailsResponse struct {
	Bookings []bookingDetailDTO `json:"bookings"`
}

type bookingDTO struct {
	ID          string `json:"id"`
	ScheduleID  string `json:"schedule_id"`
	UserID      string `json:"user_id,omitempty"`
	GuestName   string `json:"guest_name,omitempty"`
	GuestMobile string `json:"guest_mobile,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	return bookingDTO{
		ID:          booking.ID,
		ScheduleID:  booking.ScheduleID,
		UserID:      booking.Requester.UserID,
		GuestName:   booking.Requester.GuestName,
		GuestMobile: booking.Requester.GuestMobile,
		CreatedAt:   booking.CreatedAt.UTC().Format(time.RFC3339),
	}
}
