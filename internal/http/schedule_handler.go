package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/raj29code/playohcanada/internal/application"
	"github.com/raj29code/playohcanada/internal/persistence"
	"github.com/raj29code/playohcanada/internal/recurrence"
	"github.com/raj29code/playohcanada/internal/timeutil"
)

type scheduleService interface {
	CreateSchedules(ctx context.Context, params application.CreateSchedulesParams) ([]application.Schedule, error)
	UpdateSchedule(ctx context.Context, params application.UpdateScheduleParams) (application.Schedule, error)
	GetSchedule(ctx context.Context, principal application.Principal, scheduleID string) (application.ScheduleView, error)
	ListSchedules(ctx context.Context, params application.ListSchedulesParams) ([]application.ScheduleView, error)
	DeleteSchedule(ctx context.Context, principal application.Principal, scheduleID string) error
	DeleteMySchedules(ctx context.Context, principal application.Principal) (persistence.DeletionCounts, error)
	SuggestVenues(ctx context.Context, prefix string) ([]application.VenueSummary, error)
	RenameVenue(ctx context.Context, params application.RenameVenueParams) (int, error)
}

type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
}

func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	base := defaultLogger(logger)
	return &ScheduleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	created, err := h.service.CreateSchedules(r.Context(), application.CreateSchedulesParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]scheduleDTO, len(created))
	for i, schedule := range created {
		dtos[i] = toScheduleDTO(schedule, &req.UTCOffsetMinutes)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createSchedulesResponse{Schedules: dtos})
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	updated, err := h.service.UpdateSchedule(r.Context(), application.UpdateScheduleParams{
		Principal:  principal,
		ScheduleID: id,
		Input:      req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(updated, &req.UTCOffsetMinutes)})
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	view, err := h.service.GetSchedule(r.Context(), principal, id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleViewResponse{Schedule: toScheduleViewDTO(view, displayOffset(r.URL.Query()))})
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	views, err := h.service.ListSchedules(r.Context(), buildListParams(r.URL.Query(), principal))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	offset := displayOffset(r.URL.Query())
	dtos := make([]scheduleViewDTO, len(views))
	for i, view := range views {
		dtos[i] = toScheduleViewDTO(view, offset)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSchedulesResponse{Schedules: dtos})
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.service.DeleteSchedule(r.Context(), principal, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// DeleteMine removes every occurrence the calling admin created.
func (h *ScheduleHandler) DeleteMine(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	counts, err := h.service.DeleteMySchedules(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, deletionCountsResponse{
		DeletedSchedules: counts.Schedules,
		DeletedBookings:  counts.Bookings,
	})
}

func (h *ScheduleHandler) SuggestVenues(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	summaries, err := h.service.SuggestVenues(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]venueDTO, len(summaries))
	for i, summary := range summaries {
		dtos[i] = toVenueDTO(summary)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listVenuesResponse{Venues: dtos})
}

func (h *ScheduleHandler) RenameVenue(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req renameVenueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	renamed, err := h.service.RenameVenue(r.Context(), application.RenameVenueParams{
		Principal: principal,
		From:      req.From,
		To:        req.To,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, renameVenueResponse{RenamedSchedules: renamed})
}

type scheduleRequest struct {
	SportID          string             `json:"sport_id"`
	Venue            string             `json:"venue"`
	Date             string             `json:"date"`
	StartTime        string             `json:"start_time"`
	EndTime          string             `json:"end_time"`
	UTCOffsetMinutes int                `json:"utc_offset_minutes"`
	MaxPlayers       int                `json:"max_players"`
	Equipment        *string            `json:"equipment,omitempty"`
	Recurrence       *recurrenceRequest `json:"recurrence,omitempty"`
}

type recurrenceRequest struct {
	Frequency  string   `json:"frequency"`
	EndDate    string   `json:"end_date"`
	DaysOfWeek []string `json:"days_of_week,omitempty"`
}

func (r scheduleRequest) toInput() application.ScheduleInput {
	input := application.ScheduleInput{
		SportID:          strings.TrimSpace(r.SportID),
		Venue:            r.Venue,
		UTCOffsetMinutes: r.UTCOffsetMinutes,
		MaxPlayers:       r.MaxPlayers,
		Equipment:        r.Equipment,
	}
	// Malformed dates and times decode to zero values; validation in the
	// service reports them as field errors.
	if date, err := timeutil.ParseDate(r.Date); err == nil {
		input.Date = date
	}
	if start, err := timeutil.ParseTimeOfDay(r.StartTime); err == nil {
		input.StartTime = start
	}
	if end, err := timeutil.ParseTimeOfDay(r.EndTime); err == nil {
		input.EndTime = end
	}
	if r.Recurrence != nil {
		input.Recurrence = r.Recurrence.toRule()
	}
	return input
}

func (r recurrenceRequest) toRule() recurrence.Rule {
	rule := recurrence.Rule{Recurring: true}
	if freq, err := recurrence.ParseFrequency(strings.ToLower(strings.TrimSpace(r.Frequency))); err == nil {
		rule.Frequency = freq
	}
	if end, err := timeutil.ParseDate(r.EndDate); err == nil {
		rule.EndDate = end
	}
	for _, name := range r.DaysOfWeek {
		if day, ok := parseWeekday(name); ok {
			rule.Weekdays = append(rule.Weekdays, day)
		}
	}
	return rule
}

func parseWeekday(name string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	default:
		return time.Sunday, false
	}
}

func buildListParams(values url.Values, principal application.Principal) application.ListSchedulesParams {
	params := application.ListSchedulesParams{Principal: principal}

	if sportID := strings.TrimSpace(values.Get("sport_id")); sportID != "" {
		params.SportID = &sportID
	}
	if venue := strings.TrimSpace(values.Get("venue")); venue != "" {
		params.Venue = &venue
	}
	if from := parseQueryTime(values.Get("from")); from != nil {
		params.From = from
	}
	if to := parseQueryTime(values.Get("to")); to != nil {
		params.To = to
	}
	params.OnlyUpcoming = queryFlag(values, "upcoming")
	params.OnlyAvailable = queryFlag(values, "available")
	params.ExcludeJoined = queryFlag(values, "exclude_joined")

	return params
}

func parseQueryTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return &ts
	}
	return nil
}

func queryFlag(values url.Values, name string) bool {
	switch strings.ToLower(strings.TrimSpace(values.Get(name))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

type scheduleResponse struct {
	Schedule scheduleDTO `json:"schedule"`
}

type scheduleViewResponse struct {
	Schedule scheduleViewDTO `json:"schedule"`
}

type createSchedulesResponse struct {
	Schedules []scheduleDTO `json:"schedules"`
}

type listSchedulesResponse struct {
	Schedules []scheduleViewDTO `json:"schedules"`
}

type deletionCountsResponse struct {
	DeletedSchedules int `json:"deleted_schedules"`
	DeletedBookings  int `json:"deleted_bookings"`
}

type renameVenueRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type renameVenueResponse struct {
	RenamedSchedules int `json:"renamed_schedules"`
}

type scheduleDTO struct {
	ID               string  `json:"id"`
	SportID          string  `json:"sport_id"`
	Venue            string  `json:"venue"`
	StartTime        string  `json:"start_time"`
	EndTime          string  `json:"end_time"`
	LocalStartTime   string  `json:"local_start_time,omitempty"`
	LocalEndTime     string  `json:"local_end_time,omitempty"`
	MaxPlayers       int     `json:"max_players"`
	Equipment        *string `json:"equipment,omitempty"`
	CreatedByAdminID string  `json:"created_by_admin_id"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type scheduleViewDTO struct {
	scheduleDTO
	BookedCount int  `json:"booked_count"`
	SpotsLeft   int  `json:"spots_left"`
	Joined      bool `json:"joined"`
}

// The local rendering is a per-request convenience for clients; the
// canonical times stay UTC and no offset is ever stored. localTimestamp
// uses the flat "2006-01-02T15:04:05" layout because the shifted value
// has no real zone attached.
const localLayout = "2006-01-02T15:04:05"

func localTimestamp(instant time.Time, offsetMinutes int) string {
	local, err := timeutil.ToLocal(instant, offsetMinutes)
	if err != nil {
		return ""
	}
	return local.Format(localLayout)
}

// displayOffset reads the caller's wall clock offset from the query. Like
// the other query inputs, an unparsable value is treated as absent.
func displayOffset(values url.Values) *int {
	raw := strings.TrimSpace(values.Get("utc_offset_minutes"))
	if raw == "" {
		return nil
	}
	offset, err := strconv.Atoi(raw)
	if err != nil || timeutil.ValidateOffset(offset) != nil {
		return nil
	}
	return &offset
}

func toScheduleDTO(schedule application.Schedule, offset *int) scheduleDTO {
	dto := scheduleDTO{
		ID:               schedule.ID,
		SportID:          schedule.SportID,
		Venue:            schedule.Venue,
		StartTime:        schedule.StartTime.UTC().Format(time.RFC3339),
		EndTime:          schedule.EndTime.UTC().Format(time.RFC3339),
		MaxPlayers:       schedule.MaxPlayers,
		Equipment:        schedule.Equipment,
		CreatedByAdminID: schedule.CreatedByAdminID,
		CreatedAt:        schedule.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        schedule.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if offset != nil {
		dto.LocalStartTime = localTimestamp(schedule.StartTime, *offset)
		dto.LocalEndTime = localTimestamp(schedule.EndTime, *offset)
	}
	return dto
}

func toScheduleViewDTO(view application.ScheduleView, offset *int) scheduleViewDTO {
	return scheduleViewDTO{
		scheduleDTO: toScheduleDTO(view.Schedule, offset),
		BookedCount: view.BookedCount,
		SpotsLeft:   view.SpotsLeft,
		Joined:      view.Joined,
	}
}

type venueDTO struct {
	Venue          string `json:"venue"`
	ScheduleCount  int    `json:"schedule_count"`
	UpcomingCount  int    `json:"upcoming_count"`
	FirstScheduled string `json:"first_scheduled"`
	LastScheduled  string `json:"last_scheduled"`
}

type listVenuesResponse struct {
	Venues []venueDTO `json:"venues"`
}

func toVenueDTO(summary application.VenueSummary) venueDTO {
	return venueDTO{
		Venue:          summary.Venue,
		ScheduleCount:  summary.ScheduleCount,
		UpcomingCount:  summary.UpcomingCount,
		FirstScheduled: summary.FirstScheduled.UTC().Format(time.RFC3339),
		LastScheduled:  summary.LastScheduled.UTC().Format(time.RFC3339),
	}
}
