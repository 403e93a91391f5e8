package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/raj29code/playohcanada/internal/application"
)

type sportService interface {
	CreateSport(ctx context.Context, params application.CreateSportParams) (application.Sport, error)
	UpdateSport(ctx context.Context, params application.UpdateSportParams) (application.Sport, error)
	GetSport(ctx context.Context, id string) (application.Sport, error)
	ListSports(ctx context.Context) ([]application.Sport, error)
	DeleteSport(ctx context.Context, principal application.Principal, id string) error
}

type SportHandler struct {
	service   sportService
	responder responder
}

func NewSportHandler(service sportService, logger *slog.Logger) *SportHandler {
	return &SportHandler{service: service, responder: newResponder(defaultLogger(logger))}
}

func (h *SportHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req sportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	sport, err := h.service.CreateSport(r.Context(), application.CreateSportParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sportResponse{Sport: toSportDTO(sport)})
}

func (h *SportHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	var req sportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	sport, err := h.service.UpdateSport(r.Context(), application.UpdateSportParams{
		Principal: principal,
		SportID:   id,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sportResponse{Sport: toSportDTO(sport)})
}

func (h *SportHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	sport, err := h.service.GetSport(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sportResponse{Sport: toSportDTO(sport)})
}

func (h *SportHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sports, err := h.service.ListSports(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]sportDTO, len(sports))
	for i, sport := range sports {
		dtos[i] = toSportDTO(sport)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSportsResponse{Sports: dtos})
}

func (h *SportHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.service.DeleteSport(r.Context(), principal, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type sportRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

func (r sportRequest) toInput() application.SportInput {
	return application.SportInput{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
	}
}

type sportResponse struct {
	Sport sportDTO `json:"sport"`
}

type listSportsResponse struct {
	Sports []sportDTO `json:"sports"`
}

type sportDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toSportDTO(sport application.Sport) sportDTO {
	return sportDTO{
		ID:          sport.ID,
		Name:        sport.Name,
		Description: sport.Description,
		CreatedAt:   sport.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   sport.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
