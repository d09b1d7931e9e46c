package subject

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Oniqq60/study_space/internal/dto"
	"github.com/Oniqq60/study_space/internal/routers"
)

type Authorizer interface {
	Authorize(r *http.Request) (primitive.ObjectID, error)
}

type Handler struct {
	service Service
	auth    Authorizer
}

func NewHandler(service Service, auth Authorizer) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/subjects", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.Create(w, r)
		case http.MethodGet:
			h.List(w, r)
		default:
			w.Header().Set("Allow", "GET, POST")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/subjects/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Get(w, r)
		case http.MethodPut, http.MethodPatch:
			h.Update(w, r)
		case http.MethodDelete:
			h.Delete(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.SubjectRequest
	if err := routers.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	subj, err := h.service.Create(r.Context(), userID, req.Name, req.Color)
	if err != nil {
		writeSubjectError(w, err)
		return
	}

	routers.WriteJSON(w, http.StatusCreated, mapSubject(subj, Stats{}))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	items, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeSubjectError(w, err)
		return
	}

	resp := make([]dto.SubjectResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, mapSubject(item.Subject, item.Stats))
	}
	routers.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/subjects/")
	if id == "" {
		http.Error(w, "subject id required", http.StatusBadRequest)
		return
	}

	subj, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		writeSubjectError(w, err)
		return
	}
	routers.WriteJSON(w, http.StatusOK, mapSubject(subj, Stats{}))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/subjects/")
	if id == "" {
		http.Error(w, "subject id required", http.StatusBadRequest)
		return
	}

	var req dto.SubjectRequest
	if err := routers.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	subj, err := h.service.Update(r.Context(), userID, id, req.Name, req.Color)
	if err != nil {
		writeSubjectError(w, err)
		return
	}
	routers.WriteJSON(w, http.StatusOK, mapSubject(subj, Stats{}))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/subjects/")
	if id == "" {
		http.Error(w, "subject id required", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeSubjectError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeSubjectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func mapSubject(s Subject, stats Stats) dto.SubjectResponse {
	resp := dto.SubjectResponse{
		ID:             s.ID.Hex(),
		Name:           s.Name,
		Color:          s.Color,
		TotalFiles:     stats.TotalFiles,
		TotalSummaries: stats.TotalSummaries,
		TotalQuizzes:   stats.TotalQuizzes,
	}
	if !s.CreatedAt.IsZero() {
		resp.CreatedAt = s.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
