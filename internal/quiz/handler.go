package quiz

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Oniqq60/study_space/internal/dto"
	"github.com/Oniqq60/study_space/internal/file"
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

// Routes вешает и /quizzes/..., и вложенные /files/{id}/quizzes.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		fileID, ok := nestedFileID(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodPost:
			h.Create(w, r, fileID)
		case http.MethodGet:
			h.ListByFile(w, r, fileID)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/quizzes/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/quizzes/")
		if strings.HasSuffix(rest, "/attempts") {
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.RecordAttempt(w, r, strings.TrimSuffix(rest, "/attempts"))
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.Get(w, r, rest)
		case http.MethodDelete:
			h.Delete(w, r, rest)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	return mux
}

// nestedFileID разбирает путь вида /files/{id}/quizzes.
func nestedFileID(path string) (string, bool) {
	rest := strings.TrimPrefix(path, "/files/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[1] != "quizzes" || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, fileID string) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.CreateQuizRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := routers.DecodeJSON(r, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	result, err := h.service.Create(r.Context(), userID, fileID, CreateInput{
		Name:         req.Name,
		NumQuestions: req.NumQuestions,
		Level:        req.Level,
	})
	if err != nil {
		writeQuizError(w, err)
		return
	}

	routers.WriteJSON(w, http.StatusCreated, mapQuiz(result.Quiz, result.Questions))
}

func (h *Handler) ListByFile(w http.ResponseWriter, r *http.Request, fileID string) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	quizzes, err := h.service.ListByFile(r.Context(), userID, fileID)
	if err != nil {
		writeQuizError(w, err)
		return
	}

	resp := make([]dto.QuizResponse, 0, len(quizzes))
	for _, q := range quizzes {
		resp = append(resp, mapQuiz(q, nil))
	}
	routers.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, quizID string) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.service.Get(r.Context(), userID, quizID)
	if err != nil {
		writeQuizError(w, err)
		return
	}
	routers.WriteJSON(w, http.StatusOK, mapQuiz(result.Quiz, result.Questions))
}

func (h *Handler) RecordAttempt(w http.ResponseWriter, r *http.Request, quizID string) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.AttemptRequest
	if err := routers.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	quiz, err := h.service.RecordAttempt(r.Context(), userID, quizID, req.Score)
	if err != nil {
		writeQuizError(w, err)
		return
	}
	routers.WriteJSON(w, http.StatusOK, mapQuiz(quiz, nil))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, quizID string) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.service.Delete(r.Context(), userID, quizID); err != nil {
		writeQuizError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeQuizError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, file.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound), errors.Is(err, file.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, file.ErrInvalidFileID),
		errors.Is(err, ErrInvalidLevel),
		errors.Is(err, ErrInvalidScore),
		errors.Is(err, ErrInvalidQuestions):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func mapQuiz(q Quiz, questions []Question) dto.QuizResponse {
	resp := dto.QuizResponse{
		ID:           q.ID.Hex(),
		Name:         q.Name,
		FileID:       q.FileID.Hex(),
		Level:        q.Level,
		HighestScore: q.HighestScore,
		AttemptCount: q.AttemptCount,
	}
	if !q.CreatedAt.IsZero() {
		resp.CreatedAt = q.CreatedAt.UTC().Format(time.RFC3339)
	}

	if questions != nil {
		resp.QuestionCount = len(questions)
		resp.Questions = make([]dto.QuestionResponse, 0, len(questions))
		for _, question := range questions {
			answers := make([]dto.AnswerResponse, 0, len(question.Answers))
			for _, a := range question.Answers {
				answers = append(answers, dto.AnswerResponse{
					Content:   a.Content,
					IsCorrect: a.IsCorrect,
					Explain:   a.Explain,
				})
			}
			resp.Questions = append(resp.Questions, dto.QuestionResponse{
				ID:          question.ID.Hex(),
				Question:    question.Question,
				Answers:     answers,
				Explanation: question.Explanation,
			})
		}
	}
	return resp
}
