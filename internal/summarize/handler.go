package summarize

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Oniqq60/study_space/internal/dto"
	"github.com/Oniqq60/study_space/internal/routers"
)

var (
	ErrEmptyContent = errors.New("content required")
	ErrInvalidLang  = errors.New("target language required")
)

type Authorizer interface {
	Authorize(r *http.Request) (primitive.ObjectID, error)
}

type Translator interface {
	Translate(ctx context.Context, content, targetLang string) (string, error)
}

// Handler обслуживает перевод HTML конспектов.
type Handler struct {
	translator Translator
	auth       Authorizer
	timeout    time.Duration
	log        *zap.SugaredLogger
}

func NewHandler(translator Translator, auth Authorizer, timeout time.Duration, log *zap.SugaredLogger) *Handler {
	return &Handler{translator: translator, auth: auth, timeout: timeout, log: log}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/translate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.Translate(w, r)
	})
	return mux
}

func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.Authorize(r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.TranslateRequest
	if err := routers.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, ErrEmptyContent.Error(), http.StatusBadRequest)
		return
	}
	targetLang := strings.TrimSpace(req.TargetLang)
	if targetLang == "" {
		http.Error(w, ErrInvalidLang.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.translator.Translate(ctx, req.Content, targetLang)
	if err != nil {
		h.log.Errorf("translation to %s failed: %v", targetLang, err)
		http.Error(w, "translation failed", http.StatusBadGateway)
		return
	}

	routers.WriteJSON(w, http.StatusOK, dto.TranslateResponse{
		Result:     result,
		TargetLang: targetLang,
	})
}
