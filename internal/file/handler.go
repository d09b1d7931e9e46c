package file

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Oniqq60/study_space/internal/dto"
	"github.com/Oniqq60/study_space/internal/routers"
	"github.com/Oniqq60/study_space/internal/subject"
)

// Authorizer resolves the requesting user from the request credentials.
type Authorizer interface {
	Authorize(r *http.Request) (primitive.ObjectID, error)
}

type Handler struct {
	service Service
	auth    Authorizer
	quizzes QuizGenerator
	maxSize int64
	log     *zap.SugaredLogger
}

// NewHandler: quizzes может быть nil, тогда generateQuiz в форме
// игнорируется.
func NewHandler(service Service, auth Authorizer, quizzes QuizGenerator, maxSize int64, log *zap.SugaredLogger) *Handler {
	return &Handler{
		service: service,
		auth:    auth,
		quizzes: quizzes,
		maxSize: maxSize,
		log:     log,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.Upload(w, r)
		case http.MethodGet:
			h.List(w, r)
		default:
			w.Header().Set("Allow", "GET, POST")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/summary") {
			if r.Method != http.MethodGet {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.GetSummary(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.Get(w, r)
		case http.MethodDelete:
			h.Delete(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	return mux
}

// Upload принимает multipart/form-data: file, subject, createSummary.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+1024*1024)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		http.Error(w, "failed to parse multipart form", http.StatusBadRequest)
		return
	}

	upload, fileHeader, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer upload.Close()

	content, err := io.ReadAll(upload)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	subjectID := r.FormValue("subject")
	if subjectID == "" {
		http.Error(w, "subject is required", http.StatusBadRequest)
		return
	}

	filename := r.FormValue("filename")
	if filename == "" {
		filename = fileHeader.Filename
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}

	createSummary := parseBool(r.FormValue("createSummary"))

	result, err := h.service.Upload(r.Context(), UploadInput{
		UserID:        userID,
		SubjectID:     subjectID,
		Filename:      filename,
		ContentType:   contentType,
		Content:       content,
		CreateSummary: createSummary,
		MaxSize:       h.maxSize,
	})
	if err != nil {
		writeFileError(w, err)
		return
	}

	if parseBool(r.FormValue("generateQuiz")) && h.quizzes != nil {
		numQuestions, _ := strconv.Atoi(r.FormValue("quizQuestions"))
		level := r.FormValue("quizDifficulty")
		if err := h.quizzes.GenerateForFile(r.Context(), userID, result.File.ID.Hex(), result.File.Name, numQuestions, level); err != nil {
			// Файл уже сохранён; неудачная генерация квиза загрузку
			// не отменяет.
			h.log.Warnf("quiz generation on upload failed for %s: %v", result.File.ID.Hex(), err)
		}
	}

	resp := dto.UploadResponse{
		File: mapFile(result.File, result.SubjectName),
		Processing: dto.ProcessingStatus{
			Queued: result.Queued,
			Error:  result.QueueError,
		},
	}
	routers.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	page := parsePage(r)
	subjectID := r.URL.Query().Get("subject")
	query := r.URL.Query().Get("q")

	var result ListResult
	if subjectID != "" {
		result, err = h.service.ListBySubject(r.Context(), userID, subjectID, page)
	} else {
		result, err = h.service.ListByUser(r.Context(), userID, query, page)
	}
	if err != nil {
		writeFileError(w, err)
		return
	}

	files := make([]dto.FileResponse, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, mapFile(f, result.SubjectNames[f.SubjectID]))
	}

	routers.WriteJSON(w, http.StatusOK, dto.FileListResponse{
		Files:      files,
		Pagination: dto.NewPagination(page.Number, page.Limit, result.Total),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/files/")
	if id == "" {
		http.Error(w, "file id required", http.StatusBadRequest)
		return
	}

	f, subjectName, err := h.service.GetByID(r.Context(), userID, id)
	if err != nil {
		writeFileError(w, err)
		return
	}

	routers.WriteJSON(w, http.StatusOK, mapFile(f, subjectName))
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/files/")
	id = strings.TrimSuffix(id, "/summary")
	id = strings.Trim(id, "/")
	if id == "" {
		http.Error(w, "file id required", http.StatusBadRequest)
		return
	}

	f, _, err := h.service.GetByID(r.Context(), userID, id)
	if err != nil {
		writeFileError(w, err)
		return
	}
	if f.SummaryContent == "" {
		http.Error(w, "summary not ready", http.StatusNotFound)
		return
	}

	routers.WriteJSON(w, http.StatusOK, dto.SummaryResponse{
		FileID:  f.ID.Hex(),
		Name:    f.Name,
		Summary: f.SummaryContent,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/files/")
	if id == "" {
		http.Error(w, "file id required", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeFileError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeFileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound), errors.Is(err, subject.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrFileTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, ErrInvalidFileID),
		errors.Is(err, ErrInvalidSubjectID),
		errors.Is(err, ErrEmptyContent),
		errors.Is(err, ErrInvalidFilename),
		errors.Is(err, ErrInvalidFileType),
		errors.Is(err, ErrPathTraversal),
		errors.Is(err, ErrInvalidContentType):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func mapFile(f File, subjectName string) dto.FileResponse {
	resp := dto.FileResponse{
		ID:           f.ID.Hex(),
		Name:         f.Name,
		Type:         strings.TrimPrefix(f.Type, "."),
		Size:         dto.FormatSize(f.SizeBytes),
		SizeBytes:    f.SizeBytes,
		MimeType:     f.MimeType,
		URL:          f.StorageURL,
		Pages:        f.Pages,
		Subject:      subjectName,
		SubjectID:    f.SubjectID.Hex(),
		HasSummary:   f.SummaryContent != "",
		SummaryCount: f.SummaryCount,
		QuizCount:    f.QuizCount,
	}
	if !f.UploadDate.IsZero() {
		resp.UploadDate = f.UploadDate.UTC().Format(time.RFC3339)
	}
	if !f.LastModified.IsZero() {
		resp.LastModified = f.LastModified.UTC().Format(time.RFC3339)
	}
	return resp
}

func parsePage(r *http.Request) Page {
	page := 1
	limit := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	return Page{Number: page, Limit: limit}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
