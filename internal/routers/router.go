package routers

import (
	"errors"
	"net/http"
	"strings"
)

// Dependencies принимает готовые доменные роуты как http.Handler, чтобы
// пакеты хендлеров могли импортировать helpers отсюда без цикла.
type Dependencies struct {
	Users      http.Handler
	Subjects   http.Handler
	Files      http.Handler
	Quizzes    http.Handler
	Translate  http.Handler
	Middleware []func(http.Handler) http.Handler
}

type Router struct {
	mux     *http.ServeMux
	handler http.Handler
}

// New собирает все доменные роуты в один mux. Путь /files/{id}/quizzes
// принадлежит квизам, остальное под /files — файлам.
func New(deps Dependencies) (*Router, error) {
	if deps.Users == nil || deps.Subjects == nil || deps.Files == nil || deps.Quizzes == nil || deps.Translate == nil {
		return nil, errors.New("all domain handlers must be provided")
	}

	mux := http.NewServeMux()

	mux.Handle("/auth/", deps.Users)
	mux.Handle("/subjects", deps.Subjects)
	mux.Handle("/subjects/", deps.Subjects)
	mux.Handle("/translate", deps.Translate)

	mux.Handle("/files", deps.Files)
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		if isQuizSubresource(r.URL.Path) {
			deps.Quizzes.ServeHTTP(w, r)
			return
		}
		deps.Files.ServeHTTP(w, r)
	})
	mux.Handle("/quizzes/", deps.Quizzes)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var handler http.Handler = mux
	for i := len(deps.Middleware) - 1; i >= 0; i-- {
		handler = deps.Middleware[i](handler)
	}

	return &Router{mux: mux, handler: handler}, nil
}

func isQuizSubresource(path string) bool {
	rest := strings.Trim(strings.TrimPrefix(path, "/files/"), "/")
	parts := strings.Split(rest, "/")
	return len(parts) == 2 && parts[1] == "quizzes"
}

func (r *Router) Handler() http.Handler {
	if r == nil {
		return nil
	}
	return r.handler
}
