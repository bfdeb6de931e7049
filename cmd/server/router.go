package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quenby/atelier-api/internal/api"
	apiMiddleware "github.com/quenby/atelier-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func setupRouter(q api.TaskQueue, tasks api.TaskReaderWriter, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	taskHandler := api.NewTaskHandler(q, tasks, logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", taskHandler.SubmitTask)
		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Get("/tasks/{id}/artifacts", taskHandler.GetTaskArtifacts)
		r.Delete("/tasks/{id}", taskHandler.CancelTask)
		r.Get("/queue/status", taskHandler.QueueStatus)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
