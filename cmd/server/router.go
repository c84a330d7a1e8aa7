package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tessling/optic-api/internal/api"
	apiMiddleware "github.com/tessling/optic-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	// Multipart bodies carry encoding overhead on top of the image itself
	maxBodyBytes := app.config.Upload.MaxBytes + 1<<20

	imageHandler := api.NewImageHandler(app.imageService, maxBodyBytes)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.config.Auth.JWTSecret)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/images/upload", imageHandler.UploadImage)
		r.Get("/images/{id}/results", imageHandler.GetImageResults)
		r.Delete("/images/{id}", imageHandler.DeleteImage)

		r.Get("/users/{userID}/images", imageHandler.ListUserImages)

		r.Get("/stats", imageHandler.GetStats)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
