package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/gamegen-api/internal/api"
	apiMiddleware "github.com/phrazzld/gamegen-api/internal/api/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Trace(app.logger))
	r.Use(apiMiddleware.Metrics(app.metrics))
	r.Use(middleware.Recoverer)

	generationHandler := api.NewGenerationHandler(
		app.taskRunner,
		app.taskStore,
		api.WithLegacyPolling(app.config.API.LegacyPolling),
	)

	r.Get("/", api.Index)
	r.Get("/health", api.Health)
	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())

	r.Post("/generate-game", generationHandler.SubmitGeneration)
	r.Get("/get-result/{task_id}", generationHandler.GetResult)

	return r
}
