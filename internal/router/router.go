package router

import (
	"net/http"

	"kart-admin/internal/handler"
	"kart-admin/internal/middleware"
	"kart-admin/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Options configures the router.
type Options struct {
	APIKey      string
	CORSOrigins []string
	// UploadDir, when set, is served under /uploads/ without authentication
	// so stored images can be shown by the browser.
	UploadDir string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(pages *service.Pages, opts Options, logger zerolog.Logger) http.Handler {
	resources := handler.NewResourceHandler(pages, logger)
	forms := handler.NewFormHandler(pages, logger)
	orders := handler.NewOrderHandler(pages.Orders(), logger)
	categories := handler.NewCategoryHandler(pages.Categories(), logger)

	r := chi.NewRouter()

	// Recovery -> RequestID -> Logging -> CORS, then APIKeyAuth on /api
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(opts.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	})

	if opts.UploadDir != "" {
		files := http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadDir)))
		r.Get("/uploads/*", files.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(opts.APIKey, logger))

		r.Get("/orders/statuses", orders.Statuses)
		r.Put("/orders/{id}/status", orders.UpdateStatus)
		r.Get("/categories/tree", categories.Tree)

		r.Route("/{resource}", func(r chi.Router) {
			r.Get("/", resources.List)

			r.Route("/form", func(r chi.Router) {
				r.Post("/", forms.Open)
				r.Get("/", forms.Get)
				r.Delete("/", forms.Cancel)
				r.Post("/submit", forms.Submit)
				r.Put("/fields/{field}", forms.SetField)
				r.Post("/collections/{name}", forms.AddRecord)
				r.Delete("/collections/{name}/{id}", forms.RemoveRecord)
				r.Post("/collections/{name}/{id}/default", forms.SetDefault)
				r.Post("/images/{field}", forms.UploadImage)
				r.Delete("/images/{field}", forms.RemoveImage)
			})

			r.Delete("/{id}", resources.Delete)
		})
	})

	return r
}
