package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/marketplace-be/internal/api/handlers"
	"github.com/isdelr/marketplace-be/internal/auth"
	"github.com/isdelr/marketplace-be/internal/logger"
	"github.com/isdelr/marketplace-be/internal/services"
	"github.com/isdelr/marketplace-be/internal/websocket"
)

// Deps bundles what the router needs to build its handlers.
type Deps struct {
	Users          services.UserServiceProvider
	Categories     services.CategoryServiceProvider
	Products       services.ProductServiceProvider
	Events         services.EventServiceProvider
	Tokens         auth.TokenVerifier
	Hub            *websocket.Hub
	DB             handlers.Pinger
	AllowedOrigins []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(d.Users)
	categoryHandler := handlers.NewCategoryHandler(d.Categories)
	productHandler := handlers.NewProductHandler(d.Products)
	eventHandler := handlers.NewEventHandler(d.Events)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, d.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(d.DB)

	requireAuth := auth.JWTMiddleware(d.Tokens)

	r.Get("/healthz", healthHandler.Check)
	r.Post("/signup", userHandler.Signup)
	r.Post("/login", userHandler.Login)

	r.Route("/api", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.GetAll)
			r.Get("/{name}", categoryHandler.Get)
			r.With(requireAuth).Post("/", categoryHandler.Create)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.GetAll)
			r.Get("/category/{category}", productHandler.GetByCategory)
			r.Get("/{id}", productHandler.Get)
			r.With(requireAuth).Post("/", productHandler.Create)
			r.With(requireAuth).Delete("/{id}", productHandler.Delete)
		})

		r.Get("/events", eventHandler.GetRecent)

		// Live listing feed
		r.Get("/ws", wsHandler.Serve)
		r.Get("/ws/categories/{name}", wsHandler.Serve)
	})

	return r
}
