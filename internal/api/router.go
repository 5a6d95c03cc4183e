package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/quill-be/internal/api/handlers"
	"github.com/isdelr/quill-be/internal/auth"
	"github.com/isdelr/quill-be/internal/models"
	"github.com/isdelr/quill-be/internal/services"
	"github.com/isdelr/quill-be/internal/websocket"
)

// Dependencies are the services the router wires into handlers.
type Dependencies struct {
	Users    services.UserServiceProvider
	Tokens   auth.TokenServiceProvider
	Posts    services.PostServiceProvider
	Comments services.CommentServiceProvider
	Events   services.EventServiceProvider
	Hub      *websocket.Hub
	Stats    handlers.StatsCollector
	DB       handlers.Pinger

	AllowedOrigins []string
	RequestTimeout time.Duration
	AccessTokenTTL time.Duration
	SecureCookies  bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", handlers.TotalCountHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens, deps.AccessTokenTTL, deps.SecureCookies)
	postHandler := handlers.NewPostHandler(deps.Posts, deps.Comments)
	commentHandler := handlers.NewCommentHandler(deps.Comments)
	eventHandler := handlers.NewEventHandler(deps.Events)
	systemHandler := handlers.NewSystemHandler(deps.Stats, deps.DB)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Posts, deps.AllowedOrigins)

	requireAuth := auth.JWTMiddleware(deps.Tokens)
	requireAdmin := auth.RequireRole(models.RoleAdmin)

	r.Get("/healthz", systemHandler.Health)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		// Long-lived connections are exempt from the request deadline.
		r.With(requireAuth).Get("/ws", wsHandler.Serve)

		r.Group(func(r chi.Router) {
			if deps.RequestTimeout > 0 {
				r.Use(middleware.Timeout(deps.RequestTimeout))
			}

			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
				r.With(requireAuth).Post("/logout", authHandler.Logout)
				r.With(requireAuth).Get("/me", authHandler.GetMe)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)

				r.Route("/posts", func(r chi.Router) {
					r.Get("/", postHandler.List)
					r.Post("/", postHandler.Create)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", postHandler.Get)
						r.Delete("/", postHandler.Delete)
						r.Get("/comments", postHandler.ListComments)
					})
				})

				r.Post("/comments", commentHandler.Create)

				r.Group(func(r chi.Router) {
					r.Use(requireAdmin)
					r.Get("/events", eventHandler.GetRecent)
					r.Get("/admin/system", systemHandler.GetStats)
				})
			})
		})
	})

	return r
}
