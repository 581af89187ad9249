package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/peerview/backend/internal/auth"
	"github.com/peerview/backend/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	authHandler         *AuthHandler
	googleOAuthHandler  *GoogleOAuthHandler
	notificationHandler *NotificationHandler
	cohortHandler       *CohortHandler
	publicationHandler  *PublicationHandler
	reviewHandler       *ReviewHandler
	healthHandler       *HealthHandler
	relay               *Relay
	jwtManager          *auth.JWTManager
	logger              *zap.Logger
}

// NewRouter creates a new router
func NewRouter(
	authHandler *AuthHandler,
	googleOAuthHandler *GoogleOAuthHandler,
	notificationHandler *NotificationHandler,
	cohortHandler *CohortHandler,
	publicationHandler *PublicationHandler,
	reviewHandler *ReviewHandler,
	healthHandler *HealthHandler,
	relay *Relay,
	jwtManager *auth.JWTManager,
	logger *zap.Logger,
) *Router {
	return &Router{
		authHandler:         authHandler,
		googleOAuthHandler:  googleOAuthHandler,
		notificationHandler: notificationHandler,
		cohortHandler:       cohortHandler,
		publicationHandler:  publicationHandler,
		reviewHandler:       reviewHandler,
		healthHandler:       healthHandler,
		relay:               relay,
		jwtManager:          jwtManager,
		logger:              logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware())
	r.Use(chimiddleware.Compress(5))

	// Health endpoints (no auth required)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.healthHandler.Health)
		r.Get("/ready", rt.healthHandler.Ready)
		r.Get("/live", rt.healthHandler.Live)
	})

	// Realtime relay. The endpoint is open; the client decides which
	// relayed notifications are addressed to it.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuthMiddleware(rt.jwtManager))
		r.Get("/ws", rt.relay.ServeWS)
	})

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", rt.authHandler.Register)
			r.Post("/login", rt.authHandler.Login)
			r.Post("/refresh", rt.authHandler.Refresh)
			r.Post("/logout", rt.authHandler.Logout)
			r.Post("/google", rt.authHandler.GoogleLogin)
			// Browser redirect variant of the Google sign-in
			r.Get("/google/login", rt.googleOAuthHandler.Login)
			r.Get("/google/callback", rt.googleOAuthHandler.Callback)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(rt.jwtManager))

			// User routes
			r.Get("/me", rt.authHandler.Me)
			r.Put("/me", rt.authHandler.UpdateProfile)
			r.Put("/me/avatar", rt.authHandler.UpdateAvatar)
			r.Delete("/me", rt.authHandler.DeleteAccount)
			r.Get("/users", rt.authHandler.SearchUsers)
			r.Post("/auth/logout-all", rt.authHandler.LogoutAll)

			// Notification feed
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", rt.notificationHandler.GetFeed)
				r.Post("/", rt.notificationHandler.CreateNotification)
				r.Put("/fcm-token", rt.notificationHandler.UpdateFCMToken)
				r.Get("/{id}", rt.notificationHandler.GetNotification)
				r.Delete("/{id}", rt.notificationHandler.DismissNotification)
			})

			// Cohorts
			r.Route("/cohorts", func(r chi.Router) {
				r.Get("/", rt.cohortHandler.List)
				r.Post("/", rt.cohortHandler.Create)
				r.Get("/mine", rt.cohortHandler.MyCohorts)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", rt.cohortHandler.Get)
					r.Put("/", rt.cohortHandler.Update)
					r.Delete("/", rt.cohortHandler.Delete)
					r.Post("/admin", rt.cohortHandler.TransferAdmin)
					r.Post("/join", rt.cohortHandler.Join)
					r.Post("/leave", rt.cohortHandler.Leave)
					r.Get("/members", rt.cohortHandler.Members)
				})
			})

			// Publications, citations and reviews
			r.Route("/publications", func(r chi.Router) {
				r.Get("/", rt.publicationHandler.List)
				r.Post("/", rt.publicationHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", rt.publicationHandler.Get)
					r.Put("/", rt.publicationHandler.Update)
					r.Delete("/", rt.publicationHandler.Delete)
					r.Get("/citations", rt.publicationHandler.Citations)
					r.Post("/citations", rt.publicationHandler.AddCitations)
					r.Get("/reviews", rt.reviewHandler.Reviews)
					r.Post("/reviews", rt.reviewHandler.PostReview)
					r.Get("/rating", rt.reviewHandler.Rating)
				})
			})
			r.Delete("/citations/{citationID}", rt.publicationHandler.DeleteCitation)
			r.Get("/areas", rt.publicationHandler.Areas)

			r.Route("/reviews/{reviewID}", func(r chi.Router) {
				r.Delete("/", rt.reviewHandler.DeleteReview)
				r.Get("/comments", rt.reviewHandler.Comments)
				r.Post("/comments", rt.reviewHandler.PostComment)
			})
			r.Delete("/comments/{commentID}", rt.reviewHandler.DeleteComment)
		})
	})

	return r
}
