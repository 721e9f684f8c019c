package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nadhifr/eventra/internal/auth"
	"github.com/nadhifr/eventra/internal/handlers"
	"github.com/nadhifr/eventra/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	attendanceHandler *handlers.AttendanceHandler,
	registrationHandler *handlers.RegistrationHandler,
	paymentHandler *handlers.PaymentHandler,
	certificateHandler *handlers.CertificateHandler,
	eventHandler *handlers.EventHandler,
	authHandler *handlers.AuthHandler,
	tokenManager *auth.TokenManager,
) {
	verifyLimit := middleware.RateLimitByIP(middleware.DefaultVerifyRateLimit())
	authLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())

	// Public routes
	router.With(verifyLimit).Post("/attendance/verify", attendanceHandler.Verify)
	router.Post("/events/{id}/register", registrationHandler.Register)
	router.Post("/payments/callback", paymentHandler.Callback)
	router.Get("/certificates/{number}", certificateHandler.Lookup)
	router.Get("/certificates/{number}/download", certificateHandler.Download)
	router.With(authLimit).Post("/auth/login", authHandler.Login)

	router.Handle("/metrics", promhttp.Handler())

	// Admin routes
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin(tokenManager))

		r.Post("/events", eventHandler.Create)
		r.Get("/events/{id}", eventHandler.Get)
		r.Put("/events/{id}/template", eventHandler.UploadTemplate)
		r.Post("/events/{id}/certificates/generate", certificateHandler.GenerateForEvent)
		r.Post("/attendance/verify-manual", attendanceHandler.VerifyManual)
		r.Post("/participants/{id}/resend-token", registrationHandler.ResendToken)
	})
}
