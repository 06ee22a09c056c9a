package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/lead-followup/internal/infra/http/handlers"
	"github.com/xavierca1/lead-followup/internal/infra/http/middleware"
	"github.com/xavierca1/lead-followup/internal/infra/http/webhookauth"
)

func (a *App) routes() http.Handler {
	webhookHandler := handlers.NewWebhookHandler(a.inbound)
	clickHandler := handlers.NewClickHandler(a.trackClick)
	followUpHandler := handlers.NewFollowUpHandler(a.followUp)
	interactiveHandler := handlers.NewInteractiveHandler(a.admin, a.stats)
	messageHandler := handlers.NewMessageHandler(a.day1, a.admin)
	healthHandler := handlers.NewHealthHandler("1.0.0", a.healthChecks())

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	if a.config.Telemetry.Enabled {
		r.Use(middleware.Tracing(a.config.App.Name))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", webhookauth.TimestampHeader, webhookauth.SignatureHeader},
	}))

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.With(webhookauth.Middleware(a.config.Webhook.Secret, time.Now)).
		Post("/webhook", webhookHandler.Handle)
	r.With(a.clickRateLimit()).
		Get("/track_click", clickHandler.TrackClick)

	r.Post("/send_follow_up", followUpHandler.SendFollowUp)
	r.Post("/send_template_message/{contactID}", messageHandler.SendTemplateMessage)
	r.Get("/get_contact_messages/{contactID}", messageHandler.ContactMessages)
	r.Get("/check_message_status/{contactID}", messageHandler.CheckMessageStatus)

	r.Get("/get_click_stats", interactiveHandler.ClickStats)
	r.Get("/seller_responses/stats", interactiveHandler.SellerStats)
	r.Get("/message_history/{phone}", interactiveHandler.MessageHistory)
	r.Post("/handle_days4_response", interactiveHandler.HandleDays4Response)
	r.Post("/resend_seller_selection/{phone}", interactiveHandler.ResendSellerSelection)
	r.Post("/send_error_message", interactiveHandler.SendErrorMessage)

	return r
}

func (a *App) clickRateLimit() func(http.Handler) http.Handler {
	if a.limiter != nil {
		return middleware.RateLimit(a.limiter, a.logger)
	}
	return middleware.LocalRateLimit(a.config.Tracking.RateLimit, time.Minute)
}
