// Package router assembles the HTTP surface: the channel webhook, health and
// metrics endpoints, and the shareable WhatsApp deep link.
package router

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/brainytots/whatsapp-connect/internal/http/middleware"
	"github.com/brainytots/whatsapp-connect/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	WebhookHandler http.Handler
	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler

	// WhatsAppNumber is the bot's number in international digits-only form,
	// used to build wa.me deep links.
	WhatsAppNumber string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/", serviceInfo)
	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler)
	}
	if cfg.WebhookHandler != nil {
		r.Post("/webhook", cfg.WebhookHandler.ServeHTTP)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	r.Get("/wa-link", waLink(cfg.WhatsAppNumber))

	return r
}

func serviceInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "whatsapp-connect",
		"status":  "running",
	})
}

// waLink redirects browsers to a wa.me deep link that opens a chat with the
// bot, pre-filled so the first inbound message starts the flow.
func waLink(number string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if number == "" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "whatsapp number not configured",
			})
			return
		}
		text := r.URL.Query().Get("text")
		if text == "" {
			text = "Hi"
		}
		target := "https://wa.me/" + number + "?text=" + url.QueryEscape(text)
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
