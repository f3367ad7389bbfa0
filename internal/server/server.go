// Package server provides the webhook HTTP server and lifecycle
// management for pland.
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kyrelim/pland/internal/config"
	"github.com/kyrelim/pland/internal/gateway"
)

// MessageHandler processes one parsed inbound message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *gateway.Message)
}

// maxWebhookBody bounds how much of a webhook payload we read (1 MB).
const maxWebhookBody = 1 << 20

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// RateLimiter wraps a rate.Limiter for HTTP middleware.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter.
// reqPerSec is the sustained rate, burst is the maximum burst size.
func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(reqPerSec), burst),
	}
}

// RateLimitMiddleware enforces rate limiting on HTTP requests.
func RateLimitMiddleware(next http.Handler, rl *RateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"rate limit exceeded","code":"RATE_LIMITED"}`,
				http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewMux builds the route table: the webhook endpoint and a health
// probe. Exposed separately from Start so tests can drive it with
// httptest.
func NewMux(cfg *config.Config, handler MessageHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/webhook", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Telegram echoes the secret token on every delivery when one
		// was set at setWebhook time.
		if cfg.Server.WebhookSecret != "" {
			got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.Server.WebhookSecret)) != 1 {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		msg, err := gateway.ParseUpdate(body)
		if err != nil {
			// Acknowledge anyway: Telegram retries non-2xx deliveries,
			// and a malformed payload won't get better on retry.
			log.Printf("server: dropping malformed update: %v", err)
			w.WriteHeader(http.StatusOK)
			return
		}

		// Respond immediately and process in the background; webhook
		// deliveries time out fast and the pipeline may take seconds.
		w.WriteHeader(http.StatusOK)

		if msg == nil {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			handler.HandleMessage(ctx, msg)
		}()
	})

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	return mux
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully. Returns the actual listen address (useful with port 0 in
// tests) and an error channel that receives the eventual serve error.
func Start(ctx context.Context, cfg *config.Config, handler MessageHandler) (string, error) {
	mux := NewMux(cfg, handler)

	rateLimiter := NewRateLimiter(30.0, 60)
	h := RateLimitMiddleware(mux, rateLimiter)
	h = securityHeadersMiddleware(h)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("server: failed to listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("server: serve error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown error: %v", err)
		}
	}()

	log.Printf("server: listening on %s", actualAddr)
	return actualAddr, nil
}
