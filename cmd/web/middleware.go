package main

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/polluterofminds/parallax-server/internal/contexthelpers"
	"github.com/polluterofminds/parallax-server/internal/logging"
)

// playerHeader carries the wallet address of the player, set by the authenticating proxy.
const playerHeader = "X-Player-Address"

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// logRequest tags the request context with a request id so every log line of the request can be correlated.
func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			proto  = r.Proto
			method = r.Method
			uri    = r.URL.RequestURI()
			id     = uuid.NewString()
		)
		r = contexthelpers.SetRequestID(r, id)
		ctx := logging.WithAttrs(r.Context(), slog.String("request_id", id))
		r = r.WithContext(ctx)

		app.logger.LogAttrs(ctx, slog.LevelDebug, "received request",
			slog.String("proto", proto), slog.String("method", method), slog.String("uri", uri))

		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// requirePlayer reads the player address set by the authenticating proxy in front of the server.
func (app *application) requirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := strings.TrimSpace(r.Header.Get(playerHeader))
		if address == "" {
			app.clientError(w, r, http.StatusUnauthorized, "missing player address")
			return
		}
		r = contexthelpers.SetPlayerAddress(r, address)
		r = r.WithContext(logging.WithAttrs(r.Context(), slog.String("player", address)))

		next.ServeHTTP(w, r)
	})
}

// requireAdmin checks the bearer token. Without a configured token the guarded routes don't exist.
func (app *application) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.cfg.AdminToken == "" {
			app.notFound(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(app.cfg.AdminToken)) != 1 {
			app.clientError(w, r, http.StatusUnauthorized, "invalid admin token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
