// Command authserver runs the auth HTTP boundary as a standalone service
// backed by postgres.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/planfair/authcore"
	"github.com/planfair/authcore/oauth2"
	authgorm "github.com/planfair/authcore/stores/gorm"
)

func main() {
	cfg, err := authcore.ConfigFromEnv()
	if err != nil {
		slog.Error("config parse failed", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		slog.Error("AUTH_DATABASE_URL is required")
		os.Exit(1)
	}

	store, err := authgorm.Open(cfg.DatabaseURL)
	if err != nil {
		slog.Error("database open failed", "error", err)
		os.Exit(1)
	}

	auth := authcore.New(cfg, store)
	if cfg.GoogleClientID != "" {
		auth.AddOAuthProvider(oauth2.NewGoogle(auth.Users, auth.Keys, auth.Sessions,
			cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.BaseURL+"/auth/google/callback"))
	}
	if cfg.FacebookClientID != "" {
		auth.AddOAuthProvider(oauth2.NewFacebook(auth.Users, auth.Keys, auth.Sessions,
			cfg.FacebookClientID, cfg.FacebookClientSecret, cfg.BaseURL+"/auth/facebook/callback"))
	}

	mux := http.NewServeMux()
	mux.Handle("/auth/", http.StripPrefix("/auth", auth.Handler()))

	addr := os.Getenv("AUTH_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	slog.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
