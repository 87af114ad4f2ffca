package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/tinysteps/carebot/internal/auth"
	"github.com/tinysteps/carebot/internal/config"
	"github.com/tinysteps/carebot/internal/llm"
	"github.com/tinysteps/carebot/internal/logger"
	"github.com/tinysteps/carebot/internal/server"
	"github.com/tinysteps/carebot/internal/store"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	if err := godotenv.Load(); err == nil {
		logger.L.Debug("loaded .env")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	if cfg.Auth.JWTSecret == "" {
		logger.L.Error("auth.jwt_secret is required")
		os.Exit(1)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.L.Error("failed to open store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	responder := llm.NewResponder(llm.NewClient(cfg.LLM), cfg.LLM)
	svc := server.NewChatService(st, responder, cfg.Chat)
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)

	srv := server.New(st, svc, verifier)
	addr := server.Addr(cfg.Server)
	logger.L.Info("starting server", "address", addr, "store", cfg.Store.Path, "model", cfg.LLM.Model)
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		logger.L.Error("server exited", "error", err)
		os.Exit(1)
	}
}
