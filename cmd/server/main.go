package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rmezadev/Evaluacion-Postulantes/internal/admin"
	"github.com/rmezadev/Evaluacion-Postulantes/internal/config"
	"github.com/rmezadev/Evaluacion-Postulantes/internal/gate"
	internalhttp "github.com/rmezadev/Evaluacion-Postulantes/internal/http"
	"github.com/rmezadev/Evaluacion-Postulantes/internal/session"
	"github.com/rmezadev/Evaluacion-Postulantes/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer db.Close()

	records := store.New(db)
	if err := records.Initialize(ctx); err != nil {
		log.Fatalf("store init failed: %v", err)
	}

	sessions := session.NewManager(records, cfg.EvaluationTime)
	sessions.SetTick(cfg.CountdownTick)
	defer sessions.Close()

	controller := admin.New(records, cfg.AdminPollInterval)
	controller.StartPolling(ctx)

	server := internalhttp.NewServer(cfg, gate.New(records, cfg.AdminEmail), sessions, controller)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("evaluations http listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
