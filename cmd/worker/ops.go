package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/tendant/simple-ingest/pkg/simpleingest"
)

// startOpsServer serves health probes and dispatch counters alongside the
// consumer. The returned channel closes once the server has shut down.
func startOpsServer(ctx context.Context, port uint16, sink *simpleingest.CountingEventSink, logger *slog.Logger) <-chan struct{} {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		render.PlainText(w, req, "ok")
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		render.PlainText(w, req, "ok")
	})
	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, sink.Counts())
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}

	go func() {
		logger.Info("Ops server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Ops server error", "err", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Ops server forced to shutdown", "err", err)
		}
	}()
	return done
}
