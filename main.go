package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mbolis/form-flow/app"
	"github.com/mbolis/form-flow/config"
	"github.com/mbolis/form-flow/database"
	"github.com/mbolis/form-flow/httpx"
	"github.com/mbolis/form-flow/log"
	"github.com/mbolis/form-flow/routes"
)

func main() {
	// a missing .env file is fine
	_ = godotenv.Load()

	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	bearerServer := httpx.NewBearerServer(db, cfg)

	app := app.App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
	}

	handler := routes.Wire(app)

	if err = runServer(cfg, handler); err != nil {
		log.Error("main.server:", err)
	}
}

const shutdownTimeout = 10 * time.Second

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Listening on %s (answer escaping: %t)", cfg.Url(), cfg.EscapeAnswers)
	return serve(ctx, srv, srv.ListenAndServe)
}

// serve runs listen until ctx is done, then shuts srv down and returns only
// once in-flight requests have completed.
func serve(ctx context.Context, srv *http.Server, listen func() error) error {
	errc := make(chan error, 1)
	go func() {
		errc <- listen()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
