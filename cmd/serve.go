package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/g2commons/internal/repositories"
	"github.com/desertthunder/g2commons/internal/server"
	"github.com/desertthunder/g2commons/internal/shared"
	"github.com/urfave/cli/v3"
)

// sessionSweepInterval controls how often expired session rows are purged.
// Expiry is also enforced on every read, so the sweep is only hygiene.
const sessionSweepInterval = 10 * time.Minute

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the upload wizard web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the home page in the default browser after startup",
			},
		},
		Action: r.Serve,
	}
}

// Serve runs the HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config := r.config
	if path := cmd.String("config"); path != "" {
		if loaded, err := shared.LoadConfig(path); err == nil {
			config = loaded
		}
	}

	if config.Credentials.Google.ClientID == "" || config.Credentials.Wikimedia.ClientID == "" {
		return fmt.Errorf("%w: google and wikimedia OAuth clients must be configured", shared.ErrMissingCredentials)
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open session database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	sessions := repositories.NewSessionRepository(db)
	app, err := server.NewApp(config, r.logger, sessions)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	srv := &http.Server{
		Addr:              config.Server.Addr(),
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go r.sweepSessions(ctx, sessions)

	errs := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	if cmd.Bool("open") {
		if err := shared.OpenBrowser("http://" + srv.Addr + "/"); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	select {
	case err := <-errs:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sweepSessions periodically deletes expired session rows.
func (r *Runner) sweepSessions(ctx context.Context, sessions *repositories.SessionRepository) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := sessions.DeleteExpired(); err != nil {
				r.logger.Warn("session sweep failed", "error", err)
			} else if n > 0 {
				r.logger.Info("swept expired sessions", "count", n)
			}
		}
	}
}
