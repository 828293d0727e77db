package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/urfave/cli/v3"

	httpapi "github.com/i474232898/weather-widgets/internal/api/http"
	"github.com/i474232898/weather-widgets/internal/common"
	"github.com/i474232898/weather-widgets/internal/config"
	"github.com/i474232898/weather-widgets/internal/scheduler"
	"github.com/i474232898/weather-widgets/internal/ui"
)

func main() {
	app := &cli.Command{
		Name:  "weather-widgets",
		Usage: "Track current weather and forecasts for the cities you care about",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Sources: cli.EnvVars("WEATHER_CONFIG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if path := cmd.String("config"); path != "" {
				return ctx, os.Setenv("WEATHER_CONFIG", path)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{serveCommand(), dashboardCommand()},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		l := common.NewLogger(nil, "info")
		if errors.Is(err, config.ErrMissingAPIKey) {
			l.Fatal("configuration error: set OPENWEATHER_API_KEY in the environment, .env or config.toml")
		}
		l.Fatal("application error", "err", err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API with background widget refresh",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "Listen port (overrides PORT)",
			},
		},
		Action: serve,
	}
}

func dashboardCommand() *cli.Command {
	return &cli.Command{
		Name:    "dashboard",
		Aliases: []string{"tui"},
		Usage:   "Open the interactive terminal dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the dashboard owns the terminal",
				Value: "weather-widgets.log",
			},
		},
		Action: dashboard,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	r, err := NewRunner(ctx, nil)
	if err != nil {
		return err
	}
	defer r.Close()

	// Scheduler that periodically refreshes widgets and prunes the caches.
	sched := scheduler.New(r.cfg.RefreshInterval, r.service, r.logger, r.search)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-widgets",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          r.cfg.FetchTimeout + 5*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, r.service, r.search)

	port := r.cfg.Port
	if p := cmd.String("port"); p != "" {
		port = p
	}

	go func() {
		r.logger.Info("listening", "port", port)
		if err := app.Listen(":" + port); err != nil {
			r.logger.Error("fiber server stopped", "err", err)
		}
	}()

	// Wait for termination signal
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		r.logger.Error("error during shutdown", "err", err)
	}
	return nil
}

func dashboard(ctx context.Context, cmd *cli.Command) error {
	// Logs go to a file so they do not interfere with TUI rendering.
	f, err := os.OpenFile(cmd.String("log-file"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	r, err := NewRunner(ctx, f)
	if err != nil {
		return err
	}
	defer r.Close()

	sched := scheduler.New(r.cfg.RefreshInterval, r.service, r.logger, r.search)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	session := r.search.NewSession(r.cfg.SearchDebounce, nil)
	defer session.Close()

	p := tea.NewProgram(ui.NewModel(ctx, r.service, session), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running dashboard: %w", err)
	}
	return nil
}
