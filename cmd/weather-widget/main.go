package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	httpapi "github.com/i474232898/weather-widget/internal/api/http"
	"github.com/i474232898/weather-widget/internal/config"
	"github.com/i474232898/weather-widget/internal/scheduler"
	"github.com/i474232898/weather-widget/internal/store"
	"github.com/i474232898/weather-widget/internal/timezone"
	"github.com/i474232898/weather-widget/internal/tui"
	"github.com/i474232898/weather-widget/internal/weather"
	"github.com/i474232898/weather-widget/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

	logOut, closeLog, err := logOutput(cfg, interactive)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer closeLog()

	logger := cfg.NewLogger(logOut)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for the open-meteo endpoints.
	httpClient := &http.Client{
		Timeout: cfg.HTTP.Timeout,
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.Rate.RPS), cfg.Rate.Burst)

	web := providers.NewOpenMeteoClient(httpClient, limiter, logger)
	commands := providers.NewShellRunner(cfg.Command.Timeout, logger)

	// In-memory forecast history with configured retention.
	memStore := store.NewMemoryStore(cfg.Store.MaxHistory, cfg.Store.MaxAge)

	machine := weather.NewMachine(cfg.Resolver())
	service, err := weather.NewService(machine, weather.NewState(cfg.Location), commands, web, memStore, logger)
	if err != nil {
		logger.Error("failed to create weather service", "error", err)
		os.Exit(1)
	}

	runDone := make(chan error, 1)
	go func() {
		runDone <- service.Run(ctx)
	}()

	if cfg.AutoStart {
		if err := service.Post(ctx, weather.KeyEvent{Kind: weather.KeyConfirm}); err != nil {
			logger.Warn("failed to post initial fetch", "error", err)
		}
	}

	// Scheduler that periodically reloads the displayed forecast.
	sched := scheduler.New(cfg.Refresh.Interval, service, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	var app *fiber.App
	if cfg.API.Enabled {
		app = newApp(service, web, logOut)
		go func() {
			if err := app.Listen(cfg.GetServerAddr()); err != nil {
				logger.Warn("fiber server stopped", "error", err)
			}
		}()
	}

	if interactive {
		if err := runTerminal(ctx, service, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("terminal stopped", "error", err)
		}
	} else {
		logger.Info("stdin is not a terminal, running headless")
		<-ctx.Done()
	}
	stop()

	if app != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Warn("error during shutdown", "error", err)
		}
	}

	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("weather service stopped", "error", err)
	}
}

// logOutput picks the log destination. While the terminal UI owns stdout,
// logs go to the configured file or nowhere.
func logOutput(cfg *config.AppConfig, interactive bool) (io.Writer, func(), error) {
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}
	if interactive {
		return io.Discard, func() {}, nil
	}
	return os.Stderr, func() {}, nil
}

func newApp(service *weather.Service, web *providers.OpenMeteoClient, logOut io.Writer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "weather-widget",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New(fiberlogger.Config{Output: logOut}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-widget",
			"phase":   service.Snapshot().Phase,
			"http":    web.Stats(),
		})
	})

	httpapi.RegisterRoutes(app, service)
	return app
}

// runTerminal puts stdin into raw mode and runs the terminal UI until Ctrl-C
// or ctx is done.
func runTerminal(ctx context.Context, service *weather.Service, logger *slog.Logger) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	zones, err := timezone.New()
	if err != nil {
		logger.Warn("timezone lookup unavailable, showing local time", "error", err)
		zones = nil
	}

	model := tui.NewModel(service.Snapshot(), service.Updates(), func(ev weather.KeyEvent) error {
		return service.Post(ctx, ev)
	}, tui.NewRenderer(zones, true))

	// Reads from stdin cannot be interrupted, so the reader is abandoned
	// rather than joined when the program ends.
	return tui.Run(ctx, model,
		tea.WithInput(tui.NewInput(os.Stdin)),
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)
}
