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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pdv-terminal/api"
	"github.com/angelmondragon/pdv-terminal/api/controllers"
	"github.com/angelmondragon/pdv-terminal/api/routes"
	"github.com/angelmondragon/pdv-terminal/internal/attendant"
	"github.com/angelmondragon/pdv-terminal/internal/poll"
	"github.com/angelmondragon/pdv-terminal/internal/terminal"
	"github.com/angelmondragon/pdv-terminal/pkg/apiclient"
	"github.com/angelmondragon/pdv-terminal/pkg/config"
	"github.com/angelmondragon/pdv-terminal/pkg/localstore"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
	"github.com/angelmondragon/pdv-terminal/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "pdv-terminal"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "pdv-terminal",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"tenant":   cfg.API.Tenant,
		"register": cfg.Terminal.RegisterID,
	})

	operator, err := attendant.OperatorFromToken(cfg.API.AccessToken)
	if err != nil {
		// Without a readable token the terminal still works; the attendant
		// picker stays locked.
		logg.Warn(ctx, "operator claims unavailable: "+err.Error())
	}
	if operator.ID != "" {
		ctx = logg.WithOperatorID(ctx, operator.ID)
	}

	apiClient, err := apiclient.NewFromConfig(cfg.API,
		apiclient.WithMetrics(metrics.NewAPIMetrics(prometheus.DefaultRegisterer)),
		apiclient.WithLogger(logg),
	)
	if err != nil {
		logg.Error(ctx, "failed to create api client", err)
		os.Exit(1)
	}

	store, closeStore, err := localstore.Open(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open state store", err)
		os.Exit(1)
	}

	poller, err := poll.NewService(poll.ServiceParams{
		Logger:  logg,
		Metrics: metrics.NewPollMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(ctx, "failed to create poll service", err)
		os.Exit(1)
	}

	term, err := terminal.New(terminal.Params{
		Config:   cfg,
		API:      apiClient,
		Store:    store,
		Operator: operator,
		Poller:   poller,
		Metrics:  metrics.NewBillingMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
		Closers:  []func() error{closeStore},
	})
	if err != nil {
		logg.Error(ctx, "failed to create terminal", err)
		os.Exit(1)
	}
	if err := term.Load(ctx); err != nil {
		// Unreadable slices were already discarded; the terminal starts clean.
		logg.Warn(ctx, "restoring local state: "+err.Error())
	}

	pingers := map[string]controllers.Pinger{}
	if p, ok := store.(localstore.Pinger); ok {
		pingers["store"] = p
	}
	server := api.NewServer(cfg, routes.NewRouter(cfg, logg, term, prometheus.DefaultGatherer, pingers))

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := term.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "poll jobs stopped unexpectedly", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "http server shutdown failed", err)
		}
	}()

	logg.Info(logg.WithField(ctx, "addr", server.Addr), "starting terminal")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "terminal server stopped unexpectedly", err)
		stop()
	}

	<-runDone
	// Close cancels bill polling before Wait, which tracks that loop too.
	if err := term.Close(); err != nil {
		logg.Error(context.WithoutCancel(ctx), "error closing terminal", err)
	}
	poller.Wait()
	logg.Info(ctx, "terminal shutting down gracefully")
}
