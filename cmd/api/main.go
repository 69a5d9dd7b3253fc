package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelsud/payhook/config"
	"github.com/marcelsud/payhook/event"
	eventredis "github.com/marcelsud/payhook/event/redis"
	"github.com/marcelsud/payhook/handlers"
	"github.com/marcelsud/payhook/internal/http/chi"
	"github.com/marcelsud/payhook/metrics"
	"github.com/marcelsud/payhook/routing"
)

const TIMEOUT = 30 * time.Second

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	store, err := eventredis.NewStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer store.Close(ctx)

	// Handler registry from events.yaml bindings and the built-in actions
	loader := routing.NewLoader()
	if err := loader.Load(cfg.EventsConfig); err != nil {
		fmt.Println(err)
		return
	}
	actions := handlers.Actions(logger)
	registry := event.NewRegistry()
	for _, binding := range loader.List() {
		if binding.Disabled {
			continue
		}
		action, ok := actions[binding.Action]
		if !ok {
			fmt.Printf("unknown action %q for event type %s\n", binding.Action, binding.EventType)
			return
		}
		if err := registry.Register(binding.EventType, action); err != nil {
			fmt.Println(err)
			return
		}
	}

	collector := metrics.NewInMemory()
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer exporter.Shutdown(ctx)

	// Pipeline wiring: shared state constructed once and injected, never global
	idem := event.NewIdempotency(store)
	processor := event.NewProcessor(registry, cfg.ProcessingTimeout(), collector, logger)
	deadLetter := event.NewDeadLetter(store, collector, logger)
	retry := event.NewRetryManager(processor, deadLetter, collector, cfg.MaxRetries, cfg.BackoffSchedule())
	svc := event.NewService(idem, processor, retry, deadLetter, store, logger)
	limiter := event.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)

	r := chi.Handlers(ctx, svc, limiter, collector, exporter, chi.WebhookConfig{
		Secret:          cfg.WebhookSecret,
		AllowedIPs:      cfg.AllowedIPs(),
		MaxPayloadBytes: cfg.MaxPayloadBytes,
		Tolerance:       cfg.TimestampTolerance(),
	})
	http.Handle("/", r)
	srv := &http.Server{
		ReadTimeout: 30 * time.Second,
		// A request can sit in the full retry/backoff cycle before answering,
		// so the write timeout is derived from the configured schedule
		WriteTimeout: cfg.ServerWriteTimeout(),
		Addr:         ":" + cfg.Port,
		Handler:      http.DefaultServeMux,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	fmt.Printf("Listening on port %s\n", cfg.Port)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		fmt.Println(err)
		return
	}
	err = <-errShutdown
	if err != nil {
		fmt.Println(err)
		return
	}
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	}
}
