package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/example/itamdash/internal/cache"
	"github.com/example/itamdash/internal/clock"
	"github.com/example/itamdash/internal/config"
	"github.com/example/itamdash/internal/db"
	httpserver "github.com/example/itamdash/internal/http"
	"github.com/example/itamdash/internal/itam"
	"github.com/example/itamdash/internal/logger"
	"github.com/example/itamdash/internal/mq"
	"github.com/example/itamdash/internal/repository"
	"github.com/example/itamdash/internal/service"
	"github.com/example/itamdash/internal/worker"
)

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file (overrides $"+config.EnvConfigPath+")")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		l := logger.New("prod")
		l.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.Env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = log.WithContext(ctx)

	clk := clock.Real()
	client := itam.NewClient(cfg.UpstreamURL, cfg.UpstreamTimeout).WithServiceToken(cfg.ServiceToken)

	source, err := newSource(cfg, client, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect mirror database")
	}

	var publisher mq.Publisher
	if cfg.MQ.URL != "" {
		rp, err := mq.NewRabbitPublisher(cfg.MQ.URL, cfg.MQ.TicketExchange, log)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, continuing without events")
		} else {
			publisher = rp
			defer rp.Close()
		}
	}

	responses := cache.New[any](cache.Options{
		TTL:           cfg.Cache.TTL,
		MaxEntries:    cfg.Cache.MaxEntries,
		SweepInterval: cfg.Cache.SweepInterval,
		Clock:         clk,
	})
	refresher := worker.NewRefresher(cfg.Refresh.Interval, cfg.Refresh.VisibilityWindow, clk, log)

	svc := service.New(service.Options{
		Source:    source,
		Backend:   client,
		Cache:     responses,
		Publisher: publisher,
		Refresher: refresher,
		Debounce:  cfg.Refresh.Debounce,
		Clock:     clk,
		Log:       log,
	})
	defer svc.Close()

	go responses.Run(ctx)
	go refresher.Run(ctx)

	if cfg.MQ.URL != "" {
		consumeChanges(ctx, cfg, svc.HandleEvent, log)
	}

	apiServer := httpserver.NewServer(svc, cfg.JWTSecret, clk, log)
	srv := &http.Server{
		Addr:    cfg.HTTPPort,
		Handler: apiServer.Engine,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPPort).Str("source", cfg.Source).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown initiated")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("bye")
}

func newSource(cfg config.Config, client *itam.Client, log zerolog.Logger) (service.Source, error) {
	if cfg.Source != config.SourceMirror {
		return service.NewAPISource(client), nil
	}
	database, err := db.New(cfg.DatabaseURL, db.Options{Verbose: cfg.Env == "dev"}, log)
	if err != nil {
		return nil, err
	}
	return service.NewMirrorSource(repository.NewMirrorRepository(database)), nil
}

// consumeChanges feeds upstream change events to handle. A broker outage
// only disables push invalidation; TTLs still apply.
func consumeChanges(ctx context.Context, cfg config.Config, handle func(context.Context, mq.Event) error, log zerolog.Logger) {
	consumer, err := mq.NewRabbitConsumer(cfg.MQ.URL, cfg.MQ.ChangeExchange, cfg.MQ.ChangeQueue, log)
	if err != nil {
		log.Warn().Err(err).Msg("change consumer unavailable, relying on cache TTL")
		return
	}
	err = consumer.Consume(ctx, handle)
	if err != nil {
		log.Warn().Err(err).Msg("start change consumer")
		_ = consumer.Close()
		return
	}
	go func() {
		<-ctx.Done()
		_ = consumer.Close()
	}()
}

func init() {
	if mode := os.Getenv("GIN_MODE"); mode == "" {
		gin.SetMode(gin.ReleaseMode)
	}
}
