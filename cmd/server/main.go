package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theater-ticket-bot/internal/bot"
	"github.com/iliyamo/theater-ticket-bot/internal/catalog"
	"github.com/iliyamo/theater-ticket-bot/internal/config"
	"github.com/iliyamo/theater-ticket-bot/internal/database"
	"github.com/iliyamo/theater-ticket-bot/internal/dispatch"
	"github.com/iliyamo/theater-ticket-bot/internal/geo"
	"github.com/iliyamo/theater-ticket-bot/internal/handler"
	"github.com/iliyamo/theater-ticket-bot/internal/logger"
	"github.com/iliyamo/theater-ticket-bot/internal/middleware"
	"github.com/iliyamo/theater-ticket-bot/internal/queue"
	"github.com/iliyamo/theater-ticket-bot/internal/ratelimit"
	"github.com/iliyamo/theater-ticket-bot/internal/repository"
	"github.com/iliyamo/theater-ticket-bot/internal/router"
	"github.com/iliyamo/theater-ticket-bot/internal/seed"
	"github.com/iliyamo/theater-ticket-bot/internal/service"
	"github.com/iliyamo/theater-ticket-bot/internal/session"
	"github.com/iliyamo/theater-ticket-bot/internal/transport/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	db, err := database.Open(database.Options{
		Driver:     cfg.DBDriver,
		User:       cfg.DBUser,
		Pass:       cfg.DBPass,
		Host:       cfg.DBHost,
		Port:       cfg.DBPort,
		Name:       cfg.DBName,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return err
	}

	venues := repository.NewVenueRepo(db)
	events := repository.NewEventRepo(db)
	if cfg.SeedCatalog {
		seeded, err := seed.Run(ctx, venues, events, time.Now(), cfg.InitialCapacity)
		if err != nil {
			return err
		}
		log.WithField("seeded", seeded).Info("catalog seeding checked")
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.WithField("addr", cfg.Redis.Addr).Warn("redis unavailable; rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	machine := &bot.Machine{
		Catalog:  catalog.NewReader(venues, events),
		Reserver: events,
		Maps:     geo.NewStaticMapProvider(cfg.MapsEnabled, cfg.MapsBaseURL, cfg.MapsTimeout),
		Log:      log,
	}
	if cfg.PurchaseEventsEnabled {
		machine.Notifier = service.NewPurchasePublisher(cfg.AMQPURL, log)
	}

	var wg sync.WaitGroup
	store := sessionStore(ctx, &wg, cfg, rdb, log)
	conv := bot.NewConversation(machine, session.NewRegistry(store), log)
	disp := dispatch.New(conv, log, dispatch.Options{IdleTimeout: cfg.DispatchIdleTimeout})
	limiter := ratelimit.New(cfg.RateLimit, rdb)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(log))
	if cfg.RequestTimeout > 0 {
		e.Use(echomw.ContextTimeout(cfg.RequestTimeout))
	}
	router.RegisterRoutes(e)
	router.RegisterChat(e, &handler.ChatHandler{Dispatch: disp, Log: log}, middleware.RateLimitByUser(limiter, log))

	if cfg.TelegramToken != "" {
		api, err := telegram.Connect(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		log.WithField("bot", api.Self.UserName).Info("telegram polling started")
		adapter := telegram.NewAdapter(api, disp, limiter, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			telegram.Poll(ctx, api, adapter, cfg.TelegramPollTimeout)
		}()
	}

	if cfg.PurchaseConsumerEnabled {
		consumer := &queue.Consumer{URL: cfg.AMQPURL, Dir: cfg.PurchaseLogDir, Log: log}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = consumer.Run(ctx)
		}()
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	wg.Wait()
	disp.Stop()
	return serveErr
}

// sessionStore picks the configured backend.  Redis falls back to memory
// when the server is unreachable.
func sessionStore(ctx context.Context, wg *sync.WaitGroup, cfg config.Config, rdb *redis.Client, log logrus.FieldLogger) session.Store {
	if cfg.SessionBackend == "redis" {
		if rdb != nil {
			return session.NewRedisStore(rdb, cfg.SessionPrefix, cfg.SessionTTL, log)
		}
		log.Warn("SESSION_BACKEND=redis but redis is unavailable; keeping sessions in memory")
	}
	mem := session.NewMemoryStore(cfg.SessionTTL)
	wg.Add(1)
	go func() {
		defer wg.Done()
		mem.RunJanitor(ctx, time.Minute)
	}()
	return mem
}

func requestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			}).Info("request")
			return nil
		},
	})
}
