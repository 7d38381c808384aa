package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wb-go/wbf/logger"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/policy"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/router"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/service/ports"
)

const (
	appName         = "cinema-ticketing"
	readTimeout     = 10 * time.Second
	writeTimeout    = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

type App struct {
	cfg config.Config
	log logger.Logger

	db    *sql.DB
	mongo *mongo.Client
	redis *redis.Client

	publisher *queue.Publisher
	consumer  *queue.Consumer
	allocator *service.BookingAllocator

	httpServer *http.Server
	background sync.WaitGroup
}

func New(cfg config.Config) (*App, error) {
	app := &App{cfg: cfg}

	log, err := logger.InitLogger(
		cfg.Logger.LogEngine(),
		appName,
		cfg.Env,
		logger.WithLevel(cfg.Logger.LogLevel()),
	)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	app.log = log

	ctx := context.Background()
	if err = app.initDB(ctx); err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	if cfg.DBMigrate {
		if err = database.Migrate(app.db); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		app.log.Info("migrations applied successfully")
	}

	if err = app.initServices(ctx); err != nil {
		return nil, fmt.Errorf("init services: %w", err)
	}
	return app, nil
}

func (a *App) initDB(ctx context.Context) error {
	db, err := database.Open(ctx, a.cfg)
	if err != nil {
		return err
	}
	a.db = db
	a.log.LogAttrs(ctx, logger.InfoLevel, "database connected",
		logger.String("host", a.cfg.DBHost),
		logger.String("port", a.cfg.DBPort),
		logger.String("database", a.cfg.DBName),
	)
	return nil
}

// tokenStore picks where refresh tokens live.
func (a *App) tokenStore(ctx context.Context) (ports.TokenRepo, error) {
	if a.cfg.SessionStore != config.SessionStoreMongo {
		return repository.NewTokenRepo(a.db), nil
	}
	client, db, err := database.OpenMongo(ctx, a.cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	a.mongo = client
	repo := repository.NewMongoTokenRepo(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	a.log.LogAttrs(ctx, logger.InfoLevel, "session store ready",
		logger.String("store", "mongo"),
		logger.String("database", a.cfg.Mongo.Database),
	)
	return repo, nil
}

func (a *App) initServices(ctx context.Context) error {
	tokens, err := a.tokenStore(ctx)
	if err != nil {
		return err
	}

	users := repository.NewUserRepo(a.db)
	movies := repository.NewMovieRepo(a.db)
	theaters := repository.NewTheaterRepo(a.db)
	screenings := repository.NewScreeningRepo(a.db)
	bookings := repository.NewBookingRepo(a.db)

	var events ports.EventPublisher
	if a.cfg.AMQP.URL != "" {
		a.publisher = queue.NewPublisher(a.cfg.AMQP.URL)
		events = a.publisher
		if a.cfg.AMQP.StartConsumer {
			a.consumer = queue.NewConsumer(a.cfg.AMQP.URL, a.cfg.AMQP.LogDir, a.log)
		}
	} else {
		a.log.Warn("AMQP URL not set, booking events disabled")
	}

	a.redis = config.NewRedisClient(ctx, a.cfg.Redis)
	if a.redis == nil {
		a.log.Warn("redis unavailable, rate limiting and response cache disabled",
			logger.String("addr", a.cfg.Redis.Addr),
		)
	}

	table := policy.Default()
	sessions := service.NewSessionManager(service.SessionConfig{
		AccessSecret:  a.cfg.AccessSecret,
		RefreshSecret: a.cfg.RefreshSecret,
		AccessTTL:     a.cfg.AccessTTL,
		RefreshTTL:    a.cfg.RefreshTTL,
	}, tokens, a.log)
	accounts := service.NewAccountService(users, sessions, a.cfg.BcryptCost, a.log)
	catalog := service.NewCatalogService(movies, theaters, screenings, a.cfg.SeatCapacity, a.log)
	a.allocator = service.NewBookingAllocator(movies, theaters, screenings, bookings, users, events, table, a.log)

	created, err := accounts.SeedAdmin(ctx, a.cfg.AdminName, a.cfg.AdminEmail, a.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		a.log.Info("admin account created", logger.String("email", a.cfg.AdminEmail))
	}

	cookie := middleware.CookieConfig{Secure: a.cfg.CookieSecure}
	e := router.New(router.Deps{
		Cfg:      a.cfg,
		Log:      a.log,
		Redis:    a.redis,
		Policy:   table,
		Sessions: sessions,
		Auth:     handler.NewAuthHandler(accounts, sessions, cookie),
		Bookings: handler.NewBookingHandler(a.allocator),
		Catalog:  handler.NewCatalogHandler(catalog),
	})

	a.httpServer = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      e,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return nil
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.consumer != nil {
		a.background.Add(1)
		go func() {
			defer a.background.Done()
			a.consumer.Run(ctx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.LogAttrs(ctx, logger.InfoLevel, "HTTP server starting",
			logger.String("addr", a.httpServer.Addr),
			logger.String("env", a.cfg.Env),
			logger.String("auth_policy", string(a.cfg.AuthPolicy)),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.log.LogAttrs(context.Background(), logger.InfoLevel, "shutdown signal received")
	case err := <-errCh:
		stop()
		a.background.Wait()
		return err
	}

	return a.shutdown()
}

func (a *App) shutdown() error {
	a.log.LogAttrs(context.Background(), logger.InfoLevel, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	a.log.LogAttrs(context.Background(), logger.InfoLevel, "HTTP server stopped")

	// pending booking events go out before the broker connection closes
	a.allocator.Close()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("close publisher", logger.String("error", err.Error()))
		}
	}
	a.background.Wait()

	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.mongo != nil {
		if err := a.mongo.Disconnect(shutdownCtx); err != nil {
			a.log.Warn("disconnect mongo", logger.String("error", err.Error()))
		}
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	a.log.LogAttrs(context.Background(), logger.InfoLevel, "database connection closed")

	a.log.LogAttrs(context.Background(), logger.InfoLevel, "app stopped")
	return nil
}
