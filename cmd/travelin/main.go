package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/apidocs"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/auth"
	bookingdomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/domain"
	bookinghandler "github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/handler"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/lock"
	bookingrepo "github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/repository"
	bookingservice "github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/service"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/config"
	favoritedomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/favorite/domain"
	favoritehandler "github.com/iOS-Project-Lab2025/TravelinBackend/internal/favorite/handler"
	favoriterepo "github.com/iOS-Project-Lab2025/TravelinBackend/internal/favorite/repository"
	favoriteservice "github.com/iOS-Project-Lab2025/TravelinBackend/internal/favorite/service"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/http/middleware"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/outbox"
	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/grpcapi"
	poihandler "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/handler"
	poirepo "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/repository"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/search"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/storage"
	"github.com/iOS-Project-Lab2025/TravelinBackend/pkg/events"
	"github.com/iOS-Project-Lab2025/TravelinBackend/pkg/observability"
)

type poiStore interface {
	poidomain.Store
	poidomain.Writer
}

type stores struct {
	pois      poiStore
	bookings  bookingdomain.Repository
	favorites favoritedomain.Repository
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		observability.SetupLogger("travelin", "info").Fatal("load config", zap.Error(err))
	}

	logger := observability.SetupLogger("travelin", cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	shutdown, err := observability.SetupTracer(ctx, "travelin", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracer setup failed", zap.Error(err))
	} else {
		defer shutdown(context.Background()) //nolint:errcheck
	}

	var db *sqlx.DB
	if cfg.PostgresDSN != "" {
		db, err = storage.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("postgres connect", zap.Error(err))
		}
		defer db.Close()
		if err := storage.Migrate(ctx, db); err != nil {
			logger.Fatal("postgres migrate", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		if conn, err := nats.Connect(cfg.NATSURL, nats.Name("travelin")); err == nil {
			natsConn = conn
			defer conn.Drain() //nolint:errcheck
		} else {
			logger.Warn("nats connection failed", zap.Error(err))
		}
	}

	st := buildStores(db, cfg)
	if cfg.SeedFile != "" {
		if n, err := seed(ctx, st.pois, cfg.SeedFile); err != nil {
			logger.Fatal("seed pois", zap.String("file", cfg.SeedFile), zap.Error(err))
		} else {
			logger.Info("seeded pois", zap.Int("count", n))
		}
	}

	publisher := buildPublisher(db, natsConn, cfg)
	if closer, ok := publisher.(interface{ Close() error }); ok {
		defer closer.Close() //nolint:errcheck
	}

	engine := search.New(st.pois, logger.Named("search"))
	bookings := bookingservice.New(
		st.bookings,
		engine,
		buildLocker(redisClient, logger, cfg),
		publisher,
		bookingdomain.SystemClock{},
		buildIdempotency(redisClient, cfg),
		logger.Named("booking"),
	)
	favorites := favoriteservice.New(st.favorites, engine, logger.Named("favorite"))
	authn := auth.Middleware(cfg.JWTSecret)

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, middleware.AccessLog(logger.Named("http")), chimw.Recoverer, middleware.Metrics)
	if redisClient != nil {
		limiter := middleware.NewRateLimiter(redisClient,
			middleware.RateConfig{Rate: cfg.RateReadRPS, Burst: cfg.RateReadBurst},
			middleware.RateConfig{Rate: cfg.RateWriteRPS, Burst: cfg.RateWriteBurst},
			logger.Named("ratelimit"),
		)
		r.Use(limiter.Middleware)
	}
	poihandler.NewHTTP(engine, logger).Routes(r)
	bookinghandler.NewHTTP(bookings, authn, logger).Routes(r)
	favoritehandler.NewHTTP(favorites, authn, logger).Routes(r)
	apidocs.Routes(r)
	r.Mount("/observability", observability.MetricsRouter(readiness(db, redisClient)))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(grpcapi.UnaryLogger(logger.Named("grpc"))))
	grpcapi.RegisterPOIServer(grpcSrv, grpcapi.NewServer(engine, logger.Named("grpc")))

	if db != nil && natsConn != nil {
		worker := outbox.NewWorker(db, natsConn, logger.Named("outbox"), outbox.WorkerConfig{
			PollInterval: cfg.OutboxPoll,
			BatchSize:    cfg.OutboxBatch,
			RetryMax:     cfg.OutboxRetryMax,
		})
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("outbox worker disabled", zap.Bool("db", db != nil), zap.Bool("nats", natsConn != nil))
	}

	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal("grpc listen", zap.Error(err))
		}
		logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()
}

func buildStores(db *sqlx.DB, cfg config.Config) stores {
	if db == nil {
		return stores{
			pois:      poirepo.NewMemoryRepository(),
			bookings:  bookingrepo.NewMemoryRepository(),
			favorites: favoriterepo.NewMemoryRepository(),
		}
	}
	return stores{
		pois: poirepo.NewPostgresRepository(db),
		bookings: bookingrepo.NewPostgresRepository(db, func(t bookingdomain.EventType) string {
			return events.Subject(cfg.NATSSubject, t)
		}),
		favorites: favoriterepo.NewPostgresRepository(db),
	}
}

// buildPublisher picks direct publishers. With Postgres, NATS delivery goes
// through the outbox instead.
func buildPublisher(db *sqlx.DB, natsConn *nats.Conn, cfg config.Config) bookingdomain.EventPublisher {
	var fanout events.Fanout
	if natsConn != nil && db == nil {
		fanout = append(fanout, events.NewNATSPublisher(natsConn, cfg.NATSSubject))
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if len(fanout) == 0 {
			return kafka
		}
		fanout = append(fanout, kafka)
	}
	if len(fanout) == 0 {
		return events.Nop{}
	}
	return fanout
}

func buildLocker(client *redis.Client, logger *zap.Logger, cfg config.Config) bookingdomain.Locker {
	if client == nil {
		return lock.NewMemoryLocker().WithWait(cfg.LockWait)
	}
	return lock.NewRedisLocker(client, logger.Named("lock"), lock.RedisConfig{
		TTL:  cfg.LockTTL,
		Wait: cfg.LockWait,
	})
}

func buildIdempotency(client *redis.Client, cfg config.Config) bookingdomain.IdempotencyRepository {
	if client == nil {
		return bookingrepo.NewMemoryIdempotencyRepo()
	}
	return bookingrepo.NewRedisIdempotencyRepo(client, cfg.IdempotencyTTL)
}

func readiness(db *sqlx.DB, client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
		}
		if client != nil {
			return client.Ping(ctx).Err()
		}
		return nil
	}
}

func seed(ctx context.Context, store poidomain.Writer, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	pois, err := poirepo.ReadSeed(f)
	if err != nil {
		return 0, err
	}
	for _, p := range pois {
		if _, err := store.UpsertPOI(ctx, p); err != nil {
			return 0, err
		}
	}
	return len(pois), nil
}
