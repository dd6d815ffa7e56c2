package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	appadjustment "github.com/salemaljebaly/mstore-api-optimizer/internal/application/adjustment"
	appcart "github.com/salemaljebaly/mstore-api-optimizer/internal/application/cart"
	appquote "github.com/salemaljebaly/mstore-api-optimizer/internal/application/quote"
	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	domoutbox "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/outbox"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/hooks"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/kafka"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/license"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/memory"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/mysql"
	infraobs "github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/observability"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/observability/oteltrace"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/observability/prometrics"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/observability/zaplogger"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/outbox"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/payment"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/redis"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/resilience"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/infrastructure/shipping"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/config"
	httppresentation "github.com/salemaljebaly/mstore-api-optimizer/internal/presentation/http"
	workerpresentation "github.com/salemaljebaly/mstore-api-optimizer/internal/presentation/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// closer releases one resource during shutdown, in reverse order of acquisition.
type closer struct {
	name string
	fn   func(ctx context.Context) error
}

func run() error {
	var opts []config.Option
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		opts = append(opts, config.WithFile(path))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}

	zl, err := zaplogger.New(cfg.Log.Level,
		observability.F("service", cfg.Service),
		observability.F("env", cfg.Env),
	)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	logger := zl.With(observability.F("component", "main"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []closer

	shutdownTracing, err := oteltrace.Install(ctx, oteltrace.ProviderConfig{
		ServiceName: cfg.Service,
		Environment: cfg.Env,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}
	closers = append(closers, closer{"tracing", shutdownTracing})

	counters, histograms := prometrics.Instruments(prometrics.New("", ""))
	tel := infraobs.New(oteltrace.New(cfg.Service), zl, counters, histograms)

	catalog, coupons, catalogClosers, err := buildCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	closers = append(closers, catalogClosers...)
	guardedCatalog := resilience.NewCatalog(catalog, cfg.Breaker, zl)

	sessions, sessionClosers, err := buildSessions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	closers = append(closers, sessionClosers...)

	engine, err := shipping.NewTableRate(cfg.Shipping)
	if err != nil {
		return err
	}
	gateways, err := payment.NewRegistry(cfg.Payment)
	if err != nil {
		return err
	}

	// Adjustment events leave the request path through the bus; the relay forwards them to Kafka when configured.
	var sink domoutbox.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		sink = publisher
		closers = append(closers, closer{"kafka", func(context.Context) error { return publisher.Close() }})
		logger.Info("adjustment_sink_kafka", observability.F("topic", cfg.Kafka.Topic))
	}
	bus := outbox.NewBus(zl)
	workerpresentation.NewAdjustmentWorker(bus, appadjustment.NewRelayUseCase(sink, tel), tel).Start()
	bus.Start(ctx)
	closers = append(closers, closer{"event_bus", bus.Stop})

	prototype := hooks.Prototype(zl, tel.Metrics())
	authorizer := license.NewPurchaseCode(cfg.License.PurchaseCode)
	deps := appquote.Deps{
		Authorizer:    authorizer,
		Rebuilder:     appcart.NewRebuildUseCase(guardedCatalog, tel),
		Publisher:     bus,
		Subscriptions: cfg.Features.Subscriptions,
	}
	handler := httppresentation.NewHandler(httppresentation.Deps{
		Shipping: appquote.NewShippingQuoteUseCase(deps,
			resilience.NewShippingEngine(engine, cfg.Breaker, zl), tel),
		Payment: appquote.NewPaymentOptionsUseCase(deps,
			resilience.NewPaymentRegistry(gateways, cfg.Breaker, zl), tel),
		Carts: func(context.Context, string) (domcart.CartStore, domcart.EventBus) {
			reg := prototype.Clone()
			return memory.NewCart(guardedCatalog, coupons, reg), reg
		},
		Sessions:     sessions,
		Authorizer:   authorizer,
		Metrics:      promhttp.Handler(),
		MaxExecution: cfg.Server.MaxExecution(),
	}, tel)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
		logger.Info("http_server_stopped")
		for i := len(closers) - 1; i >= 0; i-- {
			c := closers[i]
			if err := c.fn(shutdownCtx); err != nil {
				logger.Warn("shutdown_step_failed", observability.F("step", c.name), observability.F("error", err))
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

// buildCatalog serves products and coupons from MySQL when a DSN is configured, else from the seeded config.
func buildCatalog(ctx context.Context, cfg config.Config, logger observability.Logger) (domcart.Catalog, domcart.CouponSource, []closer, error) {
	if cfg.Catalog.MySQLDSN != "" {
		db, err := mysql.Open(cfg.Catalog.MySQLDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := mysql.Migrate(ctx, db); err != nil {
			return nil, nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("mysql: pool: %w", err)
		}
		logger.Info("catalog_mysql")
		return mysql.NewCatalog(db), mysql.NewCoupons(db),
			[]closer{{"mysql", func(context.Context) error { return sqlDB.Close() }}}, nil
	}

	products, err := memory.ProductsFromConfig(cfg.Catalog.Products)
	if err != nil {
		return nil, nil, nil, err
	}
	seeded, err := memory.CouponsFromConfig(cfg.Coupons)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("catalog_memory", observability.F("products", len(products)), observability.F("coupons", len(seeded)))
	return memory.NewCatalog(products...), memory.NewCouponBook(seeded...), nil, nil
}

// buildSessions keeps sessions in Redis when an address is configured, else in process.
func buildSessions(ctx context.Context, cfg config.Config, logger observability.Logger) (domcart.SessionProvider, []closer, error) {
	if cfg.Session.RedisAddr == "" {
		logger.Info("sessions_memory", observability.F("ttl", cfg.Session.TTL.String()))
		return memory.NewSessions(cfg.Session.TTL), nil, nil
	}
	client := redis.NewClient(cfg.Session)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis: ping %s: %w", cfg.Session.RedisAddr, err)
	}
	logger.Info("sessions_redis", observability.F("addr", cfg.Session.RedisAddr))
	return redis.NewSessions(client, cfg.Session.Prefix, cfg.Session.TTL),
		[]closer{{"redis", func(context.Context) error { return client.Close() }}}, nil
}
