package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/admission-go/internal/analytics"
	analyticsstore "github.com/serroba/admission-go/internal/analytics/store"
	"github.com/serroba/admission-go/internal/handlers"
	"github.com/serroba/admission-go/internal/health"
	"github.com/serroba/admission-go/internal/messaging"
	"github.com/serroba/admission-go/internal/metrics"
	"github.com/serroba/admission-go/internal/middleware"
	"github.com/serroba/admission-go/internal/ratelimit"
	"github.com/serroba/admission-go/internal/store"
	"go.uber.org/zap"
)

const (
	requestIDLength = 21
	schemaTimeout   = 10 * time.Second

	offenderWindow    = time.Hour
	offenderThreshold = 100
)

// LoggerPackage provides *zap.Logger built from Options.LogFormat.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return NewLogger(opts.LogFormat)
	})

	do.Provide(i, func(i *do.Injector) (watermill.LoggerAdapter, error) {
		return messaging.NewZapLoggerAdapter(do.MustInvoke[*zap.Logger](i)), nil
	})
}

// RedisPackage provides the shared redis client. Its Shutdown method is the
// redis SHUTDOWN command, so callers close it themselves after the injector.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*redis.Client, error) {
		opts := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{Addr: opts.RedisAddr}), nil
	})
}

// PostgresPackage provides the denial audit store. Register it only when
// Options.PostgresURL is set.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*store.DenialPostgresStore, error) {
		opts := do.MustInvoke[*Options](i)

		pool, err := pgxpool.New(context.Background(), opts.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("create postgres pool: %w", err)
		}

		return store.NewDenialPostgresStore(pool), nil
	})
}

// MetricsPackage provides the prometheus collector.
func MetricsPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*metrics.Collector, error) {
		return metrics.NewCollector(do.MustInvoke[*store.WindowMemoryStore](i)), nil
	})
}

// RateLimitPackage provides the window store, its sweeper and the limiter.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*store.WindowMemoryStore, error) {
		opts := do.MustInvoke[*Options](i)

		return store.NewWindowMemoryStore(opts.Shards), nil
	})

	do.Provide(i, func(i *do.Injector) (*store.Sweeper, error) {
		opts := do.MustInvoke[*Options](i)

		return store.NewSweeper(
			do.MustInvoke[*store.WindowMemoryStore](i),
			time.Duration(opts.SweepInterval)*time.Second,
			time.Duration(opts.SweepGrace)*time.Second,
			nil,
			do.MustInvoke[*metrics.Collector](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(i, func(i *do.Injector) (ratelimit.Limiter, error) {
		opts := do.MustInvoke[*Options](i)

		return ratelimit.NewFixedWindowLimiter(
			do.MustInvoke[*store.WindowMemoryStore](i),
			ratelimit.WithObserver(do.MustInvoke[*metrics.Collector](i)),
			ratelimit.WithBurstWindow(opts.burstWindow()),
		), nil
	})
}

// PublisherPackage provides the denial publish function. With events off it
// discards every event and never touches redis.
func PublisherPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*redis.Client](i)

		pub, err := messaging.NewRedisPublisher(client, do.MustInvoke[watermill.LoggerAdapter](i))
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(pub), nil
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[analytics.DeniedEvent], error) {
		if !do.MustInvoke[*Options](i).Events {
			return messaging.Discard[analytics.DeniedEvent](), nil
		}

		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[analytics.DeniedEvent](group.Publisher(), analytics.TopicAdmissionDenied), nil
	})
}

// HTTPPackage provides the router and the huma API with middleware and
// routes installed.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		limiter := do.MustInvoke[ratelimit.Limiter](i)
		publishDenied := do.MustInvoke[messaging.Publish[analytics.DeniedEvent]](i)
		collector := do.MustInvoke[*metrics.Collector](i)

		newID, err := nanoid.Standard(requestIDLength)
		if err != nil {
			return nil, fmt.Errorf("create request id generator: %w", err)
		}

		router.Handle("/metrics", collector.Handler())

		clientIP := middleware.ClientIP(opts.TrustProxyHeaders)

		api := humachi.New(router, huma.DefaultConfig("Admission Control", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api, newID, clientIP))
		api.UseMiddleware(middleware.AdmissionControl(api, limiter, opts.DefaultEndpointConfig(), clientIP, publishDenied, logger))

		health.RegisterRoutes(api, health.NewHandler(
			do.MustInvoke[*store.WindowMemoryStore](i),
			healthDependencies(i)...,
		))
		handlers.RegisterRoutes(api, handlers.NewAdmissionHandler(limiter, publishDenied, logger), opts.CheckEndpointConfig())

		return api, nil
	})
}

func healthDependencies(i *do.Injector) []health.Dependency {
	deps := []health.Dependency{
		{Name: "redis", Checker: health.NewRedisChecker(do.MustInvoke[*redis.Client](i))},
	}

	if pg, err := do.Invoke[*store.DenialPostgresStore](i); err == nil {
		deps = append(deps, health.Dependency{Name: "postgres", Checker: pg})
	}

	return deps
}

// ConsumerGroupPackage provides the consumer group that persists denial
// events. It uses postgres, watched for repeat offenders, when
// PostgresPackage is registered and the logging store otherwise.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (analytics.Store, error) {
		pg, err := do.Invoke[*store.DenialPostgresStore](i)
		if err != nil {
			return analyticsstore.NewNoop(do.MustInvoke[*zap.Logger](i)), nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()

		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}

		logger := do.MustInvoke[*zap.Logger](i)

		return analyticsstore.NewOffenderWatch(pg, pg, offenderWindow, offenderThreshold, logger), nil
	})

	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		client := do.MustInvoke[*redis.Client](i)
		denials := do.MustInvoke[analytics.Store](i)

		sub, err := messaging.NewRedisSubscriber(client, opts.ConsumerGroup, do.MustInvoke[watermill.LoggerAdapter](i))
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(sub, logger)
		group.Add(messaging.NewConsumer[analytics.DeniedEvent](sub, analytics.TopicAdmissionDenied, denials.SaveDenied, logger))

		return group, nil
	})
}
