package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"clinic-booking/internal/clinic"
	"clinic-booking/internal/config"
	"clinic-booking/internal/events"
	gweb "clinic-booking/internal/grpcweb"
	"clinic-booking/internal/handler"
	"clinic-booking/internal/middleware"
	"clinic-booking/internal/store"
	"clinic-booking/internal/telemetry"
	"clinic-booking/internal/videotoken"
	"clinic-booking/internal/web"
)

const serviceName = "clinic-booking"

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.InitLogger(serviceName, "")
		log.Fatal().Err(err).Msg("config")
	}
	telemetry.InitLogger(serviceName, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRate,
	})
	if err != nil {
		log.Error().Err(err).Msg("otel setup failed")
	} else {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(sctx)
		}()
	}

	// database
	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer pool.Close()
	st := store.New(pool)
	if err := st.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	log.Info().Msg("database ready")

	// events
	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		k := events.NewKafka(cfg.KafkaBrokers)
		defer k.Close()
		pub = k
		log.Info().Strs("brokers", cfg.KafkaBrokers).Msg("publishing events to kafka")
	}

	accounts := clinic.NewAccounts(st)
	bookings := clinic.NewBookings(st.Appointments(), accounts, pub)
	calls := clinic.NewVideoCalls(st.VideoCalls(), accounts, pub)

	if cfg.SeedProviders {
		if cfg.SeedProviderPassword == "" {
			log.Warn().Msg("SEED_PROVIDERS is set without SEED_PROVIDER_PASSWORD; skipping seeding")
		} else if n, err := accounts.SeedProviders(ctx, cfg.SeedProviderPassword); err != nil {
			log.Error().Err(err).Msg("seed providers")
		} else if n > 0 {
			log.Info().Int("count", n).Msg("seeded sample providers")
		}
	}

	issuer, err := videotoken.New(cfg.Video, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("video token issuer")
	}

	// rate limiting
	var limiter middleware.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		limiter = middleware.NewRedisRateLimiter(rdb, cfg.RatePerMinute, time.Minute, "clinic:rl")
		log.Info().Int("per_minute", cfg.RatePerMinute).Str("redis_addr", cfg.RedisAddr).Msg("rate limiting enabled (redis)")
	} else {
		burst := max(cfg.RatePerMinute/6, 1)
		limiter = middleware.NewRateLimiter(ctx, float64(cfg.RatePerMinute)/60, burst)
		log.Info().Int("per_minute", cfg.RatePerMinute).Msg("rate limiting enabled (in-memory)")
	}

	// grpc server
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			middleware.RateLimit(limiter),
			middleware.Auth(cfg.SessionSecret),
		),
	)
	handler.RegisterClinicServer(srv, handler.New(accounts, bookings, calls, issuer, cfg.SessionSecret))

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
	go func() {
		log.Info().Str("addr", lis.Addr().String()).Msg("grpc server starting")
		if err := srv.Serve(lis); err != nil {
			log.Error().Err(err).Msg("grpc server error")
		}
	}()

	// grpc-web bridge -> forwards browser requests to grpc on localhost
	bridge, err := gweb.Dial("localhost:" + cfg.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Msg("bridge")
	}
	defer bridge.Close()
	bridge.TrustProxy = cfg.TrustProxy

	pages := web.New(web.Options{
		Accounts:   accounts,
		Bookings:   bookings,
		VideoCalls: calls,
		Issuer:     issuer,
		AppID:      issuer.AppID(),
		Sessions:   middleware.NewSessions(st, cfg.SessionSecret, cfg.SecureCookies),
		Limiter:    limiter,
		TrustProxy: cfg.TrustProxy,
		Treatments: web.Treatments{Oral: cfg.OralTreatmentURL, Ortho: cfg.OrthoTreatmentURL, Xray: cfg.XrayTreatmentURL},
		Secure:     cfg.SecureCookies,
		Ready:      st.Ping,
	})

	mux := http.NewServeMux()
	mux.Handle("/"+handler.ServiceName+"/", bridge.Handler())
	mux.Handle("/", pages.Handler())

	httpSrv := &http.Server{
		Addr:              ":" + cfg.WebPort,
		Handler:           otelhttp.NewHandler(middleware.Chain(mux, middleware.AccessLog(log.Logger)), "clinic-web"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("http server starting")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	srv.GracefulStop()
}
