package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"webpay-checkout/internal/config"
	"webpay-checkout/internal/domain/ports/adapter"
	"webpay-checkout/internal/domain/ports/repository"
	"webpay-checkout/internal/infra/adapters/kafka"
	"webpay-checkout/internal/infra/adapters/payment"
	"webpay-checkout/internal/infra/adapters/telegram"
	"webpay-checkout/internal/infra/api"
	"webpay-checkout/internal/infra/i18n"
	pg "webpay-checkout/internal/infra/db/postgres"
	"webpay-checkout/internal/infra/logging"
	"webpay-checkout/internal/infra/metrics"
	red "webpay-checkout/internal/infra/redis"
	"webpay-checkout/internal/infra/sched"
	"webpay-checkout/internal/infra/worker"
	"webpay-checkout/internal/usecase"
)

const shutdownTimeout = 20 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the checkout HTTP API and the incident reconciler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	var plans repository.PlanRepository = pg.NewPlanRepo(pool)
	health := []api.Pinger{pool}

	// ---- Redis (optional) ----
	var (
		guard   adapter.CallbackGuard
		limiter api.RateLimiter
	)
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable; running without callback guard, rate limit and plan cache")
		} else {
			defer rc.Close()
			claimTTL := cfg.Webpay.Timeout + cfg.Checkout.CommitTimeout
			guard = red.NewCallbackGuard(rc, claimTTL, cfg.Checkout.OutcomeTTL, logger)
			limiter = red.NewRateLimiter(rc)
			plans = pg.NewPlanRepoCacheDecorator(plans, rc, cfg.Redis.TTL, logger)
			health = append(health, rc)
		}
	}

	// ---- Gateway, alerts, events ----
	gateway, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}
	notifier := newNotifier(cfg, logger)

	workers := worker.NewPool(cfg.Kafka.Workers, 0, logger)
	workers.Start(context.Background())
	defer workers.Stop()

	var events adapter.EventPublisher = kafka.NewNoopPublisher(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, workers, logger)
		if err != nil {
			return err
		}
		defer func() {
			workers.Stop()
			pub.Close()
		}()
		events = pub
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka events enabled")
	}

	// ---- Use cases ----
	reporter, err := usecase.NewOutcomeReporter(cfg.HTTP.FinalURL)
	if err != nil {
		return err
	}
	orders := pg.NewOrderRepo(pool)
	subs := pg.NewSubscriptionRepo(pool)
	incidents := pg.NewIncidentRepo(pool)

	checkoutUC := usecase.NewCheckoutUseCase(usecase.CheckoutDeps{
		Gateway:   gateway,
		Carts:     pg.NewCartRepo(pool),
		Inventory: pg.NewInventoryRepo(pool),
		Orders:    orders,
		Subs:      subs,
		Plans:     plans,
		Users:     pg.NewUserRepo(pool),
		Incidents: incidents,
		Guard:     guard,
		Events:    events,
		TM:        pg.NewTxManager(pool),
		Reporter:  reporter,
	}, usecase.CheckoutOptions{
		DefaultAmount: cfg.Checkout.DefaultAmount,
		ReturnURL:     cfg.Webpay.ReturnURL,
		AmountPolicy:  usecase.AmountPolicy(cfg.Checkout.AmountPolicy),
		DuplicateWait: cfg.Checkout.DuplicateWait,
		CommitTimeout: cfg.Checkout.CommitTimeout,
	}, logger)
	incidentUC := usecase.NewIncidentUseCase(incidents, orders, subs, gateway, notifier, logger)

	go sched.NewIncidentReconciler(incidentUC, cfg.Reconciler.Interval, cfg.Reconciler.Batch, logger).Start(ctx)

	// ---- HTTP ----
	srv := api.NewServer(checkoutUC, reporter, api.NewAuthenticator(cfg.Auth.JWTSecret), api.ServerOptions{
		Limiter:     limiter,
		CreateLimit: cfg.HTTP.CreateRateLimit,
		Health:      health,
		Timeout:     cfg.HTTP.RequestTimeout,
	}, logger)
	httpServer := api.NewHTTPServer(cfg.HTTP, srv.Routes())

	errc := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("gateway", gateway.Name()).
			Str("api_key_id", logging.Redact(cfg.Webpay.APIKeyID, cfg.Runtime.Dev)).
			Str("amount_policy", cfg.Checkout.AmountPolicy).
			Msg("checkout listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	return nil
}

func newGateway(cfg *config.Config, logger *zerolog.Logger) (adapter.PaymentGateway, error) {
	if cfg.Webpay.Fake {
		logger.Warn().Msg("webpay.fake is set: using the in-memory gateway, no money moves")
		return payment.NewMemoryGateway(), nil
	}
	return payment.NewWebpayGateway(payment.WebpayOptions{
		BaseURL:      cfg.Webpay.BaseURL,
		APIKeyID:     cfg.Webpay.APIKeyID,
		APIKeySecret: cfg.Webpay.APIKeySecret,
		Timeout:      cfg.Webpay.Timeout,
	}, logger)
}

func newNotifier(cfg *config.Config, logger *zerolog.Logger) adapter.IncidentNotifier {
	tg := cfg.Alerts.Telegram
	if tg.Token == "" || len(tg.ChatIDs) == 0 {
		return telegram.NewNoopNotifier(logger)
	}
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Alerts.Language)
	if err != nil {
		logger.Warn().Err(err).Str("language", cfg.Alerts.Language).Msg("unknown alert language, using default")
		tr, _ = i18n.NewTranslator(i18n.LocalesFS, i18n.DefaultLanguage)
	}
	n, err := telegram.NewAlertNotifier(tg.Token, tg.ChatIDs, tr, logger)
	if err != nil {
		logger.Error().Err(err).Msg("telegram alerts disabled")
		return telegram.NewNoopNotifier(logger)
	}
	return n
}
