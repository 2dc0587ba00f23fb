// Command roscad serves rotating savings pools over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"

	"github.com/xraph/rosca"
	amqphook "github.com/xraph/rosca/amqp_hook"
	"github.com/xraph/rosca/api"
	audithook "github.com/xraph/rosca/audit_hook"
	"github.com/xraph/rosca/bank"
	"github.com/xraph/rosca/internal/logger"
	"github.com/xraph/rosca/lock/redislock"
	"github.com/xraph/rosca/observability"
	"github.com/xraph/rosca/store/memory"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment and flags still apply.
	_ = godotenv.Load()

	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenFlag := flag.String("listen", ":8080", "HTTP listen address (or set ROSCA_LISTEN env var)")
	basePathFlag := flag.String("base-path", "", "URL prefix for pool routes (or set ROSCA_BASE_PATH env var)")
	currencyFlag := flag.String("currency", "usd", "currency of pools created without a minimum (or set ROSCA_CURRENCY env var)")

	// Journal
	journalBatchFlag := flag.Int("journal-batch", 100, "journal entries per flush (or set ROSCA_JOURNAL_BATCH env var)")
	journalIntervalFlag := flag.Duration("journal-interval", 5*time.Second, "journal flush interval")

	// Redis lock
	redisAddrFlag := flag.String("redis-addr", "", "Redis address for distributed pool locks (or set REDIS_ADDR env var)")

	// RabbitMQ events
	amqpURLFlag := flag.String("amqp-url", "", "RabbitMQ URL for event publishing (or set AMQP_URL env var)")
	amqpExchangeFlag := flag.String("amqp-exchange", "rosca.events", "RabbitMQ topic exchange (or set AMQP_EXCHANGE env var)")

	auditFlag := flag.Bool("audit", false, "log an audit trail of pool events")

	flag.Parse()

	log := logger.New(*verboseFlag)

	if v := os.Getenv("ROSCA_LISTEN"); v != "" {
		*listenFlag = v
	}
	if v := os.Getenv("ROSCA_BASE_PATH"); v != "" {
		*basePathFlag = v
	}
	if v := os.Getenv("ROSCA_CURRENCY"); v != "" {
		*currencyFlag = v
	}
	if v := os.Getenv("ROSCA_JOURNAL_BATCH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ROSCA_JOURNAL_BATCH: %w", err)
		}
		*journalBatchFlag = n
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddrFlag = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		*amqpURLFlag = v
	}
	if v := os.Getenv("AMQP_EXCHANGE"); v != "" {
		*amqpExchangeFlag = v
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []rosca.Option{
		rosca.WithLogger(log),
		rosca.WithDefaultCurrency(*currencyFlag),
		rosca.WithJournalConfig(*journalBatchFlag, *journalIntervalFlag),
		rosca.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))),
	}

	if *redisAddrFlag != "" {
		client := redis.NewClient(&redis.Options{Addr: *redisAddrFlag})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", *redisAddrFlag, err)
		}
		locker, err := redislock.New(client, redislock.DefaultOptions(), log)
		if err != nil {
			return err
		}
		opts = append(opts, rosca.WithLocker(locker))
		log.Info("using redis pool locks", "addr", *redisAddrFlag)
	}

	if *amqpURLFlag != "" {
		conn, err := amqp.Dial(*amqpURLFlag)
		if err != nil {
			return fmt.Errorf("amqp dial: %w", err)
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("amqp channel: %w", err)
		}
		defer ch.Close()
		if err := ch.ExchangeDeclare(*amqpExchangeFlag, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("amqp declare exchange %s: %w", *amqpExchangeFlag, err)
		}
		opts = append(opts, rosca.WithPlugin(amqphook.New(ch, *amqpExchangeFlag, amqphook.WithLogger(log))))
		log.Info("publishing pool events", "exchange", *amqpExchangeFlag)
	}

	if *auditFlag {
		recorder := audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
			log.InfoContext(ctx, "audit",
				"action", evt.Action,
				"resource", evt.Resource,
				"resource_id", evt.ResourceID,
				"outcome", evt.Outcome,
				"severity", evt.Severity,
			)
			return nil
		})
		opts = append(opts, rosca.WithPlugin(audithook.New(recorder, audithook.WithLogger(log))))
	}

	// The vault backs both payouts and contribution escrow.
	vault := bank.NewVault()
	opts = append(opts, rosca.WithEscrow(vault))

	engine := rosca.NewEngine(memory.New(), vault, opts...)
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer func() {
		if err := engine.Stop(); err != nil {
			log.Error("engine stop", "error", err)
		}
	}()

	router := chi.NewRouter()
	router.Mount("/bank", bankRoutes(vault))
	router.Mount("/", api.New(engine,
		api.WithLogger(log),
		api.WithBasePath(*basePathFlag),
		api.WithRegistry(reg),
	))
	return serve(ctx, *listenFlag, router, log)
}

func serve(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutdown signal received, stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}
	return nil
}
