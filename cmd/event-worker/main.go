// Command event-worker runs the transactional outbox processor (§4.2): it
// polls the event store and dispatches each claimed event to the owning
// service's handler, mirroring the reference platform's SQS-consumer Lambda
// entrypoints but against the DB-backed outbox this billing core uses as
// its primary delivery mechanism.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cyphera/billing-core/internal/account"
	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/clients/cardprocessor"
	"github.com/cyphera/billing-core/internal/clients/cryptopay"
	"github.com/cyphera/billing-core/internal/clients/orchestrator"
	"github.com/cyphera/billing-core/internal/config"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/eventstore"
	"github.com/cyphera/billing-core/internal/invoice"
	"github.com/cyphera/billing-core/internal/logger"
	"github.com/cyphera/billing-core/internal/payout"
	"github.com/cyphera/billing-core/internal/repo"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Stage)
	defer logger.Sync()

	poolCfg, err := pgxpool.ParseConfig(cfg.Server.DatabaseURL)
	if err != nil {
		logger.Fatal("event-worker: parsing database dsn", zap.Error(err))
	}
	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 15 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal("event-worker: connecting to database", zap.Error(err))
	}
	defer pool.Close()

	baseDB := db.New(pool)
	acl := authz.New(baseDB)
	repos := repo.New(baseDB, acl)

	var payments cryptopay.Client
	if cfg.PaymentsMock.UseMock {
		payments = cryptopay.NewMockClient()
	} else {
		payments = cryptopay.NewHTTPClient(cfg.Payments.URL, []byte(cfg.Payments.UserPrivateKey), cfg.Payments.DeviceID)
	}
	cards := cardprocessor.New(cfg.Stripe.SecretKey, cfg.Stripe.SigningSecret)
	orch := orchestrator.New(cfg.OrchestratorURL)
	accounts := account.New(repos.Accounts, payments, cfg.Payments)
	invoices := invoice.New(pool, baseDB, repos, acl, payments, cards, orch, accounts, cfg.Fee)
	payouts := payout.New(pool, baseDB, repos, payments)

	handlers := eventstore.Handlers{
		InvoicePaid:                          invoices.HandleInvoicePaid,
		PaymentIntentAmountCapturableUpdated: invoices.HandleFiatCapturableUpdate,
		PaymentIntentPaymentFailed:           invoices.HandlePaymentIntentPaymentFailed,
		PayoutInitiated:                      payouts.HandlePayoutInitiated,
	}

	worker := eventstore.NewWorker(repos.Events, handlers, cfg.EventStore.PollingRate(), int32(cfg.EventStore.MaxProcessingAttempts), cfg.EventStore.StuckThreshold())

	if cfg.Stage != logger.StageLocal && cfg.EventQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Fatal("event-worker: loading aws config", zap.Error(err))
		}
		sqsClient := sqs.NewFromConfig(awsCfg)
		worker = worker.WithPublisher(eventstore.NewSQSPublisher(sqsClient, cfg.EventQueueURL))
	}

	logger.Info("event-worker: starting", zap.Duration("polling_rate", cfg.EventStore.PollingRate()))
	worker.Run(ctx)
}
