// Command webhook-processor consumes the SQS queue cmd/webhook-receiver
// fans out to, verifies each Stripe payload's signature, and inserts the
// resulting event into the outbox via internal/webhook. Grounded on the
// reference platform's cmd/webhook-processor SQS-triggered Lambda handler.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cyphera/billing-core/internal/account"
	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/clients/cardprocessor"
	"github.com/cyphera/billing-core/internal/clients/cryptopay"
	"github.com/cyphera/billing-core/internal/clients/orchestrator"
	"github.com/cyphera/billing-core/internal/config"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/invoice"
	"github.com/cyphera/billing-core/internal/logger"
	"github.com/cyphera/billing-core/internal/repo"
	"github.com/cyphera/billing-core/internal/webhook"
)

type queuedWebhook struct {
	Provider        string `json:"provider"`
	Payload         string `json:"payload"`
	SignatureHeader string `json:"signature_header"`
}

type application struct {
	hooks *webhook.Service
}

// handleSQSEvent processes every record in the batch independently: a
// single bad record is reported in BatchItemFailures so SQS only redrives
// that record, not the whole batch.
func (app *application) handleSQSEvent(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var failures []events.SQSBatchItemFailure
	for _, record := range event.Records {
		var msg queuedWebhook
		if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
			logger.Error("webhook-processor: invalid message body", zap.Error(err), zap.String("message_id", record.MessageId))
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
			continue
		}
		if msg.Provider != "stripe" {
			logger.Warn("webhook-processor: unsupported provider", zap.String("provider", msg.Provider))
			continue
		}
		if err := app.hooks.HandleStripe(ctx, []byte(msg.Payload), msg.SignatureHeader); err != nil {
			logger.Error("webhook-processor: handle stripe failed", zap.Error(err), zap.String("message_id", record.MessageId))
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

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
		logger.Fatal("webhook-processor: parsing database dsn", zap.Error(err))
	}
	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 15 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal("webhook-processor: connecting to database", zap.Error(err))
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

	app := &application{hooks: webhook.New(invoices, repos, cards)}

	if cfg.Stage == logger.StageLocal {
		logger.Info("webhook-processor: local stage has no SQS trigger; run cmd/webhook-receiver with an inline HandleStripe call for manual testing")
		return
	}
	lambda.Start(app.handleSQSEvent)
}
