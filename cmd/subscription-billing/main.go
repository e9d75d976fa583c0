// Command subscription-billing is the periodic batch entrypoint for
// create_subscriptions and pay_subscriptions (§4.9). It is invoked by an
// external cron/EventBridge rule rather than serving HTTP traffic, mirroring
// the reference platform's scheduled Lambda jobs. create_subscriptions takes
// its (store_id, published_base_products_quantity) tuples from the caller's
// event payload, since the product catalog those counts come from is owned
// by a different service than this billing core.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/clients/cardprocessor"
	"github.com/cyphera/billing-core/internal/clients/cryptopay"
	"github.com/cyphera/billing-core/internal/config"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/logger"
	"github.com/cyphera/billing-core/internal/notify"
	"github.com/cyphera/billing-core/internal/repo"
	"github.com/cyphera/billing-core/internal/subscription"
)

type storeQuantityInput struct {
	StoreID                       uuid.UUID `json:"store_id"`
	PublishedBaseProductsQuantity int64     `json:"published_base_products_quantity"`
}

// event is the Lambda invoke payload: Action selects which batch job runs,
// Stores is only populated (and only consulted) for "create_subscriptions".
type event struct {
	Action string               `json:"action"`
	Stores []storeQuantityInput `json:"stores"`
}

type application struct {
	subs *subscription.Service
}

func (app *application) handle(ctx context.Context, e event) (string, error) {
	switch e.Action {
	case "create_subscriptions":
		stores := make([]subscription.StoreQuantity, 0, len(e.Stores))
		for _, s := range e.Stores {
			stores = append(stores, subscription.StoreQuantity{
				StoreID:                       s.StoreID,
				PublishedBaseProductsQuantity: s.PublishedBaseProductsQuantity,
			})
		}
		if err := app.subs.CreateSubscriptions(ctx, stores); err != nil {
			return "", err
		}
		return "create_subscriptions: ok", nil
	case "pay_subscriptions":
		if err := app.subs.PaySubscriptions(ctx); err != nil {
			return "", err
		}
		return "pay_subscriptions: ok", nil
	default:
		return "", fmt.Errorf("subscription-billing: unknown action %q", e.Action)
	}
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
		logger.Fatal("subscription-billing: parsing database dsn", zap.Error(err))
	}
	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 15 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal("subscription-billing: connecting to database", zap.Error(err))
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

	var email *notify.EmailClient
	if cfg.Notify.ResendAPIKey != "" {
		email = notify.New(cfg.Notify.ResendAPIKey, cfg.Notify.FromEmail, cfg.Notify.FromName)
	}

	app := &application{subs: subscription.New(repos, payments, cards, email, cfg.Subscription)}

	if cfg.Stage == logger.StageLocal {
		var e event
		if err := json.NewDecoder(os.Stdin).Decode(&e); err != nil {
			logger.Fatal("subscription-billing: decoding event from stdin", zap.Error(err))
		}
		result, err := app.handle(ctx, e)
		if err != nil {
			logger.Fatal("subscription-billing: run failed", zap.Error(err))
		}
		logger.Info(result)
		return
	}

	lambda.Start(app.handle)
}
