// Command api is the billing core's HTTP composition root (§6): it wires
// storage, external clients, and every service, then serves the resource
// surface over Gin, mirroring the reference platform's
// apps/api/server.InitializeHandlers + cmd/webhook-receiver's Lambda/local
// split.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
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
	"github.com/cyphera/billing-core/internal/notify"
	"github.com/cyphera/billing-core/internal/payout"
	"github.com/cyphera/billing-core/internal/repo"
	"github.com/cyphera/billing-core/internal/subscription"
	"github.com/cyphera/billing-core/internal/webhook"
)

var ginLambda *ginadapter.GinLambda

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Stage)
	defer logger.Sync()

	pool, err := newPool(ctx, cfg.Server.DatabaseURL)
	if err != nil {
		logger.Fatal("api: connecting to database", zap.Error(err))
	}
	defer pool.Close()

	baseDB := db.New(pool)
	acl := authz.New(baseDB)
	repos := repo.New(baseDB, acl)

	payments := newPaymentsClient(cfg)
	cards := cardprocessor.New(cfg.Stripe.SecretKey, cfg.Stripe.SigningSecret)
	orch := orchestrator.New(cfg.OrchestratorURL)
	accounts := account.New(repos.Accounts, payments, cfg.Payments)
	invoices := invoice.New(pool, baseDB, repos, acl, payments, cards, orch, accounts, cfg.Fee)
	payouts := payout.New(pool, baseDB, repos, payments)
	hooks := webhook.New(invoices, repos, cards)

	var email *notify.EmailClient
	if cfg.Notify.ResendAPIKey != "" {
		email = notify.New(cfg.Notify.ResendAPIKey, cfg.Notify.FromEmail, cfg.Notify.FromName)
	}
	subs := subscription.New(repos, payments, cards, email, cfg.Subscription)

	a := &api{
		cfg:      cfg,
		repos:    repos,
		acl:      acl,
		accounts: accounts,
		invoices: invoices,
		payouts:  payouts,
		subs:     subs,
		hooks:    hooks,
	}

	router := newRouter(a)

	if cfg.Stage == logger.StageLocal {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info("api: listening", zap.String("addr", addr))
		if err := router.Run(addr); err != nil {
			logger.Fatal("api: server exited", zap.Error(err))
		}
		return
	}

	ginLambda = ginadapter.New(router)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return ginLambda.ProxyWithContext(ctx, req)
	})
}

func newPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database dsn: %w", err)
	}
	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 15 * time.Minute
	return pgxpool.NewWithConfig(ctx, poolCfg)
}

func newPaymentsClient(cfg *config.Config) cryptopay.Client {
	if cfg.PaymentsMock.UseMock {
		return cryptopay.NewMockClient()
	}
	signerKey := []byte(cfg.Payments.UserPrivateKey)
	return cryptopay.NewHTTPClient(cfg.Payments.URL, signerKey, cfg.Payments.DeviceID)
}

func newCORS() gin.HandlerFunc {
	c := cors.DefaultConfig()
	c.AllowAllOrigins = true
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	return cors.New(c)
}
