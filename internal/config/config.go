// Package config loads the billing core's layered configuration: local .env
// overrides, environment variables prefixed STQ_BILLING_, and (outside local
// development) secrets resolved from AWS Secrets Manager — the same layering
// the reference platform's Lambda entrypoints use for their DSN and provider
// secrets.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cyphera/billing-core/internal/logger"
)

const envPrefix = "STQ_BILLING_"

type ServerConfig struct {
	Host                 string
	Port                 int
	DatabaseURL          string
	ThreadCount          int
	ProcessingTimeoutMS  int
}

type ClientConfig struct {
	HTTPClientRetries    int
	HTTPClientBufferSize int
	HTTPTimeoutMS        int
}

type EventStoreConfig struct {
	MaxProcessingAttempts int
	StuckThresholdSec     int
	PollingRateSec        int
}

type SystemAccounts struct {
	MainSTQ      string
	MainETH      string
	MainBTC      string
	CashbackSTQ  string
}

type PaymentsConfig struct {
	URL                 string
	JWTPublicKeyBase64  string
	UserJWT             string
	UserPrivateKey      string
	DeviceID            string
	MinPooledAccounts   int
	Accounts            SystemAccounts
	SignPublicKey       string
}

type PaymentsMockConfig struct {
	UseMock           bool
	MinPooledAccounts int
	Accounts          SystemAccounts
}

type StripeConfig struct {
	PublicKey     string
	SecretKey     string
	SigningSecret string
}

type FeeConfig struct {
	OrderPercentBasisPoints int64
	CurrencyCode            string
}

type PaymentExpiryConfig struct {
	CryptoTimeoutMin int
	FiatTimeoutMin   int
}

type SubscriptionConfig struct {
	PeriodicityDays       int
	TrialTimeDurationDays int
}

// AuthConfig is the shared-secret HMAC config cmd/api parses bearer tokens
// with. The reference platform verifies session tokens against an Auth0
// JWKS endpoint; that dependency has no other consumer in this module's
// scope, so the HTTP edge instead trusts tokens signed with a single secret
// issued by whatever upstream identity system fronts this service.
type AuthConfig struct {
	JWTSecret string
}

type NotifyConfig struct {
	ResendAPIKey string
	FromEmail    string
	FromName     string
}

// Config is the plain, immutable struct passed through every constructor in
// this module — per §9, no process-wide config singleton exists beyond this
// value being threaded from main.
type Config struct {
	Stage         string
	Server        ServerConfig
	Client        ClientConfig
	EventStore    EventStoreConfig
	Payments      PaymentsConfig
	PaymentsMock  PaymentsMockConfig
	Stripe        StripeConfig
	Fee           FeeConfig
	PaymentExpiry PaymentExpiryConfig
	Subscription    SubscriptionConfig
	Auth            AuthConfig
	Notify          NotifyConfig
	OrchestratorURL string
	AWSRegion       string
	EventQueueURL   string
}

// Load builds a Config from .env (when present and stage != prod),
// environment variables, and Secrets Manager for the DB DSN and provider
// secrets when stage is not "local".
func Load(ctx context.Context) (*Config, error) {
	stage := getenv("STAGE", logger.StageLocal)

	if stage != logger.StageProd {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to load .env file", zap.Error(err))
		}
	}

	cfg := &Config{
		Stage: stage,
		Server: ServerConfig{
			Host:                getenv(envPrefix+"SERVER_HOST", "0.0.0.0"),
			Port:                getenvInt(envPrefix+"SERVER_PORT", 8080),
			DatabaseURL:         getenv(envPrefix+"DATABASE_URL", ""),
			ThreadCount:         getenvInt(envPrefix+"SERVER_THREAD_COUNT", 8),
			ProcessingTimeoutMS: getenvInt(envPrefix+"SERVER_PROCESSING_TIMEOUT_MS", 30000),
		},
		Client: ClientConfig{
			HTTPClientRetries:    getenvInt(envPrefix+"CLIENT_HTTP_RETRIES", 3),
			HTTPClientBufferSize: getenvInt(envPrefix+"CLIENT_HTTP_BUFFER_SIZE", 8192),
			HTTPTimeoutMS:        getenvInt(envPrefix+"CLIENT_HTTP_TIMEOUT_MS", 10000),
		},
		EventStore: EventStoreConfig{
			MaxProcessingAttempts: getenvInt(envPrefix+"EVENT_STORE_MAX_ATTEMPTS", 5),
			StuckThresholdSec:     getenvInt(envPrefix+"EVENT_STORE_STUCK_THRESHOLD_SEC", 300),
			PollingRateSec:        getenvInt(envPrefix+"EVENT_STORE_POLLING_RATE_SEC", 2),
		},
		Payments: PaymentsConfig{
			URL:                getenv(envPrefix+"PAYMENTS_URL", ""),
			JWTPublicKeyBase64: getenv(envPrefix+"PAYMENTS_JWT_PUBLIC_KEY_B64", ""),
			UserJWT:            getenv(envPrefix+"PAYMENTS_USER_JWT", ""),
			UserPrivateKey:     getenv(envPrefix+"PAYMENTS_USER_PRIVATE_KEY", ""),
			DeviceID:           getenv(envPrefix+"PAYMENTS_DEVICE_ID", ""),
			MinPooledAccounts:  getenvInt(envPrefix+"PAYMENTS_MIN_POOLED_ACCOUNTS", 3),
			Accounts: SystemAccounts{
				MainSTQ:     getenv(envPrefix+"PAYMENTS_ACCOUNTS_MAIN_STQ", ""),
				MainETH:     getenv(envPrefix+"PAYMENTS_ACCOUNTS_MAIN_ETH", ""),
				MainBTC:     getenv(envPrefix+"PAYMENTS_ACCOUNTS_MAIN_BTC", ""),
				CashbackSTQ: getenv(envPrefix+"PAYMENTS_ACCOUNTS_CASHBACK_STQ", ""),
			},
			SignPublicKey: getenv(envPrefix+"PAYMENTS_SIGN_PUBLIC_KEY", ""),
		},
		PaymentsMock: PaymentsMockConfig{
			UseMock:           getenvBool(envPrefix+"PAYMENTS_MOCK_USE_MOCK", stage == logger.StageLocal),
			MinPooledAccounts: getenvInt(envPrefix+"PAYMENTS_MOCK_MIN_POOLED_ACCOUNTS", 3),
		},
		Stripe: StripeConfig{
			PublicKey:     getenv(envPrefix+"STRIPE_PUBLIC_KEY", ""),
			SecretKey:     getenv(envPrefix+"STRIPE_SECRET_KEY", ""),
			SigningSecret: getenv(envPrefix+"STRIPE_SIGNING_SECRET", ""),
		},
		Fee: FeeConfig{
			OrderPercentBasisPoints: int64(getenvInt(envPrefix+"FEE_ORDER_PERCENT_BPS", 250)),
			CurrencyCode:            getenv(envPrefix+"FEE_CURRENCY_CODE", "USD"),
		},
		PaymentExpiry: PaymentExpiryConfig{
			CryptoTimeoutMin: getenvInt(envPrefix+"PAYMENT_EXPIRY_CRYPTO_TIMEOUT_MIN", 60),
			FiatTimeoutMin:   getenvInt(envPrefix+"PAYMENT_EXPIRY_FIAT_TIMEOUT_MIN", 30),
		},
		Subscription: SubscriptionConfig{
			PeriodicityDays:       getenvInt(envPrefix+"SUBSCRIPTION_PERIODICITY_DAYS", 30),
			TrialTimeDurationDays: getenvInt(envPrefix+"SUBSCRIPTION_TRIAL_DAYS", 14),
		},
		Auth: AuthConfig{
			JWTSecret: getenv(envPrefix+"AUTH_JWT_SECRET", ""),
		},
		Notify: NotifyConfig{
			ResendAPIKey: getenv(envPrefix+"RESEND_API_KEY", ""),
			FromEmail:    getenv(envPrefix+"NOTIFY_FROM_EMAIL", "billing@example.com"),
			FromName:     getenv(envPrefix+"NOTIFY_FROM_NAME", "Billing"),
		},
		OrchestratorURL: getenv(envPrefix+"ORCHESTRATOR_URL", ""),
		AWSRegion:       getenv("AWS_REGION", "us-east-1"),
		EventQueueURL:   getenv(envPrefix+"EVENT_QUEUE_URL", ""),
	}

	if stage != logger.StageLocal {
		if err := resolveSecrets(ctx, cfg); err != nil {
			return nil, fmt.Errorf("config: resolving secrets: %w", err)
		}
	}

	return cfg, nil
}

// resolveSecrets overwrites the DB DSN and provider secrets from AWS Secrets
// Manager, mirroring cmd/webhook-receiver's STAGE-gated DSN construction in
// the reference platform.
func resolveSecrets(ctx context.Context, cfg *Config) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return fmt.Errorf("loading aws config: %w", err)
	}
	sm := secretsmanager.NewFromConfig(awsCfg)

	if secretID := getenv(envPrefix+"DB_SECRET_ID", ""); secretID != "" {
		out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &secretID})
		if err != nil {
			return fmt.Errorf("fetching db secret: %w", err)
		}
		if out.SecretString != nil {
			cfg.Server.DatabaseURL = *out.SecretString
		}
	}

	if secretID := getenv(envPrefix+"STRIPE_SECRET_ID", ""); secretID != "" {
		out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &secretID})
		if err != nil {
			return fmt.Errorf("fetching stripe secret: %w", err)
		}
		if out.SecretString != nil {
			cfg.Stripe.SecretKey = *out.SecretString
		}
	}

	return nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// StuckThreshold returns the event store's stuck-event threshold as a
// time.Duration for use in the worker's ticker/reclaim logic.
func (c EventStoreConfig) StuckThreshold() time.Duration {
	return time.Duration(c.StuckThresholdSec) * time.Second
}

func (c EventStoreConfig) PollingRate() time.Duration {
	return time.Duration(c.PollingRateSec) * time.Second
}
