// Command webhook-receiver is the fast edge of the Stripe webhook ingress
// (§4.10, supplemented): it extracts the payload and Stripe-Signature header
// and forwards them to SQS without doing signature verification inline, so
// the publicly reachable endpoint stays cheap. cmd/webhook-processor does
// the actual verify-and-enqueue work off the SQS queue. Grounded on the
// reference platform's cmd/webhook-receiver API-Gateway/local split.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/cyphera/billing-core/internal/config"
	"github.com/cyphera/billing-core/internal/logger"
)

type application struct {
	sqsClient   *sqs.Client
	sqsQueueURL string
}

type queuedWebhook struct {
	Provider        string `json:"provider"`
	Payload         string `json:"payload"`
	SignatureHeader string `json:"signature_header"`
}

func (app *application) handleAPIGatewayRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.HTTPMethod == http.MethodGet && strings.HasSuffix(req.Path, "/health") {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Body: `{"status":"healthy"}`}, nil
	}

	provider := "stripe"
	if req.PathParameters != nil && req.PathParameters["provider"] != "" {
		provider = req.PathParameters["provider"]
	}

	sig := req.Headers["Stripe-Signature"]
	if sig == "" {
		sig = req.Headers["stripe-signature"]
	}

	msg := queuedWebhook{Provider: provider, Payload: req.Body, SignatureHeader: sig}
	body, err := json.Marshal(msg)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}

	if err := app.enqueue(ctx, msg, body); err != nil {
		logger.Error("webhook-receiver: enqueue failed", zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}

	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Body: `{"received":true}`}, nil
}

func (app *application) enqueue(ctx context.Context, msg queuedWebhook, body []byte) error {
	if app.sqsClient == nil {
		return fmt.Errorf("webhook-receiver: no SQS queue configured")
	}
	bodyStr := string(body)
	_, err := app.sqsClient.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &app.sqsQueueURL,
		MessageBody: &bodyStr,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"Provider": {DataType: strPtr("String"), StringValue: &msg.Provider},
		},
	})
	return err
}

func strPtr(s string) *string { return &s }

func (app *application) localHandleRequest(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy"}`))
	})
	mux.HandleFunc("/webhooks/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		provider := "stripe"
		if len(parts) >= 2 {
			provider = parts[1]
		}
		resp, err := app.handleAPIGatewayRequest(ctx, events.APIGatewayProxyRequest{
			HTTPMethod:     http.MethodPost,
			Path:           r.URL.Path,
			PathParameters: map[string]string{"provider": provider},
			Headers:        map[string]string{"Stripe-Signature": r.Header.Get("Stripe-Signature")},
			Body:           string(body),
		})
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	})
	logger.Info("webhook-receiver: local http server listening", zap.String("port", port))
	return http.ListenAndServe(":"+port, mux)
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

	app := &application{sqsQueueURL: cfg.EventQueueURL}
	if cfg.EventQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Fatal("webhook-receiver: loading aws config", zap.Error(err))
		}
		app.sqsClient = sqs.NewFromConfig(awsCfg)
	}

	if cfg.Stage != logger.StageLocal {
		lambda.Start(app.handleAPIGatewayRequest)
		return
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	if err := app.localHandleRequest(ctx, port); err != nil {
		logger.Fatal("webhook-receiver: local server exited", zap.Error(err))
	}
}
