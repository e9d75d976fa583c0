package eventstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/cyphera/billing-core/internal/logger"
)

// SQSPublisher fans a completed event out to an SQS queue, mirroring the
// reference platform's receiver → SQS → processor pipeline. The DB outbox
// remains the durable source of truth; this is an auxiliary notification
// whose body is the completed event's raw payload. No entrypoint in this
// module acts on it: cmd/webhook-processor skips any queued message whose
// provider is not "stripe". Publish failures are logged, never surfaced to
// the worker loop.
type SQSPublisher struct {
	client   *sqs.Client
	queueURL string
}

func NewSQSPublisher(client *sqs.Client, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Publish(ctx context.Context, eventID int64, payload []byte) {
	body := string(payload)
	_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &body,
	})
	if err != nil {
		logger.Warn("event store: sqs publish failed", zap.Int64("event_id", eventID), zap.Error(err))
	}
}
