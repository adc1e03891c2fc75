// Package advisory derives the irrigation advisory from the current
// forecast and publishes it to an SQS queue for SMS or voice delivery.
package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"sunpump/internal/types"
)

// SQSSender is the subset of *sqs.Client used by Publisher.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Message is the queue payload consumed by delivery workers.
type Message struct {
	ID          string              `json:"id"`
	Level       types.AdvisoryLevel `json:"level"`
	Language    string              `json:"language"`
	Text        string              `json:"text"`
	BasedOn     time.Time           `json:"based_on,omitzero"`
	AlertNow    bool                `json:"alert_now"`
	Rule        types.AlertRule     `json:"rule"`
	MaxGHI      float64             `json:"max_forecasted_ghi"`
	Source      string              `json:"source"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// Publisher sends Messages to one queue.
type Publisher struct {
	client   SQSSender
	queueURL string
	logger   types.Logger
}

func NewPublisher(client SQSSender, queueURL string, logger types.Logger) *Publisher {
	if logger == nil {
		logger = types.NewSlogAdapter(nil)
	}
	return &Publisher{client: client, queueURL: queueURL, logger: logger}
}

// Publish serializes msg and sends it with Level and Language as message
// attributes so consumers can filter without decoding the body.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("advisory publisher: failed to marshal message: %w", err)
	}

	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"Level":    {DataType: aws.String("String"), StringValue: aws.String(string(msg.Level))},
			"Language": {DataType: aws.String("String"), StringValue: aws.String(msg.Language)},
		},
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamQueue, "failed to publish advisory", fmt.Errorf("send to %s: %w", p.queueURL, err))
	}

	p.logger.Info("advisory published",
		"advisory_id", msg.ID,
		"sqs_message_id", aws.ToString(out.MessageId),
		"level", string(msg.Level),
		"language", msg.Language,
	)
	return nil
}
