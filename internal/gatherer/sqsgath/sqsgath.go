// Package sqsgath sends grading events to an SQS queue.
package sqsgath

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/programme-lv/grader/internal/gatherer"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "eu-central-1"

const sendTimeout = 10 * time.Second

// API is the part of *sqs.Client the gatherer needs.
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type sender struct {
	client   API
	queueUrl string
	// FIFO queues need a group id; events of one job share it to keep their order
	groupId *string
}

func (s *sender) Send(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	_, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:       aws.String(s.queueUrl),
		MessageBody:    aws.String(string(data)),
		MessageGroupId: s.groupId,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", s.queueUrl, err)
	}
	return nil
}

// New creates a gatherer that sends every event to queueUrl. A non-empty
// groupId is set on each message, as FIFO queues require.
func New(client API, queueUrl string, groupId string, logger *slog.Logger) *gatherer.Stream {
	s := &sender{client: client, queueUrl: queueUrl}
	if groupId != "" {
		s.groupId = aws.String(groupId)
	}
	return gatherer.NewStream(s, logger)
}

// NewClient loads the default AWS configuration for region.
func NewClient(ctx context.Context, region string) (*sqs.Client, error) {
	if region == "" {
		region = DefaultRegion
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return sqs.NewFromConfig(cfg), nil
}
