package awsapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"webapp-infra/internal/remediation"
)

// IdempotencyKeyAttribute carries the message deduplication key.
const IdempotencyKeyAttribute = "idempotency-key"

// SNSNotifier publishes remediation messages to SNS.
type SNSNotifier struct {
	client SNSAPI
}

func NewSNSNotifier(client SNSAPI) *SNSNotifier {
	return &SNSNotifier{client: client}
}

// Publish sends the message. FIFO topics also get a group and deduplication ID.
func (n *SNSNotifier) Publish(ctx context.Context, msg remediation.Message) error {
	input := &sns.PublishInput{
		TopicArn: aws.String(msg.TopicARN),
		Message:  aws.String(msg.Body),
		Subject:  aws.String(msg.Subject),
	}
	if msg.Structure != "" {
		input.MessageStructure = aws.String(msg.Structure)
	}
	if msg.DeduplicationKey != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			IdempotencyKeyAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.DeduplicationKey),
			},
		}
	}
	if isFIFO(msg.TopicARN) {
		input.MessageGroupId = aws.String(msg.GroupID)
		input.MessageDeduplicationId = aws.String(msg.DeduplicationKey)
	}
	if _, err := n.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish to %v: %w", msg.TopicARN, err)
	}
	return nil
}

func isFIFO(topicARN string) bool {
	return strings.HasSuffix(topicARN, ".fifo")
}
