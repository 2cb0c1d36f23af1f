package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webapp-infra/internal/remediation"
)

type stubRegistry struct {
	records     []remediation.HealthRecord
	describeErr error
}

func (s *stubRegistry) DescribeHealth(ctx context.Context) ([]remediation.HealthRecord, error) {
	return s.records, s.describeErr
}

func (s *stubRegistry) CreateSnapshot(ctx context.Context, instanceID, description string) (*remediation.Snapshot, error) {
	return &remediation.Snapshot{Snapshots: []remediation.SnapshotInfo{{SnapshotID: "snap-" + instanceID}}}, nil
}

func (s *stubRegistry) Terminate(ctx context.Context, instanceID string) (*remediation.Termination, error) {
	return &remediation.Termination{InstanceID: instanceID}, nil
}

type stubNotifier struct {
	messages []remediation.Message
}

func (s *stubNotifier) Publish(ctx context.Context, msg remediation.Message) error {
	s.messages = append(s.messages, msg)
	return nil
}

func newTestCheck(registry remediation.Registry, notifier remediation.Notifier) *healthCheck {
	return &healthCheck{
		cfg: remediation.Config{
			TopicARN: "arn:aws:sns:eu-west-2:123456789012:HealthIssuesNotifications",
			Registry: registry,
			Notifier: notifier,
		},
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
}

func scheduledEvent() events.CloudWatchEvent {
	return events.CloudWatchEvent{Source: "aws.events", DetailType: "Scheduled Event"}
}

func TestHandleUsesRequestID(t *testing.T) {
	registry := &stubRegistry{records: []remediation.HealthRecord{
		{InstanceID: "i-1", State: remediation.StateRunning},
		{InstanceID: "i-2", State: remediation.StateStopped},
	}}
	notifier := &stubNotifier{}
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-1"})

	summary, err := newTestCheck(registry, notifier).handle(ctx, scheduledEvent())

	require.NoError(t, err)
	assert.Equal(t, remediation.Summary{InvocationID: "req-1", Scanned: 2, Remediated: []string{"i-2"}}, summary)
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, "req-1:i-2", notifier.messages[0].DeduplicationKey)
}

func TestHandleReturnsQueryFailure(t *testing.T) {
	registry := &stubRegistry{describeErr: errors.New("RequestLimitExceeded")}
	notifier := &stubNotifier{}

	summary, err := newTestCheck(registry, notifier).handle(context.Background(), scheduledEvent())

	assert.ErrorContains(t, err, "RequestLimitExceeded")
	assert.NotEmpty(t, summary.InvocationID)
	assert.Empty(t, notifier.messages)
}

func TestHandleRejectsBadConfig(t *testing.T) {
	check := newTestCheck(nil, &stubNotifier{})

	_, err := check.handle(context.Background(), scheduledEvent())

	assert.ErrorIs(t, err, remediation.ErrBadConfig)
}
