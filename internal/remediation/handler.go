package remediation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Handler finds unhealthy instances and replaces them with a snapshot, a
// termination and a notification each.
type Handler struct {
	Config
}

// New returns a handler for the config.
func New(cfg Config) (*Handler, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Handler{Config: cfg}, nil
}

// Run performs one remediation pass. A failure on one instance never stops
// the others, every outcome ends up in the report.
func (h *Handler) Run(ctx context.Context, invocationID string) *Report {
	if invocationID == "" {
		invocationID = uuid.NewString()
	}
	report := &Report{
		InvocationID: invocationID,
		StartedAt:    h.Clock.Now(),
	}
	logger := h.Logger.With(slog.String("invocation_id", invocationID))

	records, err := h.Describe(ctx)
	if err != nil {
		report.QueryErr = err
		logger.Error("Failed to describe instance health", slog.Any("error", err))
		return report
	}
	report.Scanned = len(records)

	var unhealthy []HealthRecord
	for _, record := range records {
		if h.isUnhealthyAt(record, report.StartedAt) {
			unhealthy = append(unhealthy, record)
		}
	}
	logger.Info("Described instance health",
		slog.Int("scanned", len(records)),
		slog.Int("unhealthy", len(unhealthy)))

	for _, record := range unhealthy {
		report.Outcomes = append(report.Outcomes, h.remediate(ctx, logger, invocationID, record))
	}
	return report
}

// Describe returns the health of every instance, with target health merged
// in when a target group is configured.
func (h *Handler) Describe(ctx context.Context) ([]HealthRecord, error) {
	records, err := h.Registry.DescribeHealth(ctx)
	if err != nil {
		return nil, err
	}
	if h.TargetGroupARN == "" {
		return records, nil
	}
	targets, err := h.TargetHealth.DescribeTargetHealth(ctx, h.TargetGroupARN)
	if err != nil {
		return nil, fmt.Errorf("target health of %v: %w", h.TargetGroupARN, err)
	}
	for i := range records {
		records[i].TargetHealth = targets[records[i].InstanceID]
	}
	return records, nil
}

func (h *Handler) remediate(ctx context.Context, logger *slog.Logger, invocationID string, record HealthRecord) Outcome {
	id := record.InstanceID
	logger = logger.With(slog.String("instance_id", id))
	outcome := Outcome{Event: Event{
		InstanceID: id,
		Action:     ActionTerminated,
		Reason:     h.Reason,
	}}

	if h.DryRun {
		outcome.Skipped = true
		logger.Info("Dry run, not remediating",
			slog.String("state", string(record.State)),
			slog.String("target_health", record.TargetHealth))
		return outcome
	}

	snapshot, err := h.Registry.CreateSnapshot(ctx, id, snapshotDescription(id))
	if err != nil {
		outcome.SnapshotErr = err
		logger.Warn("Snapshot failed, terminating anyway", slog.Any("error", err))
	} else {
		outcome.Snapshot = snapshot
	}

	if _, err := h.Registry.Terminate(ctx, id); err != nil {
		outcome.TerminateErr = err
		outcome.Action = ActionTerminationFailed
		logger.Error("Terminate failed", slog.Any("error", err))
	}

	msg, err := NewMessage(h.TopicARN, h.Subject, invocationID, outcome.Event)
	if err == nil {
		err = h.Notifier.Publish(ctx, msg)
	}
	if err != nil {
		outcome.NotifyErr = err
		logger.Error("Notification failed", slog.Any("error", err))
	}

	if outcome.Err() == nil {
		logger.Info("Instance terminated and snapshot initiated for debugging. Notification sent.",
			slog.Any("snapshots", outcome.Snapshot.IDs()))
	}
	return outcome
}

func snapshotDescription(instanceID string) string {
	return fmt.Sprintf("Snapshot for debugging instance %s", instanceID)
}
