package remediation

import "context"

// Registry tracks compute instances and can snapshot and terminate them.
type Registry interface {
	// DescribeHealth returns a record for every known instance.
	DescribeHealth(ctx context.Context) ([]HealthRecord, error)
	// CreateSnapshot snapshots the volumes of the instance.
	CreateSnapshot(ctx context.Context, instanceID, description string) (*Snapshot, error)
	// Terminate terminates the instance.
	Terminate(ctx context.Context, instanceID string) (*Termination, error)
}

// TargetHealthSource reports load balancer target health, keyed by instance ID.
type TargetHealthSource interface {
	DescribeTargetHealth(ctx context.Context, targetGroupARN string) (map[string]string, error)
}

// Notifier publishes operator alerts.
type Notifier interface {
	Publish(ctx context.Context, msg Message) error
}
