package remediation

import (
	"errors"
	"fmt"
	"time"
)

// InstanceState is the lifecycle state of a compute instance.
type InstanceState string

const (
	StatePending      InstanceState = "pending"
	StateRunning      InstanceState = "running"
	StateShuttingDown InstanceState = "shutting-down"
	StateTerminated   InstanceState = "terminated"
	StateStopping     InstanceState = "stopping"
	StateStopped      InstanceState = "stopped"
)

// StatusInitializing is the instance status while its first status checks run.
const StatusInitializing = "initializing"

// HealthRecord is the registry's view of one instance.
type HealthRecord struct {
	InstanceID string
	State      InstanceState
	// Status is the instance status check, e.g. "ok" or "impaired".
	Status string
	// TargetHealth is the load balancer's view of the instance. Empty unless
	// a target group is consulted.
	TargetHealth string
	// LaunchTime is zero when the registry does not know it.
	LaunchTime time.Time
}

// Snapshot is the registry's response to a snapshot request.
type Snapshot struct {
	Snapshots []SnapshotInfo `json:"Snapshots"`
}

// SnapshotInfo describes one volume snapshot that was started.
type SnapshotInfo struct {
	SnapshotID string    `json:"SnapshotId"`
	VolumeID   string    `json:"VolumeId"`
	State      string    `json:"State"`
	StartTime  time.Time `json:"StartTime"`
}

// IDs returns the identifiers of all started snapshots.
func (s *Snapshot) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.Snapshots))
	for _, info := range s.Snapshots {
		ids = append(ids, info.SnapshotID)
	}
	return ids
}

// Termination is the receipt of a terminate request.
type Termination struct {
	InstanceID    string
	PreviousState InstanceState
	CurrentState  InstanceState
}

// Action is what remediation did to an instance.
type Action string

const (
	ActionTerminated        Action = "Terminated"
	ActionTerminationFailed Action = "TerminationFailed"
)

// Event records the snapshot, terminate and notify sequence for one instance.
// It lives only for the duration of a single invocation.
type Event struct {
	InstanceID string
	Action     Action
	Reason     string
	// Snapshot is nil when the snapshot request failed.
	Snapshot *Snapshot
}

// Outcome is the result of remediating one instance.
type Outcome struct {
	Event
	// Skipped is set in dry run mode, when no call was made.
	Skipped      bool
	SnapshotErr  error
	TerminateErr error
	NotifyErr    error
}

// Err joins the failures of every step, or returns nil.
func (o Outcome) Err() error {
	var errs []error
	if o.SnapshotErr != nil {
		errs = append(errs, fmt.Errorf("snapshot %v: %w", o.InstanceID, o.SnapshotErr))
	}
	if o.TerminateErr != nil {
		errs = append(errs, fmt.Errorf("terminate %v: %w", o.InstanceID, o.TerminateErr))
	}
	if o.NotifyErr != nil {
		errs = append(errs, fmt.Errorf("notify %v: %w", o.InstanceID, o.NotifyErr))
	}
	return errors.Join(errs...)
}

// Report lists what a single invocation did.
type Report struct {
	InvocationID string
	StartedAt    time.Time
	// Scanned is the number of health records returned by the registry.
	Scanned  int
	Outcomes []Outcome
	// QueryErr is set when the fleet could not be described. No remediation
	// happens in that case.
	QueryErr error
}

// Err returns the query failure or every per-instance failure joined.
func (r *Report) Err() error {
	if r.QueryErr != nil {
		return fmt.Errorf("describe instance health: %w", r.QueryErr)
	}
	var errs []error
	for _, o := range r.Outcomes {
		if err := o.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Summary is a serializable digest of a report.
type Summary struct {
	InvocationID string   `json:"invocationId"`
	Scanned      int      `json:"scanned"`
	Remediated   []string `json:"remediated,omitempty"`
	Failed       []string `json:"failed,omitempty"`
	Skipped      []string `json:"skipped,omitempty"`
}

// Summary groups instance IDs by outcome.
func (r *Report) Summary() Summary {
	s := Summary{InvocationID: r.InvocationID, Scanned: r.Scanned}
	for _, o := range r.Outcomes {
		switch {
		case o.Skipped:
			s.Skipped = append(s.Skipped, o.InstanceID)
		case o.Err() != nil:
			s.Failed = append(s.Failed, o.InstanceID)
		default:
			s.Remediated = append(s.Remediated, o.InstanceID)
		}
	}
	return s
}
