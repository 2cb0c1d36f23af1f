package remediation

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// DefaultSubject is the subject line of every failure notification.
	DefaultSubject = "Web Application Instance Failure Notification"
	// DefaultReason explains why an instance was terminated.
	DefaultReason = "Health check failure"
	// DefaultTargetUnhealthy is the load balancer state that marks a target unhealthy.
	DefaultTargetUnhealthy = "unhealthy"
	// DefaultTargetGracePeriod covers the boot and application install of a
	// new instance, during which its targets fail their health checks.
	DefaultTargetGracePeriod = 10 * time.Minute
)

// ErrBadConfig is returned for an incomplete handler configuration.
var ErrBadConfig = errors.New("bad remediation config")

// Config is the handler configuration.
type Config struct {
	// TopicARN is the notification topic for remediation alerts.
	TopicARN string
	Subject  string
	Reason   string
	// UnhealthyStates lists the lifecycle states that mark an instance
	// unhealthy. Defaults to stopped.
	UnhealthyStates []InstanceState
	// TargetGroupARN enables the load balancer target health check when set.
	TargetGroupARN string
	// UnhealthyTargetStates lists target states that mark an instance
	// unhealthy. Only used with TargetGroupARN.
	UnhealthyTargetStates []string
	// TargetGracePeriod is how long after launch an instance is exempt from
	// the target health check.
	TargetGracePeriod time.Duration
	// DryRun reports the unhealthy instances without touching them.
	DryRun bool

	Registry     Registry
	TargetHealth TargetHealthSource
	Notifier     Notifier
	Clock        clockwork.Clock
	Logger       *slog.Logger
}

// CheckAndSetDefaults validates the config and fills in defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.Registry == nil {
		return fmt.Errorf("%w: missing Registry", ErrBadConfig)
	}
	if !c.DryRun {
		if c.Notifier == nil {
			return fmt.Errorf("%w: missing Notifier", ErrBadConfig)
		}
		if c.TopicARN == "" {
			return fmt.Errorf("%w: missing TopicARN", ErrBadConfig)
		}
	}
	if c.TargetGroupARN != "" && c.TargetHealth == nil {
		return fmt.Errorf("%w: TargetGroupARN is set but TargetHealth is missing", ErrBadConfig)
	}
	if c.Subject == "" {
		c.Subject = DefaultSubject
	}
	if c.Reason == "" {
		c.Reason = DefaultReason
	}
	if len(c.UnhealthyStates) == 0 {
		c.UnhealthyStates = []InstanceState{StateStopped}
	}
	if len(c.UnhealthyTargetStates) == 0 {
		c.UnhealthyTargetStates = []string{DefaultTargetUnhealthy}
	}
	if c.TargetGracePeriod == 0 {
		c.TargetGracePeriod = DefaultTargetGracePeriod
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// IsUnhealthy reports whether the record should be remediated now.
func (c *Config) IsUnhealthy(record HealthRecord) bool {
	return c.isUnhealthyAt(record, c.Clock.Now())
}

func (c *Config) isUnhealthyAt(record HealthRecord, now time.Time) bool {
	if slices.Contains(c.UnhealthyStates, record.State) {
		return true
	}
	if c.TargetGroupARN == "" || record.TargetHealth == "" {
		return false
	}
	if c.booting(record, now) {
		return false
	}
	return slices.Contains(c.UnhealthyTargetStates, record.TargetHealth)
}

// booting reports whether the instance is still starting up, so that its
// failing targets say nothing about it yet.
func (c *Config) booting(record HealthRecord, now time.Time) bool {
	if record.Status == StatusInitializing {
		return true
	}
	return !record.LaunchTime.IsZero() && now.Sub(record.LaunchTime) < c.TargetGracePeriod
}
