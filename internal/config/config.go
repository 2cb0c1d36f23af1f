package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"webapp-infra/internal/remediation"
)

// Keys double as flag names. The environment variable is the upper-cased key
// with dashes replaced by underscores, e.g. TOPIC_ARN.
const (
	KeyRegion                = "region"
	KeyTopicARN              = "topic-arn"
	KeyTargetGroupARN        = "target-group-arn"
	KeySubject               = "subject"
	KeyUnhealthyStates       = "unhealthy-states"
	KeyUnhealthyTargetStates = "unhealthy-target-states"
	KeyTargetGracePeriod     = "target-grace-period"
	KeyDryRun                = "dry-run"
)

var knownStates = []remediation.InstanceState{
	remediation.StatePending,
	remediation.StateRunning,
	remediation.StateShuttingDown,
	remediation.StateTerminated,
	remediation.StateStopping,
	remediation.StateStopped,
}

// Settings is the configuration of the remediation binaries.
type Settings struct {
	Region                string
	TopicARN              string
	TargetGroupARN        string
	Subject               string
	UnhealthyStates       []remediation.InstanceState
	UnhealthyTargetStates []string
	// TargetGracePeriod is zero unless set, leaving the handler default.
	TargetGracePeriod time.Duration
	DryRun            bool
}

// New returns a viper instance reading settings from the environment.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyRegion, "AWS_REGION")
	v.SetDefault(KeyUnhealthyStates, string(remediation.StateStopped))
	v.SetDefault(KeyUnhealthyTargetStates, remediation.DefaultTargetUnhealthy)
	v.SetDefault(KeySubject, remediation.DefaultSubject)
	return v
}

// Load reads the settings and checks that a notification topic is set.
func Load(v *viper.Viper) (*Settings, error) {
	s, err := Read(v)
	if err != nil {
		return nil, err
	}
	if s.TopicARN == "" && !s.DryRun {
		return nil, fmt.Errorf("%v is required unless %v is set", envName(KeyTopicARN), envName(KeyDryRun))
	}
	return s, nil
}

// Read reads the settings without requiring a topic, for read-only commands.
func Read(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		Region:                v.GetString(KeyRegion),
		TopicARN:              v.GetString(KeyTopicARN),
		TargetGroupARN:        v.GetString(KeyTargetGroupARN),
		Subject:               v.GetString(KeySubject),
		UnhealthyTargetStates: splitList(v.GetString(KeyUnhealthyTargetStates)),
		DryRun:                v.GetBool(KeyDryRun),
	}
	if raw := v.GetString(KeyTargetGracePeriod); raw != "" {
		grace, err := time.ParseDuration(raw)
		if err != nil || grace < 0 {
			return nil, fmt.Errorf("invalid %v %q", envName(KeyTargetGracePeriod), raw)
		}
		s.TargetGracePeriod = grace
	}
	for _, name := range splitList(v.GetString(KeyUnhealthyStates)) {
		state, err := parseState(name)
		if err != nil {
			return nil, err
		}
		s.UnhealthyStates = append(s.UnhealthyStates, state)
	}
	return s, nil
}

// Remediation returns the handler config without collaborators.
func (s *Settings) Remediation() remediation.Config {
	return remediation.Config{
		TopicARN:              s.TopicARN,
		Subject:               s.Subject,
		UnhealthyStates:       s.UnhealthyStates,
		TargetGroupARN:        s.TargetGroupARN,
		UnhealthyTargetStates: s.UnhealthyTargetStates,
		TargetGracePeriod:     s.TargetGracePeriod,
		DryRun:                s.DryRun,
	}
}

func parseState(name string) (remediation.InstanceState, error) {
	for _, state := range knownStates {
		if string(state) == name {
			return state, nil
		}
	}
	return "", fmt.Errorf("unknown instance state %q in %v", name, envName(KeyUnhealthyStates))
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}
