package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"webapp-infra/internal/config"
	"webapp-infra/internal/remediation"
)

const keyVerbose = "verbose"

func newRootCmd(load backendLoader) *cobra.Command {
	v := config.New()
	root := &cobra.Command{
		Use:           "remediate",
		Short:         "Find and replace unhealthy web application instances",
		Long:          `Runs the health check remediation pass on demand, or lists the health of the fleet as the scheduled function sees it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String(config.KeyRegion, "", "AWS region (defaults to the AWS environment)")
	flags.String(config.KeyTargetGroupARN, "", "also check target health in this target group")
	flags.String(config.KeyUnhealthyStates, "", "comma separated instance states to treat as unhealthy (default stopped)")
	flags.String(config.KeyUnhealthyTargetStates, "", "comma separated target states to treat as unhealthy (default unhealthy)")
	flags.String(config.KeyTargetGracePeriod, "", "how long after launch an instance is exempt from the target health check (default 10m)")
	flags.BoolP(keyVerbose, "v", false, "enable verbose logging")
	_ = v.BindPFlags(flags)

	root.AddCommand(newRunCmd(v, load))
	root.AddCommand(newDescribeCmd(v, load))
	return root
}

func newLogger(w io.Writer, v *viper.Viper) *slog.Logger {
	level := slog.LevelInfo
	if v.GetBool(keyVerbose) {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newHandler wires the backends into a remediation handler for the settings.
func newHandler(cmd *cobra.Command, v *viper.Viper, load backendLoader, s *config.Settings) (*remediation.Handler, error) {
	b, err := load(cmd.Context(), s.Region)
	if err != nil {
		return nil, err
	}
	cfg := s.Remediation()
	cfg.Registry = b.registry
	cfg.Notifier = b.notifier
	if cfg.TargetGroupARN != "" {
		cfg.TargetHealth = b.targets
	}
	cfg.Logger = newLogger(cmd.ErrOrStderr(), v)
	return remediation.New(cfg)
}
