package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"webapp-infra/internal/awsapi"
	"webapp-infra/internal/config"
	"webapp-infra/internal/remediation"
)

func newRunCmd(v *viper.Viper, load backendLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Snapshot, terminate and report every unhealthy instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(v)
			if err != nil {
				return err
			}
			h, err := newHandler(cmd, v, load, s)
			if err != nil {
				return err
			}
			report := h.Run(cmd.Context(), "")
			printReport(cmd, report)
			return report.Err()
		},
	}
	cmd.Flags().String(config.KeyTopicARN, "", "SNS topic for failure notifications")
	cmd.Flags().String(config.KeySubject, "", "notification subject")
	cmd.Flags().Bool(config.KeyDryRun, false, "list what would be remediated without changing anything")
	_ = v.BindPFlags(cmd.Flags())
	return cmd
}

func printReport(cmd *cobra.Command, report *remediation.Report) {
	out := cmd.OutOrStdout()
	if report.QueryErr != nil {
		return
	}
	if len(report.Outcomes) == 0 {
		fmt.Fprintf(out, "All %d instances are healthy.\n", report.Scanned)
		return
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Instance", "Action", "Snapshots", "Result"})
	var data [][]string
	for _, o := range report.Outcomes {
		data = append(data, []string{
			o.InstanceID,
			actionName(o),
			strings.Join(o.Snapshot.IDs(), ","),
			resultName(o),
		})
	}
	table.AppendBulk(data)
	table.Render()
}

func actionName(o remediation.Outcome) string {
	if o.Skipped {
		return "DryRun"
	}
	return string(o.Action)
}

func resultName(o remediation.Outcome) string {
	if o.Skipped {
		return "skipped"
	}
	if errors.Is(o.TerminateErr, awsapi.ErrInstanceNotFound) && o.NotifyErr == nil {
		return "already gone"
	}
	if err := o.Err(); err != nil {
		return strings.ReplaceAll(err.Error(), "\n", "; ")
	}
	return "ok"
}
