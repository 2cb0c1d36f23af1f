package main

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"webapp-infra/internal/config"
)

func newDescribeCmd(v *viper.Viper, load backendLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "List the health of every instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Read(v)
			if err != nil {
				return err
			}
			// describe never mutates, so it runs without a topic
			s.DryRun = true
			h, err := newHandler(cmd, v, load, s)
			if err != nil {
				return err
			}
			records, err := h.Describe(cmd.Context())
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Instance", "State", "Status", "Target", "Unhealthy"})
			var data [][]string
			for _, r := range records {
				data = append(data, []string{
					r.InstanceID,
					string(r.State),
					r.Status,
					r.TargetHealth,
					strconv.FormatBool(h.IsUnhealthy(r)),
				})
			}
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}
}
