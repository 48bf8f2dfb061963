package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-reports/internal/app"
	"github.com/odyssey-erp/odyssey-reports/internal/export"
	"github.com/odyssey-erp/odyssey-reports/internal/trialbalance"
	"github.com/odyssey-erp/odyssey-reports/jobs"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage asynchronous exports",
}

var jobsTriggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Queue a trial balance export",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(flagFormat)
		if err != nil {
			return err
		}
		filter, err := filterFromFlags(time.Now())
		if err != nil {
			return err
		}
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		redisOpts, err := jobs.RedisOpt(cfg.RedisAddr)
		if err != nil {
			return err
		}
		client := jobs.NewClient(redisOpts)
		defer client.Close()

		info, err := client.EnqueueTrialBalanceExport(cmd.Context(), jobs.TrialBalanceExportPayload{
			OrgID:      filter.OrgID,
			ProjectID:  filter.ProjectID,
			From:       filter.From.Format(trialbalance.DateLayout),
			To:         filter.To.Format(trialbalance.DateLayout),
			PostedOnly: filter.PostedOnly,
			ActiveOnly: filter.ActiveOnly,
			Expand:     flagExpand,
			Format:     string(format),
			Language:   flagLang,
			Title:      flagTitle,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "queued %s on %s\n", info.ID, info.Queue)
		return nil
	},
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		redisOpts, err := jobs.RedisOpt(cfg.RedisAddr)
		if err != nil {
			return err
		}
		inspector := asynq.NewInspector(redisOpts)
		defer inspector.Close()

		stats, err := jobs.Inspect(inspector)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tCOMPLETED")
		for _, s := range stats {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Completed)
		}
		return tw.Flush()
	},
}

func init() {
	addFilterFlags(jobsTriggerCmd)
	jobsTriggerCmd.Flags().StringVarP(&flagFormat, "format", "f", "excel", "Format: pdf, excel, csv, html or json")
	jobsTriggerCmd.Flags().StringVar(&flagTitle, "title", "", "Document title")
	jobsCmd.AddCommand(jobsTriggerCmd, jobsStatsCmd)
	rootCmd.AddCommand(jobsCmd)
}
