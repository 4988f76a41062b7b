package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"usenet-scout/internal/report"
	"usenet-scout/internal/service"

	"github.com/spf13/cobra"
)

var (
	summarizeGroup      string
	summarizeDays       int
	summarizeMax        int
	summarizeMaxGroups  int
	summarizeCommunity  string
	summarizeImportance float64
	summarizeOutput     string
)

// summarizeCmd analyzes a period of activity and renders a community
// summary, optionally as a Markdown file.
var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize community activity for a period",
	RunE: func(cmd *cobra.Command, args []string) error {
		if summarizeGroup == "" {
			return fmt.Errorf("--group is required")
		}
		cfg := GetConfig()
		a := buildApp(cfg)
		defer a.Close()

		if summarizeDays == 0 {
			summarizeDays = cfg.Search.SinceDays
		}
		if summarizeMax == 0 {
			summarizeMax = cfg.Search.MaxMessages
		}
		if summarizeMaxGroups == 0 {
			summarizeMaxGroups = 15
		}

		res := a.Service.SummarizeCommunity(context.Background(), service.SummarizeParams{
			Pattern:       summarizeGroup,
			PeriodDays:    summarizeDays,
			MaxMessages:   summarizeMax,
			MaxGroups:     summarizeMaxGroups,
			CommunityName: summarizeCommunity,
			MinImportance: summarizeImportance,
		})
		if !res.Success {
			return fmt.Errorf("%s", res.Error)
		}

		md, err := report.Render(report.Build(res.Summary, res.Announcements, res.Stats, res.CommunityName, time.Now()))
		if err != nil {
			return err
		}

		if summarizeOutput != "" {
			if err := os.WriteFile(summarizeOutput, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%d messages, %d groups)\n",
				summarizeOutput, res.MessagesAnalyzed, res.GroupsAnalyzed)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeGroup, "group", "", "newsgroup name or wildcard pattern")
	summarizeCmd.Flags().IntVar(&summarizeDays, "days", 0, "period length in days")
	summarizeCmd.Flags().IntVar(&summarizeMax, "max", 0, "retrieval budget")
	summarizeCmd.Flags().IntVar(&summarizeMaxGroups, "max-groups", 0, "group cap for pattern summaries")
	summarizeCmd.Flags().StringVar(&summarizeCommunity, "community", "", "community label (auto-detected when empty)")
	summarizeCmd.Flags().Float64Var(&summarizeImportance, "min-importance", 0, "importance floor for the notable list")
	summarizeCmd.Flags().StringVar(&summarizeOutput, "output", "", "write the report to this file instead of stdout")
	rootCmd.AddCommand(summarizeCmd)
}
