package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listGroup     string
	listDays      int
	listMax       int
	listMaxGroups int
)

// listCmd shows recent messages without relevance filtering.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent messages in a group or pattern",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listGroup == "" {
			return fmt.Errorf("--group is required")
		}
		cfg := GetConfig()
		a := buildApp(cfg)
		defer a.Close()

		if listDays == 0 {
			listDays = cfg.Search.SinceDays
		}
		if listMax == 0 {
			listMax = cfg.Search.MaxMessages
		}
		if listMaxGroups == 0 {
			listMaxGroups = 15
		}

		res := a.Service.ListMessages(context.Background(), listGroup, listDays, listMax, listMaxGroups)
		if !res.Success {
			return fmt.Errorf("%s", res.Error)
		}

		out := cmd.OutOrStdout()
		printMessages(out, res.Messages, res.IsMultiGroup)
		if res.IsMultiGroup && len(res.GroupCounts) > 0 {
			fmt.Fprintln(out)
			for g, n := range res.GroupCounts {
				fmt.Fprintf(out, "  %s: %d\n", g, n)
			}
		}
		fmt.Fprintf(out, "\nShowing %d of %d messages from the last %d days\n",
			res.DisplayedCount, res.TotalCount, res.PeriodDays)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listGroup, "group", "", "newsgroup name or wildcard pattern")
	listCmd.Flags().IntVar(&listDays, "days", 0, "lookback window in days")
	listCmd.Flags().IntVar(&listMax, "max", 0, "maximum messages to display")
	listCmd.Flags().IntVar(&listMaxGroups, "max-groups", 0, "group cap for pattern listings")
	rootCmd.AddCommand(listCmd)
}
