package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd reports the state of the catalog cache.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show catalog cache status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := buildApp(GetConfig())
		defer a.Close()

		res := a.Service.CacheStatus(context.Background())
		if !res.Success {
			return fmt.Errorf("%s", res.Error)
		}
		out := cmd.OutOrStdout()
		info := res.CacheInfo
		if !info.Exists {
			fmt.Fprintln(out, "No catalog snapshot cached; run `usenet-scout refresh`")
			return nil
		}
		state := "fresh"
		if info.Expired {
			state = "stale"
		}
		fmt.Fprintf(out, "Snapshot: %d groups, captured %s (%.1fh ago, %s)\n",
			info.GroupCount, info.CapturedAt.Format("2006-01-02 15:04 MST"), info.Age, state)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
}
