package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var refreshForce bool

// refreshCmd updates the cached group catalog.
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the newsgroup catalog cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := buildApp(GetConfig())
		defer a.Close()

		res := a.Service.RefreshCache(context.Background(), refreshForce)
		if !res.Success {
			return fmt.Errorf("%s", res.Error)
		}
		out := cmd.OutOrStdout()
		if res.Skipped {
			fmt.Fprintf(out, "Cache is fresh (%.1fh old, %d groups); use --force to refresh anyway\n",
				res.CacheInfo.Age, res.GroupCount)
			return nil
		}
		fmt.Fprintf(out, "Catalog refreshed: %d groups\n", res.GroupCount)
		return nil
	},
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshForce, "force", false, "refresh even when the cache is fresh")
	rootCmd.AddCommand(refreshCmd)
}
