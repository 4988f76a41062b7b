package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	groupsPattern string
	groupsMax     int
	groupsAll     bool
)

// groupsCmd lists newsgroups matching a pattern from the cached catalog.
var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List newsgroups matching a pattern",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := buildApp(GetConfig())
		defer a.Close()

		res := a.Service.ListGroups(context.Background(), groupsPattern, groupsMax, groupsAll)
		if !res.Success {
			return fmt.Errorf("%s", res.Error)
		}
		out := cmd.OutOrStdout()
		for _, g := range res.Groups {
			fmt.Fprintf(out, "%-50s %8d articles  [%s]\n", g.Name, g.EstimatedCount(), g.Posting)
		}
		if res.Limited {
			fmt.Fprintf(out, "\nShowing %d groups (use --all for the full list)\n", len(res.Groups))
		} else {
			fmt.Fprintf(out, "\n%d groups\n", res.TotalCount)
		}
		if res.CacheInfo.Exists {
			fmt.Fprintf(out, "Catalog cached %.1fh ago (%d groups)\n", res.CacheInfo.Age, res.CacheInfo.GroupCount)
		}
		return nil
	},
}

func init() {
	groupsCmd.Flags().StringVar(&groupsPattern, "pattern", "", "glob or substring pattern, empty for all")
	groupsCmd.Flags().IntVar(&groupsMax, "max", 50, "maximum groups to display")
	groupsCmd.Flags().BoolVar(&groupsAll, "all", false, "show every match")
	rootCmd.AddCommand(groupsCmd)
}
