package cmd

import (
	"context"
	"fmt"
	"io"

	"usenet-scout/internal/model"
	"usenet-scout/internal/service"

	"github.com/spf13/cobra"
)

var (
	searchGroup      string
	searchPoster     string
	searchTopic      string
	searchDays       int
	searchMax        int
	searchMaxGroups  int
	searchMulti      bool
	searchWithBody   bool
	searchNoSemantic bool
	searchConfidence float64
	searchRelevance  float64
)

// searchCmd finds messages by poster or topic in one group or a pattern of
// groups.
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search messages by poster or topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchGroup == "" {
			return fmt.Errorf("--group is required")
		}
		if searchPoster == "" && searchTopic == "" {
			return fmt.Errorf("at least one of --poster or --topic is required")
		}
		cfg := GetConfig()
		a := buildApp(cfg)
		defer a.Close()

		if searchDays == 0 {
			searchDays = cfg.Search.SinceDays
		}
		if searchMax == 0 {
			searchMax = cfg.Search.MaxMessages
		}
		if searchMaxGroups == 0 {
			searchMaxGroups = cfg.Search.MaxGroups
		}
		if searchConfidence == 0 {
			searchConfidence = cfg.Search.MinConfidence
		}
		if searchRelevance == 0 {
			searchRelevance = cfg.Search.MinRelevance
		}

		res := a.Service.SearchMessages(context.Background(), service.SearchParams{
			Newsgroup:   searchGroup,
			Poster:      searchPoster,
			Topic:       searchTopic,
			SinceDays:   searchDays,
			MaxMessages: searchMax,
			MaxGroups:   searchMaxGroups,
			MultiGroup:  searchMulti,
			WithBody:    searchWithBody,
			UseSemantic: !searchNoSemantic && cfg.OpenAI.APIKey != "",
			Confidence:  searchConfidence,
			Relevance:   searchRelevance,
		})
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
		fmt.Fprintf(out, "\n%d matching messages\n", res.TotalCount)
		if res.Analysis.AverageRelevance > 0 {
			fmt.Fprintf(out, "Average relevance: %.2f\n", res.Analysis.AverageRelevance)
		}
		return nil
	},
}

func printMessages(out io.Writer, msgs []model.MessageHeader, showGroup bool) {
	for _, m := range msgs {
		date := m.DateRaw
		if m.Date != nil {
			date = m.Date.Format("2006-01-02 15:04")
		}
		if showGroup {
			fmt.Fprintf(out, "[%s] %s\n", m.Group, m.Subject)
		} else {
			fmt.Fprintf(out, "%s\n", m.Subject)
		}
		fmt.Fprintf(out, "    %s  %s\n", m.From, date)
		if m.Poster != nil {
			fmt.Fprintf(out, "    poster match %.2f: %s\n", m.Poster.Confidence, m.Poster.Reason)
		}
		if m.Topic != nil {
			fmt.Fprintf(out, "    relevance %.2f: %s\n", m.Topic.Relevance, m.Topic.KeyIndicators)
		}
	}
}

func init() {
	searchCmd.Flags().StringVar(&searchGroup, "group", "", "newsgroup name or wildcard pattern")
	searchCmd.Flags().StringVar(&searchPoster, "poster", "", "poster name or address to match")
	searchCmd.Flags().StringVar(&searchTopic, "topic", "", "topic to match")
	searchCmd.Flags().IntVar(&searchDays, "days", 0, "lookback window in days")
	searchCmd.Flags().IntVar(&searchMax, "max", 0, "retrieval budget")
	searchCmd.Flags().IntVar(&searchMaxGroups, "max-groups", 0, "group cap for pattern searches")
	searchCmd.Flags().BoolVar(&searchMulti, "multi-group", false, "treat --group as a pattern")
	searchCmd.Flags().BoolVar(&searchWithBody, "with-body", false, "fetch bodies for topic analysis (single group only)")
	searchCmd.Flags().BoolVar(&searchNoSemantic, "no-semantic", false, "use deterministic matching only")
	searchCmd.Flags().Float64Var(&searchConfidence, "confidence", 0, "confidence floor")
	searchCmd.Flags().Float64Var(&searchRelevance, "relevance", 0, "relevance floor")
	rootCmd.AddCommand(searchCmd)
}
