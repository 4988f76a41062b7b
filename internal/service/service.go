// Package service is the boundary consumed by presentation layers. Every
// operation returns a structured result carrying a success flag, an error
// string on failure, and domain data on success.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"usenet-scout/internal/aggregate"
	"usenet-scout/internal/analyze"
	"usenet-scout/internal/catalog"
	"usenet-scout/internal/model"
)

// ErrNotConfigured is returned when no NNTP provider has been configured.
// It is fatal to any operation requiring network access and never retried.
var ErrNotConfigured = errors.New("NNTP provider not configured")

// Catalog resolves group patterns against the cached snapshot.
type Catalog interface {
	Resolve(ctx context.Context, pattern string) ([]model.GroupRecord, error)
	Refresh(ctx context.Context, force bool) (*model.Snapshot, bool, error)
	Status(ctx context.Context) (catalog.Info, error)
}

// Fetcher retrieves headers and bodies from a single group.
type Fetcher interface {
	FetchHeaders(ctx context.Context, group string, maxCount, sinceDays int) ([]model.MessageHeader, error)
	FetchBodies(ctx context.Context, group string, msgs []model.MessageHeader, maxBodies int) []model.MessageHeader
}

// Aggregator fans header retrieval out across groups.
type Aggregator interface {
	SearchGroups(ctx context.Context, groups []string, maxPerGroup, sinceDays int) map[string][]model.MessageHeader
}

// Relevance filters message collections by poster or topic.
type Relevance interface {
	FilterByPoster(ctx context.Context, msgs []model.MessageHeader, query string, minConfidence float64) []model.MessageHeader
	FilterByTopic(ctx context.Context, msgs []model.MessageHeader, query string, minRelevance, minConfidence float64, useBody bool) []model.MessageHeader
}

// Analyzer produces community analysis.
type Analyzer interface {
	AnalyzeMessages(ctx context.Context, msgs []model.MessageHeader, period, community string) analyze.Report
	FilterByImportance(classified []model.ClassifiedMessage, minImportance float64) []model.ClassifiedMessage
	Announcements(classified []model.ClassifiedMessage) []model.ClassifiedMessage
	DiscussionStats(classified []model.ClassifiedMessage) model.DiscussionStats
}

// Service wires catalog, fetcher, aggregator, relevance engine and analyzer
// behind the structured-result boundary. Dependencies are injected
// explicitly; a Service is built once per process.
type Service struct {
	catalog    Catalog
	fetcher    Fetcher
	aggregator Aggregator
	relevance  Relevance
	analyzer   Analyzer
	configured bool
}

func New(cat Catalog, fetcher Fetcher, agg Aggregator, rel Relevance, an Analyzer, configured bool) *Service {
	return &Service{
		catalog:    cat,
		fetcher:    fetcher,
		aggregator: agg,
		relevance:  rel,
		analyzer:   an,
		configured: configured,
	}
}

// Result is the common envelope of every service operation.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

func ok() Result {
	return Result{Success: true}
}

// isMultiGroup reports whether a newsgroup argument addresses several
// groups: either explicitly flagged or containing wildcard tokens.
func isMultiGroup(pattern string, explicit bool) bool {
	return explicit || strings.ContainsAny(pattern, "*?")
}

// ---- discovery ----

// GroupsResult is the outcome of ListGroups.
type GroupsResult struct {
	Result
	Groups     []model.GroupRecord `json:"groups"`
	TotalCount int                 `json:"total_count"`
	Limited    bool                `json:"limited"`
	Pattern    string              `json:"pattern,omitempty"`
	CacheInfo  catalog.Info        `json:"cache_info"`
}

// ListGroups resolves a pattern against the catalog. With allGroups false
// the listing is truncated to maxResults.
func (s *Service) ListGroups(ctx context.Context, pattern string, maxResults int, allGroups bool) GroupsResult {
	if !s.configured {
		return GroupsResult{Result: failure(ErrNotConfigured)}
	}
	groups, err := s.catalog.Resolve(ctx, pattern)
	if err != nil {
		return GroupsResult{Result: failure(err)}
	}
	limited := false
	if !allGroups && maxResults > 0 && len(groups) > maxResults {
		groups = groups[:maxResults]
		limited = true
	}
	info, _ := s.catalog.Status(ctx)
	return GroupsResult{
		Result:     ok(),
		Groups:     groups,
		TotalCount: len(groups),
		Limited:    limited,
		Pattern:    pattern,
		CacheInfo:  info,
	}
}

// RefreshResult is the outcome of RefreshCache.
type RefreshResult struct {
	Result
	Skipped    bool         `json:"skipped"`
	GroupCount int          `json:"group_count"`
	CacheInfo  catalog.Info `json:"cache_info"`
}

// RefreshCache updates the catalog snapshot. Without force, a fresh cache
// skips the refresh and reports its current state.
func (s *Service) RefreshCache(ctx context.Context, force bool) RefreshResult {
	if !s.configured {
		return RefreshResult{Result: failure(ErrNotConfigured)}
	}
	snap, refreshed, err := s.catalog.Refresh(ctx, force)
	if err != nil {
		return RefreshResult{Result: failure(err)}
	}
	info, _ := s.catalog.Status(ctx)
	return RefreshResult{
		Result:     ok(),
		Skipped:    !refreshed,
		GroupCount: len(snap.Groups),
		CacheInfo:  info,
	}
}

// CacheStatusResult is the outcome of CacheStatus.
type CacheStatusResult struct {
	Result
	CacheInfo catalog.Info `json:"cache_info"`
}

// CacheStatus reports the snapshot's freshness.
func (s *Service) CacheStatus(ctx context.Context) CacheStatusResult {
	info, err := s.catalog.Status(ctx)
	if err != nil {
		return CacheStatusResult{Result: failure(err)}
	}
	return CacheStatusResult{Result: ok(), CacheInfo: info}
}

// ---- search ----

// SearchParams controls SearchMessages.
type SearchParams struct {
	Newsgroup   string  // group name or wildcard pattern
	Poster      string  // optional poster query
	Topic       string  // optional topic query
	SinceDays   int     // lookback window
	MaxMessages int     // retrieval budget
	MaxGroups   int     // multi-group cap
	MultiGroup  bool    // force multi-group semantics
	WithBody    bool    // body-aware topic analysis (single-group only)
	UseSemantic bool    // false forces deterministic matching
	Confidence  float64 // poster/topic confidence floor
	Relevance   float64 // topic relevance floor
}

// AnalysisSummary aggregates annotation evidence over the top matches.
type AnalysisSummary struct {
	PosterReasons    map[string]int `json:"poster_reasons,omitempty"`
	TopicIndicators  map[string]int `json:"topic_indicators,omitempty"`
	AverageRelevance float64        `json:"average_relevance,omitempty"`
	UsedBodyCount    int            `json:"used_body_count,omitempty"`
}

// SearchResult is the outcome of SearchMessages.
type SearchResult struct {
	Result
	Messages     []model.MessageHeader `json:"messages"`
	TotalCount   int                   `json:"total_count"`
	IsMultiGroup bool                  `json:"is_multi_group"`
	Newsgroup    string                `json:"newsgroup,omitempty"`
	Pattern      string                `json:"pattern,omitempty"`
	GroupCounts  map[string]int        `json:"group_counts,omitempty"`
	Analysis     AnalysisSummary       `json:"analysis,omitempty"`
}

// SearchMessages retrieves messages from one group or a pattern of groups
// and applies the poster filter, then the topic filter, to the merged set.
func (s *Service) SearchMessages(ctx context.Context, p SearchParams) SearchResult {
	if !s.configured {
		return SearchResult{Result: failure(ErrNotConfigured)}
	}
	multi := isMultiGroup(p.Newsgroup, p.MultiGroup)

	var msgs []model.MessageHeader
	if multi {
		names, err := s.resolveTargets(ctx, p.Newsgroup, p.MaxGroups)
		if err != nil {
			return SearchResult{Result: failure(err)}
		}
		if len(names) == 0 {
			return SearchResult{Result: ok(), IsMultiGroup: true, Pattern: p.Newsgroup, Messages: []model.MessageHeader{}}
		}
		perGroup := p.MaxMessages
		if p.MaxGroups > 0 {
			perGroup = p.MaxMessages / p.MaxGroups
		}
		if perGroup <= 0 {
			perGroup = 50
		}
		results := s.aggregator.SearchGroups(ctx, names, perGroup, p.SinceDays)
		msgs = aggregate.Flatten(results)
		sortByDateDesc(msgs)
	} else {
		var err error
		msgs, err = s.fetcher.FetchHeaders(ctx, p.Newsgroup, p.MaxMessages, p.SinceDays)
		if err != nil {
			return SearchResult{Result: failure(err)}
		}
	}

	if p.Poster != "" {
		if p.UseSemantic {
			msgs = s.relevance.FilterByPoster(ctx, msgs, p.Poster, p.Confidence)
		} else {
			msgs = filterByPosterSubstring(msgs, p.Poster)
		}
	}

	if p.Topic != "" {
		useBody := p.WithBody && !multi
		if useBody && len(msgs) > 0 {
			// Cap body retrieval to bound network cost; the rest are
			// scored header-only.
			n := len(msgs)
			if n > bodyFetchLimit {
				n = bodyFetchLimit
			}
			enriched := s.fetcher.FetchBodies(ctx, p.Newsgroup, msgs[:n], n)
			msgs = append(enriched, msgs[n:]...)
		}
		if p.UseSemantic {
			msgs = s.relevance.FilterByTopic(ctx, msgs, p.Topic, p.Relevance, p.Confidence, useBody)
		} else {
			msgs = filterByTopicKeywords(msgs, p.Topic, useBody)
		}
	}

	res := SearchResult{
		Result:       ok(),
		Messages:     msgs,
		TotalCount:   len(msgs),
		IsMultiGroup: multi,
		Analysis:     summarizeAnnotations(msgs),
	}
	if multi {
		res.Pattern = p.Newsgroup
		res.GroupCounts = countByGroup(msgs)
	} else {
		res.Newsgroup = p.Newsgroup
	}
	return res
}

// ---- listing ----

// ListResult is the outcome of ListMessages.
type ListResult struct {
	Result
	Messages       []model.MessageHeader `json:"messages"`
	TotalCount     int                   `json:"total_count"`
	DisplayedCount int                   `json:"displayed_count"`
	IsMultiGroup   bool                  `json:"is_multi_group"`
	Newsgroup      string                `json:"newsgroup,omitempty"`
	Pattern        string                `json:"pattern,omitempty"`
	PeriodDays     int                   `json:"period_days"`
	GroupCounts    map[string]int        `json:"group_counts,omitempty"`
}

// ListMessages retrieves recent headers without relevance filtering. The
// per-group retrieval budget scales with the period length.
func (s *Service) ListMessages(ctx context.Context, pattern string, periodDays, maxMessages, maxGroups int) ListResult {
	if !s.configured {
		return ListResult{Result: failure(ErrNotConfigured)}
	}
	multi := isMultiGroup(pattern, false)

	var msgs []model.MessageHeader
	if multi {
		names, err := s.resolveTargets(ctx, pattern, maxGroups)
		if err != nil {
			return ListResult{Result: failure(err)}
		}
		perGroup := perGroupBudget(maxMessages, maxGroups, periodDays)
		results := s.aggregator.SearchGroups(ctx, names, perGroup, periodDays)
		msgs = aggregate.Flatten(results)
	} else {
		var err error
		msgs, err = s.fetcher.FetchHeaders(ctx, pattern, singleGroupBudget(maxMessages, periodDays), periodDays)
		if err != nil {
			return ListResult{Result: failure(err)}
		}
	}
	sortByDateDesc(msgs)

	displayed := msgs
	if maxMessages > 0 && len(displayed) > maxMessages {
		displayed = displayed[:maxMessages]
	}

	res := ListResult{
		Result:         ok(),
		Messages:       displayed,
		TotalCount:     len(msgs),
		DisplayedCount: len(displayed),
		IsMultiGroup:   multi,
		PeriodDays:     periodDays,
	}
	if multi {
		res.Pattern = pattern
		res.GroupCounts = countByGroup(msgs)
	} else {
		res.Newsgroup = pattern
	}
	return res
}

// ---- summarization ----

// SummarizeParams controls SummarizeCommunity.
type SummarizeParams struct {
	Pattern       string
	PeriodDays    int
	MaxMessages   int
	MaxGroups     int
	CommunityName string  // auto-detected from the pattern when empty
	MinImportance float64 // floor for the important-message list
}

// SummaryResult is the outcome of SummarizeCommunity.
type SummaryResult struct {
	Result
	Summary           model.CommunitySummary    `json:"summary"`
	Trends            model.TrendSummary        `json:"trends"`
	ImportantMessages []model.ClassifiedMessage `json:"important_messages"`
	Announcements     []model.ClassifiedMessage `json:"announcements"`
	Stats             model.DiscussionStats     `json:"stats"`
	MessagesAnalyzed  int                       `json:"messages_analyzed"`
	GroupsAnalyzed    int                       `json:"groups_analyzed"`
	IsMultiGroup      bool                      `json:"is_multi_group"`
	Period            string                    `json:"period"`
	CommunityName     string                    `json:"community_name"`
}

const topAnnouncements = 5

// SummarizeCommunity retrieves a period of activity and produces a
// classified, trend-analyzed community summary.
func (s *Service) SummarizeCommunity(ctx context.Context, p SummarizeParams) SummaryResult {
	if !s.configured {
		return SummaryResult{Result: failure(ErrNotConfigured)}
	}
	community := p.CommunityName
	if community == "" {
		community = detectCommunityName(p.Pattern)
	}
	period := describePeriod(p.PeriodDays)
	multi := isMultiGroup(p.Pattern, false)

	var (
		msgs           []model.MessageHeader
		groupsAnalyzed int
	)
	if multi {
		names, err := s.resolveTargets(ctx, p.Pattern, p.MaxGroups)
		if err != nil {
			return SummaryResult{Result: failure(err)}
		}
		perGroup := perGroupBudget(p.MaxMessages, p.MaxGroups, p.PeriodDays)
		results := s.aggregator.SearchGroups(ctx, names, perGroup, p.PeriodDays)
		msgs = aggregate.Flatten(results)
		groupsAnalyzed = len(results)
	} else {
		var err error
		msgs, err = s.fetcher.FetchHeaders(ctx, p.Pattern, singleGroupBudget(p.MaxMessages, p.PeriodDays), p.PeriodDays)
		if err != nil {
			return SummaryResult{Result: failure(err)}
		}
		groupsAnalyzed = 1
	}

	report := s.analyzer.AnalyzeMessages(ctx, msgs, period, community)

	var important []model.ClassifiedMessage
	if p.MinImportance > 0 {
		important = s.analyzer.FilterByImportance(report.Classified, p.MinImportance)
	}
	announcements := s.analyzer.Announcements(report.Classified)
	if len(announcements) > topAnnouncements {
		announcements = announcements[:topAnnouncements]
	}

	return SummaryResult{
		Result:            ok(),
		Summary:           report.Summary,
		Trends:            report.Trends,
		ImportantMessages: important,
		Announcements:     announcements,
		Stats:             s.analyzer.DiscussionStats(report.Classified),
		MessagesAnalyzed:  len(msgs),
		GroupsAnalyzed:    groupsAnalyzed,
		IsMultiGroup:      multi,
		Period:            period,
		CommunityName:     community,
	}
}

// ---- helpers ----

const bodyFetchLimit = 20

// resolveTargets matches the pattern against the catalog and caps the
// number of groups searched.
func (s *Service) resolveTargets(ctx context.Context, pattern string, maxGroups int) ([]string, error) {
	groups, err := s.catalog.Resolve(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("resolve groups: %w", err)
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	if maxGroups > 0 && len(names) > maxGroups {
		slog.Info("service: limiting matched groups", "matched", len(names), "limit", maxGroups)
		names = names[:maxGroups]
	}
	return names, nil
}

// perGroupBudget computes the multi-group retrieval budget, scaled up for
// longer periods and capped at 500 per group.
func perGroupBudget(maxMessages, maxGroups, periodDays int) int {
	div := maxGroups
	if div < 4 {
		div = 4
	}
	base := maxMessages / div
	if base < 50 {
		base = 50
	}
	budget := int(float64(base) * timeMultiplier(periodDays))
	if budget > 500 {
		budget = 500
	}
	return budget
}

// singleGroupBudget scales the single-group budget with the period, capped
// at 1000.
func singleGroupBudget(maxMessages, periodDays int) int {
	budget := int(float64(maxMessages) * timeMultiplier(periodDays))
	if budget > 1000 {
		budget = 1000
	}
	return budget
}

func timeMultiplier(periodDays int) float64 {
	m := float64(periodDays) / 7.0
	if m < 1.0 {
		return 1.0
	}
	return m
}

func describePeriod(days int) string {
	switch days {
	case 7:
		return "this week"
	case 30:
		return "this month"
	default:
		return fmt.Sprintf("the last %d days", days)
	}
}

// detectCommunityName derives a readable community label from a pattern.
func detectCommunityName(pattern string) string {
	lower := strings.ToLower(pattern)
	switch {
	case strings.Contains(lower, "amiga"):
		return "Amiga community"
	case strings.Contains(lower, "comp.sys"):
		return "Computer systems community"
	default:
		return pattern + " community"
	}
}

func sortByDateDesc(msgs []model.MessageHeader) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SortDate().After(msgs[j].SortDate())
	})
}

func countByGroup(msgs []model.MessageHeader) map[string]int {
	counts := make(map[string]int)
	for _, m := range msgs {
		counts[m.Group]++
	}
	return counts
}

// filterByPosterSubstring is the non-semantic poster filter: plain
// case-insensitive containment, no annotations.
func filterByPosterSubstring(msgs []model.MessageHeader, poster string) []model.MessageHeader {
	q := strings.ToLower(poster)
	out := make([]model.MessageHeader, 0, len(msgs))
	for _, m := range msgs {
		if strings.Contains(strings.ToLower(m.From), q) {
			out = append(out, m)
		}
	}
	return out
}

// filterByTopicKeywords is the non-semantic topic filter: any query token
// present in the searched text retains the message.
func filterByTopicKeywords(msgs []model.MessageHeader, topic string, useBody bool) []model.MessageHeader {
	tokens := strings.Fields(strings.ToLower(topic))
	out := make([]model.MessageHeader, 0, len(msgs))
	for _, m := range msgs {
		text := strings.ToLower(m.Subject)
		if useBody && m.Body != "" {
			text += " " + strings.ToLower(m.Body)
		}
		for _, tok := range tokens {
			if strings.Contains(text, tok) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// summarizeAnnotations aggregates annotation evidence over the top five
// matches plus average relevance over all matches.
func summarizeAnnotations(msgs []model.MessageHeader) AnalysisSummary {
	var sum AnalysisSummary
	top := msgs
	if len(top) > 5 {
		top = top[:5]
	}
	for _, m := range top {
		if m.Poster != nil {
			if sum.PosterReasons == nil {
				sum.PosterReasons = make(map[string]int)
			}
			sum.PosterReasons[m.Poster.Reason]++
		}
		if m.Topic != nil {
			if sum.TopicIndicators == nil {
				sum.TopicIndicators = make(map[string]int)
			}
			sum.TopicIndicators[m.Topic.KeyIndicators]++
			if m.Topic.UsedBody {
				sum.UsedBodyCount++
			}
		}
	}
	total := 0.0
	n := 0
	for _, m := range msgs {
		if m.Topic != nil {
			total += m.Topic.Relevance
			n++
		}
	}
	if n > 0 {
		sum.AverageRelevance = total / float64(n)
	}
	return sum
}
