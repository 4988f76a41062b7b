// Package analyze classifies messages, aggregates trends over a time window
// and produces community activity summaries.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"usenet-scout/internal/model"
	"usenet-scout/internal/semantic"
)

// trendSummaryCap bounds how many message summaries feed the semantic
// clustering call.
const trendSummaryCap = 50

const callTimeout = 30 * time.Second
const aggregateTimeout = 120 * time.Second

// announcementKeywords flag a subject as an announcement in the fallback
// classifier (substring, case-insensitive).
var announcementKeywords = []string{"announce", "release", "new", "available", "update"}

// Analyzer classifies and summarizes community activity. A nil provider
// runs purely on deterministic fallbacks.
type Analyzer struct {
	provider semantic.Provider

	logUnavailable sync.Once
}

func New(provider semantic.Provider) *Analyzer {
	return &Analyzer{provider: provider}
}

// Report is the full output of AnalyzeMessages.
type Report struct {
	Summary      model.CommunitySummary    `json:"summary"`
	Trends       model.TrendSummary        `json:"trends"`
	Classified   []model.ClassifiedMessage `json:"classified_messages"`
	MessageCount int                       `json:"message_count"`
}

// Classify assigns a type, importance and summary to one message, falling
// back to keyword heuristics when the semantic capability is absent or the
// call fails.
func (a *Analyzer) Classify(ctx context.Context, msg model.MessageHeader) model.Classification {
	if a.provider == nil {
		return fallbackClassification(msg, 0.5)
	}
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	c, err := a.provider.Classify(callCtx, semantic.ClassifyInput{
		Subject: msg.Subject,
		From:    msg.From,
		Group:   msg.Group,
		Body:    msg.Body,
	})
	if err == nil {
		return c
	}
	if errors.Is(err, semantic.ErrUnavailable) {
		a.logUnavailableOnce()
		return fallbackClassification(msg, 0.5)
	}
	slog.Debug("analyze: classification failed", "error", err)
	return fallbackClassification(msg, 0.3)
}

// ClassifyAll classifies every message in order.
func (a *Analyzer) ClassifyAll(ctx context.Context, msgs []model.MessageHeader) []model.ClassifiedMessage {
	out := make([]model.ClassifiedMessage, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, model.ClassifiedMessage{
			MessageHeader:  msg,
			Classification: a.Classify(ctx, msg),
		})
	}
	return out
}

// AnalyzeTrends clusters classified messages into a trend summary for the
// period. Empty input yields a fixed no-activity summary without invoking
// the capability.
func (a *Analyzer) AnalyzeTrends(ctx context.Context, classified []model.ClassifiedMessage, period, community string) model.TrendSummary {
	if len(classified) == 0 {
		return model.TrendSummary{
			TrendingTopics:       "No activity found",
			EmergingThemes:       "No emerging themes",
			DiscussionTypes:      "No discussions",
			NotableAnnouncements: "No announcements",
		}
	}
	if a.provider == nil {
		return fallbackTrends(classified)
	}

	summaries := make([]string, 0, trendSummaryCap)
	for _, m := range classified {
		if len(summaries) >= trendSummaryCap {
			break
		}
		summaries = append(summaries, fmt.Sprintf("%s, Topics: %s, Type: %s",
			m.Classification.Summary,
			strings.Join(m.Classification.KeyTopics, ", "),
			m.Classification.Type))
	}

	callCtx, cancel := context.WithTimeout(ctx, aggregateTimeout)
	defer cancel()
	trends, err := a.provider.ClusterTopics(callCtx, summaries, period, community)
	if err == nil {
		return trends
	}
	if errors.Is(err, semantic.ErrUnavailable) {
		a.logUnavailableOnce()
	} else {
		slog.Debug("analyze: trend clustering failed", "error", err)
	}
	return fallbackTrends(classified)
}

// Summarize produces the narrative community summary. Empty trend input is
// not special-cased here; AnalyzeMessages short-circuits before this point.
func (a *Analyzer) Summarize(ctx context.Context, trends model.TrendSummary, messageCount int, period, community string) model.CommunitySummary {
	if a.provider == nil {
		return fallbackSummary(trends, messageCount, period, community)
	}
	callCtx, cancel := context.WithTimeout(ctx, aggregateTimeout)
	defer cancel()
	summary, err := a.provider.SummarizeCommunity(callCtx, trends, messageCount, period, community)
	if err == nil {
		return summary
	}
	if errors.Is(err, semantic.ErrUnavailable) {
		a.logUnavailableOnce()
	} else {
		slog.Debug("analyze: summary generation failed", "error", err)
	}
	return fallbackSummary(trends, messageCount, period, community)
}

// AnalyzeMessages runs the full pipeline: classify, cluster, summarize.
// Empty input short-circuits to a fixed no-activity report with zero
// semantic calls.
func (a *Analyzer) AnalyzeMessages(ctx context.Context, msgs []model.MessageHeader, period, community string) Report {
	if len(msgs) == 0 {
		return Report{
			Summary: model.CommunitySummary{
				Title:                fmt.Sprintf("%s Activity - %s", titleCase(community), titleCase(period)),
				Overview:             fmt.Sprintf("No activity found in the %s during %s.", community, period),
				Highlights:           "• No messages found\n• Community appears inactive",
				TrendingSection:      fmt.Sprintf("No trending topics found in %s.", period),
				AnnouncementsSection: "No announcements during this period.",
				CommunityPulse:       fmt.Sprintf("The %s appears to be quiet during %s.", community, period),
			},
			Classified: []model.ClassifiedMessage{},
		}
	}

	classified := a.ClassifyAll(ctx, msgs)
	trends := a.AnalyzeTrends(ctx, classified, period, community)
	summary := a.Summarize(ctx, trends, len(msgs), period, community)
	return Report{
		Summary:      summary,
		Trends:       trends,
		Classified:   classified,
		MessageCount: len(msgs),
	}
}

// FilterByImportance retains classified messages at or above the threshold,
// sorted by importance descending.
func (a *Analyzer) FilterByImportance(classified []model.ClassifiedMessage, minImportance float64) []model.ClassifiedMessage {
	out := make([]model.ClassifiedMessage, 0, len(classified))
	for _, m := range classified {
		if m.Classification.Importance >= minImportance {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Classification.Importance > out[j].Classification.Importance
	})
	return out
}

// Announcements extracts announcement messages sorted by importance.
func (a *Analyzer) Announcements(classified []model.ClassifiedMessage) []model.ClassifiedMessage {
	out := make([]model.ClassifiedMessage, 0)
	for _, m := range classified {
		if m.Classification.IsAnnouncement {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Classification.Importance > out[j].Classification.Importance
	})
	return out
}

// DiscussionStats counts classified messages by type and by group.
func (a *Analyzer) DiscussionStats(classified []model.ClassifiedMessage) model.DiscussionStats {
	stats := model.DiscussionStats{
		TotalMessages: len(classified),
		ByType:        make(map[model.MessageType]int),
		ByGroup:       make(map[string]int),
	}
	for _, m := range classified {
		stats.ByType[m.Classification.Type]++
		group := m.Group
		if group == "" {
			group = "unknown"
		}
		stats.ByGroup[group]++
	}
	return stats
}

func (a *Analyzer) logUnavailableOnce() {
	a.logUnavailable.Do(func() {
		slog.Warn("analyze: semantic capability unavailable, using deterministic analysis")
	})
}

// fallbackClassification flags announcements by subject keywords.
// otherImportance distinguishes the configured-off path (0.5) from the
// error path (0.3) for non-announcements.
func fallbackClassification(msg model.MessageHeader, otherImportance float64) model.Classification {
	subject := strings.ToLower(msg.Subject)
	isAnnouncement := false
	for _, kw := range announcementKeywords {
		if strings.Contains(subject, kw) {
			isAnnouncement = true
			break
		}
	}
	c := model.Classification{
		Type:           model.TypeDiscussion,
		Importance:     otherImportance,
		IsAnnouncement: isAnnouncement,
		KeyTopics:      []string{"general discussion"},
		Summary:        truncate(msg.Subject, 100),
	}
	if isAnnouncement {
		c.Type = model.TypeAnnouncement
		c.Importance = 0.7
	}
	if c.Summary == "" {
		c.Summary = "No subject"
	}
	return c
}

func fallbackTrends(classified []model.ClassifiedMessage) model.TrendSummary {
	topicSet := map[string]struct{}{}
	var topics []string
	technical := 0
	announcements := 0
	for _, m := range classified {
		for _, t := range m.Classification.KeyTopics {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, seen := topicSet[t]; !seen {
				topicSet[t] = struct{}{}
				topics = append(topics, t)
			}
		}
		if m.Classification.Type == model.TypeTechnical {
			technical++
		}
		if m.Classification.IsAnnouncement {
			announcements++
		}
	}
	trending := "General discussions"
	if len(topics) > 0 {
		if len(topics) > 3 {
			topics = topics[:3]
		}
		trending = strings.Join(topics, ", ")
	}
	return model.TrendSummary{
		TrendingTopics:       trending,
		EmergingThemes:       "Various community discussions",
		DiscussionTypes:      fmt.Sprintf("Technical: %d, Social: %d", technical, len(classified)-technical),
		NotableAnnouncements: fmt.Sprintf("%d announcements found", announcements),
	}
}

func fallbackSummary(trends model.TrendSummary, messageCount int, period, community string) model.CommunitySummary {
	return model.CommunitySummary{
		Title:    fmt.Sprintf("%s Activity - %s", titleCase(community), titleCase(period)),
		Overview: fmt.Sprintf("Analyzed %d messages from the %s over %s.", messageCount, community, period),
		Highlights: fmt.Sprintf("• %s\n• %s\n• %d total messages analyzed",
			trends.TrendingTopics, trends.DiscussionTypes, messageCount),
		TrendingSection:      fmt.Sprintf("Popular topics included %s.", trends.TrendingTopics),
		AnnouncementsSection: trends.NotableAnnouncements,
		CommunityPulse:       fmt.Sprintf("The %s shows active engagement with %s.", community, trends.DiscussionTypes),
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
		}
	}
	return strings.Join(words, " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
