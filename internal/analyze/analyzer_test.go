package analyze

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usenet-scout/internal/model"
	"usenet-scout/internal/semantic"
)

// countingProvider fails the test if any method is invoked.
type countingProvider struct {
	t     *testing.T
	calls int
}

func (p *countingProvider) hit() {
	p.calls++
	if p.t != nil {
		p.t.Errorf("semantic capability invoked unexpectedly")
	}
}

func (p *countingProvider) MatchPoster(ctx context.Context, query, from string) (semantic.PosterAssessment, error) {
	p.hit()
	return semantic.PosterAssessment{}, errors.New("unexpected")
}

func (p *countingProvider) AssessTopic(ctx context.Context, in semantic.TopicInput) (semantic.TopicAssessment, error) {
	p.hit()
	return semantic.TopicAssessment{}, errors.New("unexpected")
}

func (p *countingProvider) Classify(ctx context.Context, in semantic.ClassifyInput) (model.Classification, error) {
	p.hit()
	return model.Classification{}, errors.New("unexpected")
}

func (p *countingProvider) ClusterTopics(ctx context.Context, summaries []string, period, community string) (model.TrendSummary, error) {
	p.hit()
	return model.TrendSummary{}, errors.New("unexpected")
}

func (p *countingProvider) SummarizeCommunity(ctx context.Context, trends model.TrendSummary, n int, period, community string) (model.CommunitySummary, error) {
	p.hit()
	return model.CommunitySummary{}, errors.New("unexpected")
}

func header(group, subject string) model.MessageHeader {
	return model.MessageHeader{Group: group, Subject: subject, From: "someone@example.com"}
}

func TestClassifyFallbackAnnouncement(t *testing.T) {
	a := New(nil)

	c := a.Classify(context.Background(), header("g", "New Release Available"))
	assert.Equal(t, model.TypeAnnouncement, c.Type)
	assert.Equal(t, 0.7, c.Importance)
	assert.True(t, c.IsAnnouncement)

	c = a.Classify(context.Background(), header("g", "Question about SCSI termination"))
	assert.Equal(t, model.TypeDiscussion, c.Type)
	assert.Equal(t, 0.5, c.Importance)
	assert.False(t, c.IsAnnouncement)
}

func TestClassifyFallbackAfterError(t *testing.T) {
	a := New(&failingClassifier{})

	c := a.Classify(context.Background(), header("g", "Question about SCSI termination"))
	assert.Equal(t, model.TypeDiscussion, c.Type)
	assert.Equal(t, 0.3, c.Importance)

	// Announcement importance stays 0.7 on the error path.
	c = a.Classify(context.Background(), header("g", "ANNOUNCE: new compiler"))
	assert.Equal(t, 0.7, c.Importance)
}

type failingClassifier struct{ countingProvider }

func (p *failingClassifier) Classify(ctx context.Context, in semantic.ClassifyInput) (model.Classification, error) {
	return model.Classification{}, errors.New("model runtime failure")
}

func TestAnalyzeMessagesEmptyShortCircuits(t *testing.T) {
	p := &countingProvider{t: t}
	a := New(p)

	report := a.AnalyzeMessages(context.Background(), nil, "this week", "Amiga community")
	assert.Zero(t, p.calls)
	assert.Equal(t, 0, report.MessageCount)
	assert.Empty(t, report.Classified)
	assert.Contains(t, report.Summary.Overview, "No activity found")
	assert.Equal(t, "Amiga Community Activity - This Week", report.Summary.Title)
}

func TestAnalyzeTrendsEmptyShortCircuits(t *testing.T) {
	p := &countingProvider{t: t}
	a := New(p)

	trends := a.AnalyzeTrends(context.Background(), nil, "this week", "community")
	assert.Zero(t, p.calls)
	assert.Equal(t, "No activity found", trends.TrendingTopics)
	assert.Equal(t, "No announcements", trends.NotableAnnouncements)
}

func TestAnalyzeMessagesFallbackPipeline(t *testing.T) {
	a := New(nil)
	msgs := []model.MessageHeader{
		header("comp.sys.amiga.misc", "New Release Available"),
		header("comp.sys.amiga.misc", "Re: floppy drive repair"),
		header("comp.sys.amiga.hardware", "Update: firmware 2.1 available"),
	}

	report := a.AnalyzeMessages(context.Background(), msgs, "this week", "Amiga community")
	require.Len(t, report.Classified, 3)
	assert.Equal(t, 3, report.MessageCount)
	assert.Contains(t, report.Trends.NotableAnnouncements, "2 announcements")
	assert.Contains(t, report.Summary.Overview, "3 messages")
}

func TestFilterByImportance(t *testing.T) {
	a := New(nil)
	classified := []model.ClassifiedMessage{
		{MessageHeader: header("g", "a"), Classification: model.Classification{Importance: 0.2}},
		{MessageHeader: header("g", "b"), Classification: model.Classification{Importance: 0.9}},
		{MessageHeader: header("g", "c"), Classification: model.Classification{Importance: 0.6}},
	}

	got := a.FilterByImportance(classified, 0.5)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Subject)
	assert.Equal(t, "c", got[1].Subject)
}

func TestAnnouncements(t *testing.T) {
	a := New(nil)
	classified := []model.ClassifiedMessage{
		{MessageHeader: header("g", "minor"), Classification: model.Classification{IsAnnouncement: true, Importance: 0.4}},
		{MessageHeader: header("g", "chat"), Classification: model.Classification{IsAnnouncement: false, Importance: 0.9}},
		{MessageHeader: header("g", "major"), Classification: model.Classification{IsAnnouncement: true, Importance: 0.8}},
	}

	got := a.Announcements(classified)
	require.Len(t, got, 2)
	assert.Equal(t, "major", got[0].Subject)
	assert.Equal(t, "minor", got[1].Subject)
}

func TestDiscussionStats(t *testing.T) {
	a := New(nil)
	classified := []model.ClassifiedMessage{
		{MessageHeader: header("g1", "a"), Classification: model.Classification{Type: model.TypeTechnical}},
		{MessageHeader: header("g1", "b"), Classification: model.Classification{Type: model.TypeDiscussion}},
		{MessageHeader: header("g2", "c"), Classification: model.Classification{Type: model.TypeTechnical}},
	}

	stats := a.DiscussionStats(classified)
	assert.Equal(t, 3, stats.TotalMessages)
	assert.Equal(t, 2, stats.ByType[model.TypeTechnical])
	assert.Equal(t, 1, stats.ByType[model.TypeDiscussion])
	assert.Equal(t, 2, stats.ByGroup["g1"])
	assert.Equal(t, 1, stats.ByGroup["g2"])
}
