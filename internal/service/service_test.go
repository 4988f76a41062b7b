package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usenet-scout/internal/analyze"
	"usenet-scout/internal/catalog"
	"usenet-scout/internal/model"
)

type fakeCatalog struct {
	groups     []model.GroupRecord
	resolveErr error
	refreshed  bool
}

func (c *fakeCatalog) Resolve(ctx context.Context, pattern string) ([]model.GroupRecord, error) {
	return c.groups, c.resolveErr
}

func (c *fakeCatalog) Refresh(ctx context.Context, force bool) (*model.Snapshot, bool, error) {
	c.refreshed = true
	return &model.Snapshot{CapturedAt: time.Now(), Groups: c.groups}, true, nil
}

func (c *fakeCatalog) Status(ctx context.Context) (catalog.Info, error) {
	return catalog.Info{Exists: true, GroupCount: len(c.groups)}, nil
}

type fakeFetcher struct {
	headers    map[string][]model.MessageHeader
	fetchErr   error
	bodyCalls  []int
	bodyGroups []string
}

func (f *fakeFetcher) FetchHeaders(ctx context.Context, group string, maxCount, sinceDays int) ([]model.MessageHeader, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	msgs := f.headers[group]
	if len(msgs) > maxCount {
		msgs = msgs[:maxCount]
	}
	return msgs, nil
}

func (f *fakeFetcher) FetchBodies(ctx context.Context, group string, msgs []model.MessageHeader, maxBodies int) []model.MessageHeader {
	f.bodyCalls = append(f.bodyCalls, maxBodies)
	f.bodyGroups = append(f.bodyGroups, group)
	out := make([]model.MessageHeader, len(msgs))
	copy(out, msgs)
	for i := range out {
		out[i].Body = "body text"
	}
	return out
}

type fakeAggregator struct {
	results     map[string][]model.MessageHeader
	gotGroups   []string
	gotPerGroup int
}

func (a *fakeAggregator) SearchGroups(ctx context.Context, groups []string, maxPerGroup, sinceDays int) map[string][]model.MessageHeader {
	a.gotGroups = groups
	a.gotPerGroup = maxPerGroup
	out := make(map[string][]model.MessageHeader)
	for _, g := range groups {
		if msgs, okv := a.results[g]; okv && len(msgs) > 0 {
			out[g] = msgs
		}
	}
	return out
}

type fakeRelevance struct {
	posterCalls int
	topicCalls  int
	gotUseBody  bool
}

func (r *fakeRelevance) FilterByPoster(ctx context.Context, msgs []model.MessageHeader, query string, minConfidence float64) []model.MessageHeader {
	r.posterCalls++
	return msgs
}

func (r *fakeRelevance) FilterByTopic(ctx context.Context, msgs []model.MessageHeader, query string, minRelevance, minConfidence float64, useBody bool) []model.MessageHeader {
	r.topicCalls++
	r.gotUseBody = useBody
	return msgs
}

type fakeAnalyzer struct{}

func (a *fakeAnalyzer) AnalyzeMessages(ctx context.Context, msgs []model.MessageHeader, period, community string) analyze.Report {
	classified := make([]model.ClassifiedMessage, 0, len(msgs))
	for _, m := range msgs {
		classified = append(classified, model.ClassifiedMessage{
			MessageHeader: m,
			Classification: model.Classification{
				Type:       model.TypeDiscussion,
				Importance: 0.5,
			},
		})
	}
	return analyze.Report{
		Summary:      model.CommunitySummary{Title: community + " Activity"},
		Classified:   classified,
		MessageCount: len(msgs),
	}
}

func (a *fakeAnalyzer) FilterByImportance(classified []model.ClassifiedMessage, minImportance float64) []model.ClassifiedMessage {
	out := make([]model.ClassifiedMessage, 0, len(classified))
	for _, c := range classified {
		if c.Classification.Importance >= minImportance {
			out = append(out, c)
		}
	}
	return out
}

func (a *fakeAnalyzer) Announcements(classified []model.ClassifiedMessage) []model.ClassifiedMessage {
	out := make([]model.ClassifiedMessage, 0)
	for _, c := range classified {
		if c.Classification.IsAnnouncement {
			out = append(out, c)
		}
	}
	return out
}

func (a *fakeAnalyzer) DiscussionStats(classified []model.ClassifiedMessage) model.DiscussionStats {
	return model.DiscussionStats{TotalMessages: len(classified)}
}

func headerAt(group, subject string, hoursAgo int) model.MessageHeader {
	d := time.Now().UTC().Add(-time.Duration(hoursAgo) * time.Hour)
	return model.MessageHeader{Group: group, Subject: subject, From: "a@example.com", Date: &d}
}

func newTestService(cat *fakeCatalog, f *fakeFetcher, agg *fakeAggregator, rel *fakeRelevance) *Service {
	return New(cat, f, agg, rel, &fakeAnalyzer{}, true)
}

func TestNotConfigured(t *testing.T) {
	svc := New(&fakeCatalog{}, &fakeFetcher{}, &fakeAggregator{}, &fakeRelevance{}, &fakeAnalyzer{}, false)

	assert.False(t, svc.ListGroups(context.Background(), "*", 10, false).Success)
	assert.False(t, svc.RefreshCache(context.Background(), true).Success)
	res := svc.SearchMessages(context.Background(), SearchParams{Newsgroup: "comp.sys.amiga.misc"})
	assert.False(t, res.Success)
	assert.Equal(t, ErrNotConfigured.Error(), res.Error)
}

func TestListGroupsLimits(t *testing.T) {
	cat := &fakeCatalog{groups: []model.GroupRecord{
		{Name: "comp.sys.amiga.misc"},
		{Name: "comp.sys.amiga.hardware"},
		{Name: "comp.sys.amiga.games"},
	}}
	svc := newTestService(cat, &fakeFetcher{}, &fakeAggregator{}, &fakeRelevance{})

	res := svc.ListGroups(context.Background(), "amiga", 2, false)
	require.True(t, res.Success)
	assert.Len(t, res.Groups, 2)
	assert.True(t, res.Limited)

	res = svc.ListGroups(context.Background(), "amiga", 2, true)
	assert.Len(t, res.Groups, 3)
	assert.False(t, res.Limited)
}

func TestListGroupsResolveError(t *testing.T) {
	cat := &fakeCatalog{resolveErr: errors.New("boom")}
	svc := newTestService(cat, &fakeFetcher{}, &fakeAggregator{}, &fakeRelevance{})

	res := svc.ListGroups(context.Background(), "*", 10, false)
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Error)
}

func TestSearchSingleGroup(t *testing.T) {
	f := &fakeFetcher{headers: map[string][]model.MessageHeader{
		"comp.sys.amiga.misc": {
			headerAt("comp.sys.amiga.misc", "Old post", 48),
			headerAt("comp.sys.amiga.misc", "New post", 1),
		},
	}}
	rel := &fakeRelevance{}
	svc := newTestService(&fakeCatalog{}, f, &fakeAggregator{}, rel)

	res := svc.SearchMessages(context.Background(), SearchParams{
		Newsgroup:   "comp.sys.amiga.misc",
		Topic:       "post",
		MaxMessages: 100,
		UseSemantic: true,
	})
	require.True(t, res.Success)
	assert.False(t, res.IsMultiGroup)
	assert.Equal(t, "comp.sys.amiga.misc", res.Newsgroup)
	assert.Equal(t, 2, res.TotalCount)
	assert.Equal(t, 1, rel.topicCalls)
	assert.Zero(t, rel.posterCalls)
}

func TestSearchWildcardIsMultiGroup(t *testing.T) {
	cat := &fakeCatalog{groups: []model.GroupRecord{
		{Name: "comp.sys.amiga.misc"},
		{Name: "comp.sys.amiga.hardware"},
	}}
	agg := &fakeAggregator{results: map[string][]model.MessageHeader{
		"comp.sys.amiga.misc":     {headerAt("comp.sys.amiga.misc", "A", 2)},
		"comp.sys.amiga.hardware": {headerAt("comp.sys.amiga.hardware", "B", 1)},
	}}
	svc := newTestService(cat, &fakeFetcher{}, agg, &fakeRelevance{})

	res := svc.SearchMessages(context.Background(), SearchParams{
		Newsgroup:   "comp.sys.amiga.*",
		MaxMessages: 100,
		MaxGroups:   20,
	})
	require.True(t, res.Success)
	assert.True(t, res.IsMultiGroup)
	assert.Equal(t, "comp.sys.amiga.*", res.Pattern)
	assert.Equal(t, []string{"comp.sys.amiga.misc", "comp.sys.amiga.hardware"}, agg.gotGroups)
	require.Len(t, res.Messages, 2)
	// Flattened result is sorted newest first.
	assert.Equal(t, "B", res.Messages[0].Subject)
	assert.Equal(t, map[string]int{"comp.sys.amiga.misc": 1, "comp.sys.amiga.hardware": 1}, res.GroupCounts)
}

func TestSearchBodyAwareSingleGroupOnly(t *testing.T) {
	f := &fakeFetcher{headers: map[string][]model.MessageHeader{
		"comp.sys.amiga.misc": {headerAt("comp.sys.amiga.misc", "Accelerator", 1)},
	}}
	rel := &fakeRelevance{}
	svc := newTestService(&fakeCatalog{}, f, &fakeAggregator{}, rel)

	res := svc.SearchMessages(context.Background(), SearchParams{
		Newsgroup:   "comp.sys.amiga.misc",
		Topic:       "accelerator",
		MaxMessages: 100,
		WithBody:    true,
		UseSemantic: true,
	})
	require.True(t, res.Success)
	assert.True(t, rel.gotUseBody)
	require.Len(t, f.bodyCalls, 1)
	assert.Equal(t, []string{"comp.sys.amiga.misc"}, f.bodyGroups)
}

func TestSearchBodyCapRespected(t *testing.T) {
	var msgs []model.MessageHeader
	for i := 0; i < 30; i++ {
		msgs = append(msgs, headerAt("comp.sys.amiga.misc", "Subject", i))
	}
	f := &fakeFetcher{headers: map[string][]model.MessageHeader{"comp.sys.amiga.misc": msgs}}
	svc := newTestService(&fakeCatalog{}, f, &fakeAggregator{}, &fakeRelevance{})

	res := svc.SearchMessages(context.Background(), SearchParams{
		Newsgroup:   "comp.sys.amiga.misc",
		Topic:       "subject",
		MaxMessages: 100,
		WithBody:    true,
		UseSemantic: true,
	})
	require.True(t, res.Success)
	require.Len(t, f.bodyCalls, 1)
	assert.Equal(t, 20, f.bodyCalls[0])
	// Messages beyond the cap are kept, scored header-only.
	assert.Equal(t, 30, res.TotalCount)
}

func TestSearchDeterministicFilters(t *testing.T) {
	f := &fakeFetcher{headers: map[string][]model.MessageHeader{
		"comp.sys.amiga.misc": {
			{Group: "comp.sys.amiga.misc", Subject: "Accelerator card for sale", From: "John Smith <js@example.com>"},
			{Group: "comp.sys.amiga.misc", Subject: "Monitor question", From: "Jane Doe <jd@example.com>"},
		},
	}}
	rel := &fakeRelevance{}
	svc := newTestService(&fakeCatalog{}, f, &fakeAggregator{}, rel)

	res := svc.SearchMessages(context.Background(), SearchParams{
		Newsgroup:   "comp.sys.amiga.misc",
		Poster:      "smith",
		Topic:       "accelerator",
		MaxMessages: 100,
		UseSemantic: false,
	})
	require.True(t, res.Success)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "Accelerator card for sale", res.Messages[0].Subject)
	assert.Zero(t, rel.posterCalls)
	assert.Zero(t, rel.topicCalls)
}

func TestListMessagesScalesBudget(t *testing.T) {
	cat := &fakeCatalog{groups: []model.GroupRecord{{Name: "comp.sys.amiga.misc"}}}
	agg := &fakeAggregator{results: map[string][]model.MessageHeader{
		"comp.sys.amiga.misc": {headerAt("comp.sys.amiga.misc", "A", 1)},
	}}
	svc := newTestService(cat, &fakeFetcher{}, agg, &fakeRelevance{})

	// 100 messages over 20 groups for 28 days: base 50, multiplier 4.
	res := svc.ListMessages(context.Background(), "comp.sys.amiga.*", 28, 100, 20)
	require.True(t, res.Success)
	assert.Equal(t, 200, agg.gotPerGroup)
	assert.Equal(t, 28, res.PeriodDays)
}

func TestPerGroupBudget(t *testing.T) {
	// Short period keeps the floor.
	assert.Equal(t, 50, perGroupBudget(100, 20, 7))
	// Long periods scale up but cap at 500.
	assert.Equal(t, 500, perGroupBudget(1000, 4, 60))
	// Small group counts divide by at least 4.
	assert.Equal(t, 250, perGroupBudget(1000, 1, 7))
}

func TestSingleGroupBudget(t *testing.T) {
	assert.Equal(t, 100, singleGroupBudget(100, 7))
	assert.Equal(t, 400, singleGroupBudget(100, 28))
	assert.Equal(t, 1000, singleGroupBudget(500, 60))
	// Sub-week periods never shrink the budget.
	assert.Equal(t, 100, singleGroupBudget(100, 1))
}

func TestListMessagesDisplayCap(t *testing.T) {
	var msgs []model.MessageHeader
	for i := 0; i < 8; i++ {
		msgs = append(msgs, headerAt("comp.sys.amiga.misc", "S", i))
	}
	f := &fakeFetcher{headers: map[string][]model.MessageHeader{"comp.sys.amiga.misc": msgs}}
	svc := newTestService(&fakeCatalog{}, f, &fakeAggregator{}, &fakeRelevance{})

	res := svc.ListMessages(context.Background(), "comp.sys.amiga.misc", 7, 5, 20)
	require.True(t, res.Success)
	assert.Equal(t, 8, res.TotalCount)
	assert.Equal(t, 5, res.DisplayedCount)
	assert.Len(t, res.Messages, 5)
}

func TestSummarizeCommunityNames(t *testing.T) {
	assert.Equal(t, "Amiga community", detectCommunityName("comp.sys.amiga.*"))
	assert.Equal(t, "Computer systems community", detectCommunityName("comp.sys.mac.misc"))
	assert.Equal(t, "alt.folklore.computers community", detectCommunityName("alt.folklore.computers"))
}

func TestDescribePeriod(t *testing.T) {
	assert.Equal(t, "this week", describePeriod(7))
	assert.Equal(t, "this month", describePeriod(30))
	assert.Equal(t, "the last 14 days", describePeriod(14))
}

func TestSummarizeCommunity(t *testing.T) {
	f := &fakeFetcher{headers: map[string][]model.MessageHeader{
		"comp.sys.amiga.misc": {
			headerAt("comp.sys.amiga.misc", "A", 1),
			headerAt("comp.sys.amiga.misc", "B", 2),
		},
	}}
	svc := newTestService(&fakeCatalog{}, f, &fakeAggregator{}, &fakeRelevance{})

	res := svc.SummarizeCommunity(context.Background(), SummarizeParams{
		Pattern:       "comp.sys.amiga.misc",
		PeriodDays:    7,
		MaxMessages:   100,
		MaxGroups:     20,
		MinImportance: 0.5,
	})
	require.True(t, res.Success)
	assert.Equal(t, "Amiga community", res.CommunityName)
	assert.Equal(t, "this week", res.Period)
	assert.Equal(t, 2, res.MessagesAnalyzed)
	assert.Equal(t, 1, res.GroupsAnalyzed)
	assert.False(t, res.IsMultiGroup)
	assert.Len(t, res.ImportantMessages, 2)
	assert.Equal(t, 2, res.Stats.TotalMessages)
}

func TestIsMultiGroup(t *testing.T) {
	assert.True(t, isMultiGroup("comp.sys.amiga.*", false))
	assert.True(t, isMultiGroup("comp.sys.?????.misc", false))
	assert.True(t, isMultiGroup("comp.sys.amiga.misc", true))
	assert.False(t, isMultiGroup("comp.sys.amiga.misc", false))
}
