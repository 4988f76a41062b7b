package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"usenet-scout/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using OpenAI Chat Completions with
// JSON-mode responses.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional
}

func NewOpenAI(cfg Config) *OpenAIProvider {
	var c *openai.Client
	if cfg.BaseURL != "" {
		cc := openai.DefaultConfig(cfg.APIKey)
		cc.BaseURL = cfg.BaseURL
		c = openai.NewClientWithConfig(cc)
	} else {
		c = openai.NewClient(cfg.APIKey)
	}
	m := cfg.Model
	if m == "" {
		panic("OpenAI model must be specified")
	}
	return &OpenAIProvider{client: c, model: m}
}

// Per-message scoring calls stay short; aggregate calls get more room.
const (
	scoreTimeout     = 30 * time.Second
	aggregateTimeout = 120 * time.Second
)

const bodyExcerptLen = 500
const classifyExcerptLen = 300

func (p *OpenAIProvider) MatchPoster(ctx context.Context, query, from string) (PosterAssessment, error) {
	sys := `You match newsgroup message senders against a search query (a person or company name).
Respond with JSON: {"is_match": bool, "confidence": number 0.0-1.0, "reason": "brief explanation of the matching decision"}.`
	user := fmt.Sprintf("Search query: %s\nMessage From field: %s", query, from)

	var out PosterAssessment
	if err := p.create(ctx, scoreTimeout, sys, user, &out); err != nil {
		return PosterAssessment{}, err
	}
	return out, nil
}

func (p *OpenAIProvider) AssessTopic(ctx context.Context, in TopicInput) (TopicAssessment, error) {
	sys := `You assess whether a newsgroup message is about a searched topic, product or concept.
Respond with JSON: {"relevance": number 0.0-1.0, "is_match": bool, "confidence": number 0.0-1.0,
"key_indicators": "words or phrases that indicate topic relevance",
"context_notes": "why this message matches or does not match"}.`

	b := &strings.Builder{}
	fmt.Fprintf(b, "Topic query: %s\nSubject: %s\nFrom: %s\nNewsgroup: %s\n", in.Query, in.Subject, in.From, in.Group)
	if in.UseBody && in.Body != "" {
		fmt.Fprintf(b, "Body (excerpt): %s\n", excerpt(in.Body, bodyExcerptLen))
	}

	var out TopicAssessment
	if err := p.create(ctx, scoreTimeout, sys, b.String(), &out); err != nil {
		return TopicAssessment{}, err
	}
	out.Relevance = clamp01(out.Relevance)
	out.Confidence = clamp01(out.Confidence)
	return out, nil
}

func (p *OpenAIProvider) Classify(ctx context.Context, in ClassifyInput) (model.Classification, error) {
	sys := `You classify newsgroup messages for community analysis.
Respond with JSON: {"type": one of "announcement","question","discussion","technical","commercial","social",
"importance": number 0.0-1.0, "is_announcement": bool,
"key_topics": ["main topics discussed"], "summary": "one-sentence summary of the message"}.`

	b := &strings.Builder{}
	fmt.Fprintf(b, "Subject: %s\nFrom: %s\nNewsgroup: %s\n", in.Subject, in.From, in.Group)
	if in.Body != "" {
		fmt.Fprintf(b, "Body (excerpt): %s\n", excerpt(in.Body, classifyExcerptLen))
	}

	var raw struct {
		Type           string   `json:"type"`
		Importance     float64  `json:"importance"`
		IsAnnouncement bool     `json:"is_announcement"`
		KeyTopics      []string `json:"key_topics"`
		Summary        string   `json:"summary"`
	}
	if err := p.create(ctx, scoreTimeout, sys, b.String(), &raw); err != nil {
		return model.Classification{}, err
	}
	return model.Classification{
		Type:           model.NormalizeMessageType(raw.Type),
		Importance:     clamp01(raw.Importance),
		IsAnnouncement: raw.IsAnnouncement,
		KeyTopics:      raw.KeyTopics,
		Summary:        raw.Summary,
	}, nil
}

func (p *OpenAIProvider) ClusterTopics(ctx context.Context, summaries []string, period, community string) (model.TrendSummary, error) {
	sys := `You identify and cluster related topics from newsgroup message summaries for trend analysis.
Respond with JSON: {"trending_topics": "top 3-5 trending topics with activity levels",
"emerging_themes": "new or emerging themes", "discussion_types": "ratios of technical, social, commercial discussion",
"notable_announcements": "key announcements or significant events mentioned"}.`
	user := fmt.Sprintf("Community: %s\nTime period: %s\nMessage summaries, one per line:\n%s",
		community, period, strings.Join(summaries, "\n"))

	var out model.TrendSummary
	if err := p.create(ctx, aggregateTimeout, sys, user, &out); err != nil {
		return model.TrendSummary{}, err
	}
	return out, nil
}

func (p *OpenAIProvider) SummarizeCommunity(ctx context.Context, trends model.TrendSummary, messageCount int, period, community string) (model.CommunitySummary, error) {
	sys := `You write engaging community activity summaries from analyzed newsgroup data.
Respond with JSON: {"title": "engaging title", "overview": "2-3 sentence overview",
"highlights": "3-5 bullet points of key highlights", "trending_section": "paragraph about trending topics",
"announcements_section": "section on important announcements", "community_pulse": "brief assessment of engagement and mood"}.`
	user := fmt.Sprintf(
		"Community: %s\nTime period: %s\nMessages analyzed: %d\nTrending topics: %s\nAnnouncements: %s\nDiscussion types: %s",
		community, period, messageCount,
		trends.TrendingTopics, trends.NotableAnnouncements, trends.DiscussionTypes)

	var out model.CommunitySummary
	if err := p.create(ctx, aggregateTimeout, sys, user, &out); err != nil {
		return model.CommunitySummary{}, err
	}
	return out, nil
}

func (p *OpenAIProvider) create(ctx context.Context, timeout time.Duration, system, user string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		slog.Debug("semantic: completion error", "err", err)
		return err
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("semantic: empty completion")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("semantic: decode response: %w", err)
	}
	return nil
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
