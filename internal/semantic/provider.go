// Package semantic defines the external scoring capability consumed by the
// relevance engine and community analyzer. The capability is injected once;
// an absent or failing provider is substituted with deterministic fallbacks
// by the consumers, never surfaced as a fatal error.
package semantic

import (
	"context"
	"errors"

	"usenet-scout/internal/model"
)

// ErrUnavailable reports that the capability was never initialized
// (no API key, bad configuration). Consumers log it once and fall back.
var ErrUnavailable = errors.New("semantic capability unavailable")

// PosterAssessment is the outcome of a poster-match request.
type PosterAssessment struct {
	IsMatch    bool    `json:"is_match"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// TopicInput carries one message into a topic-match request. Body is used
// only when UseBody is set and the body is non-empty.
type TopicInput struct {
	Query   string
	Subject string
	From    string
	Group   string
	Body    string
	UseBody bool
}

// TopicAssessment is the outcome of a topic-match request.
type TopicAssessment struct {
	Relevance     float64 `json:"relevance"`
	IsMatch       bool    `json:"is_match"`
	Confidence    float64 `json:"confidence"`
	KeyIndicators string  `json:"key_indicators"`
	ContextNotes  string  `json:"context_notes"`
}

// ClassifyInput carries one message into a classification request.
type ClassifyInput struct {
	Subject string
	From    string
	Group   string
	Body    string
}

// Provider is the semantic scoring capability. Every method may fail per
// call; implementations return ErrUnavailable when the capability was never
// initialized.
type Provider interface {
	// MatchPoster decides whether a message sender matches a poster query.
	MatchPoster(ctx context.Context, query, from string) (PosterAssessment, error)
	// AssessTopic scores a message against a topic query, optionally
	// consulting the body.
	AssessTopic(ctx context.Context, in TopicInput) (TopicAssessment, error)
	// Classify assigns a message type, importance and summary.
	Classify(ctx context.Context, in ClassifyInput) (model.Classification, error)
	// ClusterTopics aggregates message summaries into a trend analysis.
	ClusterTopics(ctx context.Context, summaries []string, period, community string) (model.TrendSummary, error)
	// SummarizeCommunity turns a trend analysis into a narrative summary.
	SummarizeCommunity(ctx context.Context, trends model.TrendSummary, messageCount int, period, community string) (model.CommunitySummary, error)
}
