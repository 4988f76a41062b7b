// Package relevance scores and filters message collections against poster
// and topic queries, preferring the semantic capability and degrading to
// deterministic matching when it is absent or fails.
package relevance

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

// BodyFetchLimit caps how many candidates get body retrieval for body-aware
// topic analysis; messages beyond the cap are scored header-only.
const BodyFetchLimit = 20

// Fallback confidences. 0.5 marks the capability as configured-off, 0.3
// marks a runtime failure; the distinction is informational, not load-bearing.
const (
	fallbackConfidence      = 0.5
	errorFallbackConfidence = 0.3
)

const topicMatchThreshold = 0.3

// callTimeout bounds each semantic call so one slow message cannot stall
// the whole filter pass.
const callTimeout = 30 * time.Second

// Engine filters message collections. A nil provider runs purely on
// deterministic fallbacks.
type Engine struct {
	provider semantic.Provider

	logUnavailable sync.Once
}

func NewEngine(provider semantic.Provider) *Engine {
	return &Engine{provider: provider}
}

// FilterByPoster retains messages whose sender matches the query with at
// least minConfidence, annotating each retained message with a PosterMatch.
// Result is sorted by confidence descending.
func (e *Engine) FilterByPoster(ctx context.Context, msgs []model.MessageHeader, query string, minConfidence float64) []model.MessageHeader {
	out := make([]model.MessageHeader, 0, len(msgs))
	for _, msg := range msgs {
		if msg.From == "" {
			continue
		}
		res := e.matchPoster(ctx, query, msg.From)
		if res.IsMatch && res.Confidence >= minConfidence {
			m := msg
			m.Poster = &model.PosterMatch{Confidence: res.Confidence, Reason: res.Reason}
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Poster.Confidence > out[j].Poster.Confidence
	})
	return out
}

// FilterByTopic retains messages matching the topic query with at least
// minRelevance and minConfidence, annotating each retained message with a
// TopicMatch. When useBody is set, messages carrying a body get body-aware
// assessment. Result is sorted by relevance, then confidence, descending.
func (e *Engine) FilterByTopic(ctx context.Context, msgs []model.MessageHeader, query string, minRelevance, minConfidence float64, useBody bool) []model.MessageHeader {
	out := make([]model.MessageHeader, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Subject == "" {
			continue
		}
		withBody := useBody && msg.Body != ""
		res := e.assessTopic(ctx, semantic.TopicInput{
			Query:   query,
			Subject: msg.Subject,
			From:    msg.From,
			Group:   msg.Group,
			Body:    msg.Body,
			UseBody: withBody,
		})
		if res.IsMatch && res.Relevance >= minRelevance && res.Confidence >= minConfidence {
			m := msg
			m.Topic = &model.TopicMatch{
				Relevance:     res.Relevance,
				Confidence:    res.Confidence,
				KeyIndicators: res.KeyIndicators,
				ContextNotes:  res.ContextNotes,
				UsedBody:      withBody,
			}
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Topic.Relevance != out[j].Topic.Relevance {
			return out[i].Topic.Relevance > out[j].Topic.Relevance
		}
		return out[i].Topic.Confidence > out[j].Topic.Confidence
	})
	return out
}

// matchPoster attempts a semantic poster match with fallback to substring
// containment. Failure of a single call never propagates.
func (e *Engine) matchPoster(ctx context.Context, query, from string) semantic.PosterAssessment {
	if e.provider == nil {
		return posterFallback(query, from, fallbackConfidence, "simple string matching (semantic capability unavailable)")
	}
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	res, err := e.provider.MatchPoster(callCtx, query, from)
	if err == nil {
		return res
	}
	if errors.Is(err, semantic.ErrUnavailable) {
		e.logUnavailableOnce()
		return posterFallback(query, from, fallbackConfidence, "simple string matching (semantic capability unavailable)")
	}
	slog.Debug("relevance: poster match failed", "error", err)
	return posterFallback(query, from, errorFallbackConfidence, "fallback matching (semantic error)")
}

// assessTopic attempts a semantic topic assessment with fallback to keyword
// token counting.
func (e *Engine) assessTopic(ctx context.Context, in semantic.TopicInput) semantic.TopicAssessment {
	if e.provider == nil {
		return topicFallback(in, fallbackConfidence, "simple keyword matching (semantic capability unavailable)")
	}
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	res, err := e.provider.AssessTopic(callCtx, in)
	if err == nil {
		return res
	}
	if errors.Is(err, semantic.ErrUnavailable) {
		e.logUnavailableOnce()
		return topicFallback(in, fallbackConfidence, "simple keyword matching (semantic capability unavailable)")
	}
	slog.Debug("relevance: topic assessment failed", "error", err)
	return topicFallback(in, errorFallbackConfidence, "fallback matching (semantic error)")
}

func (e *Engine) logUnavailableOnce() {
	e.logUnavailable.Do(func() {
		slog.Warn("relevance: semantic capability unavailable, using deterministic matching")
	})
}

func posterFallback(query, from string, confidence float64, reason string) semantic.PosterAssessment {
	return semantic.PosterAssessment{
		IsMatch:    strings.Contains(strings.ToLower(from), strings.ToLower(query)),
		Confidence: confidence,
		Reason:     reason,
	}
}

// topicFallback tokenizes the query and counts token containment in the
// searched text. Relevance is matches/totalTokens clamped to [0,1]; a
// message matches when relevance exceeds 0.3.
func topicFallback(in semantic.TopicInput, confidence float64, notes string) semantic.TopicAssessment {
	tokens := strings.Fields(strings.ToLower(in.Query))
	text := strings.ToLower(in.Subject)
	scope := "subject"
	if in.UseBody && in.Body != "" {
		text += " " + strings.ToLower(in.Body)
		scope = "subject+body"
	}
	matches := 0
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			matches++
		}
	}
	relevance := 0.0
	if len(tokens) > 0 {
		relevance = float64(matches) / float64(len(tokens))
		if relevance > 1 {
			relevance = 1
		}
	}
	return semantic.TopicAssessment{
		Relevance:     relevance,
		IsMatch:       relevance > topicMatchThreshold,
		Confidence:    confidence,
		KeyIndicators: fmt.Sprintf("%d/%d keyword matches in %s", matches, len(tokens), scope),
		ContextNotes:  notes,
	}
}
