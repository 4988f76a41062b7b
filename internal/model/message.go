package model

import "time"

// PostingStatus mirrors the posting flag a server reports per group.
type PostingStatus string

const (
	PostingAllowed    PostingStatus = "y"
	PostingModerated  PostingStatus = "m"
	PostingDisallowed PostingStatus = "n"
)

// ParsePostingStatus maps a LIST flag field to a PostingStatus.
// Unknown flags are treated as posting-disallowed.
func ParsePostingStatus(flag string) PostingStatus {
	switch flag {
	case "y", "Y":
		return PostingAllowed
	case "m", "M":
		return PostingModerated
	default:
		return PostingDisallowed
	}
}

// GroupRecord describes one newsgroup as reported by the server LIST command.
// Records are immutable once fetched.
type GroupRecord struct {
	Name         string        `json:"name"`
	LastArticle  int           `json:"last_article"`
	FirstArticle int           `json:"first_article"`
	Posting      PostingStatus `json:"posting"`
}

// EstimatedCount derives the approximate article count from the reported
// watermark range.
func (g GroupRecord) EstimatedCount() int {
	if g.LastArticle < g.FirstArticle {
		return 0
	}
	return g.LastArticle - g.FirstArticle + 1
}

// Snapshot is the full point-in-time set of known groups.
// Snapshots are replaced wholesale on refresh, never merged field-by-field.
type Snapshot struct {
	CapturedAt time.Time     `json:"captured_at"`
	Groups     []GroupRecord `json:"groups"`
}

// MessageHeader is the metadata of one message in one group.
// Identity is (Group, ArticleNumber); cross-posted messages appear once per
// group of origin and are not deduplicated.
type MessageHeader struct {
	Group         string     `json:"group"`
	ArticleNumber int        `json:"article_number"`
	Subject       string     `json:"subject"`
	From          string     `json:"from"`
	DateRaw       string     `json:"date_raw"`
	Date          *time.Time `json:"date,omitempty"` // UTC; nil when the raw date did not parse
	MessageID     string     `json:"message_id"`
	References    string     `json:"references"`
	Body          string     `json:"body,omitempty"` // populated lazily, empty until fetched

	// Annotations attached after a completed scoring attempt, never speculatively.
	Poster *PosterMatch `json:"poster_match,omitempty"`
	Topic  *TopicMatch  `json:"topic_match,omitempty"`
}

// SortDate returns the date used for ordering. Messages without a parsed
// date sort as if oldest.
func (m MessageHeader) SortDate() time.Time {
	if m.Date == nil {
		return time.Time{}
	}
	return *m.Date
}

// PosterMatch records the outcome of a poster-filter scoring attempt.
type PosterMatch struct {
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// TopicMatch records the outcome of a topic-filter scoring attempt.
type TopicMatch struct {
	Relevance     float64 `json:"relevance"`
	Confidence    float64 `json:"confidence"`
	KeyIndicators string  `json:"key_indicators"`
	ContextNotes  string  `json:"context_notes"`
	UsedBody      bool    `json:"used_body"`
}

// MessageType categorizes a message for community analysis.
type MessageType string

const (
	TypeAnnouncement MessageType = "announcement"
	TypeQuestion     MessageType = "question"
	TypeDiscussion   MessageType = "discussion"
	TypeTechnical    MessageType = "technical"
	TypeCommercial   MessageType = "commercial"
	TypeSocial       MessageType = "social"
)

// NormalizeMessageType folds an arbitrary type string onto the known set,
// defaulting to discussion.
func NormalizeMessageType(s string) MessageType {
	switch MessageType(s) {
	case TypeAnnouncement, TypeQuestion, TypeDiscussion, TypeTechnical, TypeCommercial, TypeSocial:
		return MessageType(s)
	default:
		return TypeDiscussion
	}
}

// Classification is attached to a message by the community analyzer.
type Classification struct {
	Type           MessageType `json:"type"`
	Importance     float64     `json:"importance"` // 0..1
	IsAnnouncement bool        `json:"is_announcement"`
	KeyTopics      []string    `json:"key_topics"`
	Summary        string      `json:"summary"`
}

// ClassifiedMessage pairs a header with its classification.
type ClassifiedMessage struct {
	MessageHeader
	Classification Classification `json:"classification"`
}

// TrendSummary is the aggregate trend analysis over a time window.
type TrendSummary struct {
	TrendingTopics       string `json:"trending_topics"`
	EmergingThemes       string `json:"emerging_themes"`
	DiscussionTypes      string `json:"discussion_types"`
	NotableAnnouncements string `json:"notable_announcements"`
}

// CommunitySummary is the narrative summary generated from a TrendSummary.
type CommunitySummary struct {
	Title                string `json:"title"`
	Overview             string `json:"overview"`
	Highlights           string `json:"highlights"`
	TrendingSection      string `json:"trending_section"`
	AnnouncementsSection string `json:"announcements_section"`
	CommunityPulse       string `json:"community_pulse"`
}

// DiscussionStats counts classified messages by type and by group.
type DiscussionStats struct {
	TotalMessages int                 `json:"total_messages"`
	ByType        map[MessageType]int `json:"by_type"`
	ByGroup       map[string]int      `json:"by_group"`
}
