// Package source adapts the wire-level NNTP client into the retrieval
// operations the rest of the system consumes: group listings, header
// windows and message bodies.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"usenet-scout/internal/model"
	"usenet-scout/internal/nntp"
)

// LineStream is a lazily-consumed line sequence. Callers must drain it or
// Close it to leave the underlying transport in a valid state.
type LineStream interface {
	Next() bool
	Line() string
	Err() error
	Close() error
}

// Conn is the subset of the NNTP connection the fetcher uses.
type Conn interface {
	Group(name string) (count, first, last int, err error)
	List() (LineStream, error)
	Over(first, last int) ([]nntp.Overview, error)
	Body(article int) ([]string, error)
	Quit() error
}

// DialFunc produces a fresh connection. Each fetcher operation scopes one
// connection acquisition with guaranteed release on all exit paths.
type DialFunc func(ctx context.Context) (Conn, error)

// nntpConn adapts *nntp.Conn to the Conn interface.
type nntpConn struct {
	*nntp.Conn
}

func (c nntpConn) List() (LineStream, error) {
	return c.Conn.List()
}

// Fetcher retrieves listings, headers and bodies from a single source.
type Fetcher struct {
	dial DialFunc
}

// New builds a fetcher that dials the configured server per operation.
func New(cfg nntp.Config) *Fetcher {
	return &Fetcher{dial: func(ctx context.Context) (Conn, error) {
		conn, err := nntp.Dial(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return nntpConn{conn}, nil
	}}
}

// NewWithDialer builds a fetcher around a custom dialer.
func NewWithDialer(dial DialFunc) *Fetcher {
	return &Fetcher{dial: dial}
}

// ListGroups streams the server LIST and returns up to limit records whose
// name contains pattern (case-insensitive; empty pattern matches all).
// When limit stops consumption early the remaining listing is drained.
func (f *Fetcher) ListGroups(ctx context.Context, pattern string, limit int) ([]model.GroupRecord, error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	listing, err := conn.List()
	if err != nil {
		return nil, err
	}
	defer listing.Close()

	pat := strings.ToLower(pattern)
	var groups []model.GroupRecord
	for listing.Next() {
		if limit > 0 && len(groups) >= limit {
			break
		}
		rec, ok := parseListLine(listing.Line())
		if !ok {
			continue
		}
		if pat != "" && !strings.Contains(strings.ToLower(rec.Name), pat) {
			continue
		}
		groups = append(groups, rec)
	}
	if err := listing.Err(); err != nil {
		return nil, fmt.Errorf("source: read listing: %w", err)
	}
	return groups, nil
}

// ListAllGroups consumes the entire LIST response, logging progress every
// pageSize lines.
func (f *Fetcher) ListAllGroups(ctx context.Context, pattern string, pageSize int) ([]model.GroupRecord, error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	listing, err := conn.List()
	if err != nil {
		return nil, err
	}
	defer listing.Close()

	if pageSize <= 0 {
		pageSize = 1000
	}
	pat := strings.ToLower(pattern)
	var groups []model.GroupRecord
	processed := 0
	for listing.Next() {
		processed++
		rec, ok := parseListLine(listing.Line())
		if !ok {
			continue
		}
		if pat == "" || strings.Contains(strings.ToLower(rec.Name), pat) {
			groups = append(groups, rec)
		}
		if processed%pageSize == 0 {
			slog.Info("source: loading newsgroups", "processed", processed, "matched", len(groups))
		}
	}
	if err := listing.Err(); err != nil {
		return nil, fmt.Errorf("source: read listing: %w", err)
	}
	slog.Info("source: newsgroup listing complete", "processed", processed, "matched", len(groups))
	return groups, nil
}

// FetchHeaders retrieves up to maxCount header records for a group,
// windowed to the newest articles. Dates are normalized to UTC; a date that
// fails to parse leaves Date nil rather than failing the fetch. When
// sinceDays > 0, messages with a parsed date older than the cutoff are
// dropped; messages without a parsed date are never dropped by the cutoff.
// The result is sorted newest-first, unparsable dates last.
func (f *Fetcher) FetchHeaders(ctx context.Context, group string, maxCount, sinceDays int) ([]model.MessageHeader, error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	_, first, last, err := conn.Group(group)
	if err != nil {
		return nil, err
	}

	start := first
	if maxCount > 0 && last-maxCount+1 > start {
		start = last - maxCount + 1
	}
	if start > last {
		return nil, nil
	}

	overviews, err := conn.Over(start, last)
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if sinceDays > 0 {
		cutoff = time.Now().UTC().AddDate(0, 0, -sinceDays)
	}

	msgs := make([]model.MessageHeader, 0, len(overviews))
	for _, ov := range overviews {
		date := ParseDate(ov.Date)
		if !cutoff.IsZero() && date != nil && date.Before(cutoff) {
			continue
		}
		msgs = append(msgs, model.MessageHeader{
			Group:         group,
			ArticleNumber: ov.Article,
			Subject:       ov.Subject,
			From:          ov.From,
			DateRaw:       ov.Date,
			Date:          date,
			MessageID:     ov.MessageID,
			References:    ov.References,
		})
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SortDate().After(msgs[j].SortDate())
	})
	return msgs, nil
}

// FetchBody retrieves one article body. Best-effort: any failure yields
// ok=false rather than an error.
func (f *Fetcher) FetchBody(ctx context.Context, group string, article int) (string, bool) {
	conn, err := f.dial(ctx)
	if err != nil {
		return "", false
	}
	defer conn.Quit()

	if _, _, _, err := conn.Group(group); err != nil {
		return "", false
	}
	lines, err := conn.Body(article)
	if err != nil {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

// FetchBodies populates bodies for up to maxBodies of the given headers on
// a single connection. A failed body fetch keeps the header without a body;
// a failed group selection returns the input unchanged.
func (f *Fetcher) FetchBodies(ctx context.Context, group string, msgs []model.MessageHeader, maxBodies int) []model.MessageHeader {
	if len(msgs) == 0 || maxBodies <= 0 {
		return msgs
	}
	conn, err := f.dial(ctx)
	if err != nil {
		return msgs
	}
	defer conn.Quit()

	if _, _, _, err := conn.Group(group); err != nil {
		return msgs
	}

	out := make([]model.MessageHeader, len(msgs))
	copy(out, msgs)
	for i := range out {
		if i >= maxBodies {
			break
		}
		lines, err := conn.Body(out[i].ArticleNumber)
		if err != nil {
			slog.Debug("source: body fetch failed", "group", group, "article", out[i].ArticleNumber, "error", err)
			continue
		}
		out[i].Body = strings.Join(lines, "\n")
	}
	return out
}

// parseListLine parses one "name last first flag" LIST entry.
func parseListLine(line string) (model.GroupRecord, bool) {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		return model.GroupRecord{}, false
	}
	last, err1 := strconv.Atoi(parts[1])
	first, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		return model.GroupRecord{}, false
	}
	return model.GroupRecord{
		Name:         parts[0],
		LastArticle:  last,
		FirstArticle: first,
		Posting:      model.ParsePostingStatus(parts[3]),
	}, true
}
