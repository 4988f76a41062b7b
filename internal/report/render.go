// Package report renders community summaries as Markdown documents with
// YAML frontmatter.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"usenet-scout/internal/model"
)

type Announcement struct {
	Subject    string
	From       string
	Group      string
	Importance float64
	Summary    string
}

type Data struct {
	Title         string
	Slug          string
	Datetime      string
	Summary       string
	Overview      string
	Highlights    string
	Trending      string
	Pulse         string
	Announcements []Announcement
	TotalMessages int
	TypeCounts    []TypeCount
}

type TypeCount struct {
	Type  string
	Count int
}

//go:embed report.tmpl
var reportTpl string

var compiled = template.Must(template.New("report").Parse(reportTpl))

type frontmatter struct {
	Title    string `yaml:"title"`
	Slug     string `yaml:"slug"`
	Datetime string `yaml:"datetime"`
	Summary  string `yaml:"summary"`
}

// Render produces the full Markdown document: YAML frontmatter between
// "---" fences followed by the templated body.
func Render(d Data) (string, error) {
	fm, err := yaml.Marshal(frontmatter{
		Title:    d.Title,
		Slug:     d.Slug,
		Datetime: d.Datetime,
		Summary:  d.Summary,
	})
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	if err := compiled.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// Build assembles template data from an analyzed summary. The slug is the
// community name lowercased and dash-joined with the date.
func Build(summary model.CommunitySummary, announcements []model.ClassifiedMessage, stats model.DiscussionStats, community string, now time.Time) Data {
	d := Data{
		Title:         summary.Title,
		Slug:          slugFor(community, now),
		Datetime:      now.UTC().Format("2006-01-02 15:04"),
		Summary:       summary.Overview,
		Overview:      summary.Overview,
		Highlights:    summary.Highlights,
		Trending:      summary.TrendingSection,
		Pulse:         summary.CommunityPulse,
		TotalMessages: stats.TotalMessages,
	}
	for _, a := range announcements {
		d.Announcements = append(d.Announcements, Announcement{
			Subject:    a.Subject,
			From:       a.From,
			Group:      a.Group,
			Importance: a.Classification.Importance,
			Summary:    a.Classification.Summary,
		})
	}
	for _, mt := range []model.MessageType{
		model.TypeAnnouncement,
		model.TypeQuestion,
		model.TypeDiscussion,
		model.TypeTechnical,
		model.TypeCommercial,
		model.TypeSocial,
	} {
		if n := stats.ByType[mt]; n > 0 {
			d.TypeCounts = append(d.TypeCounts, TypeCount{Type: string(mt), Count: n})
		}
	}
	return d
}

func slugFor(community string, now time.Time) string {
	s := strings.ToLower(community)
	s = strings.ReplaceAll(s, " ", "-")
	return fmt.Sprintf("%s-%s", s, now.UTC().Format("20060102"))
}
