// Package models defines the data types shared across SAGA.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Article represents one archived news item. Known fields are typed;
// everything else the source provided is preserved verbatim in Extra so
// records round-trip through the archive without loss.
//
// The struct is deliberately flat: legacy records were sometimes written
// double-wrapped ({"data": {"data": {...}}}), and UnmarshalJSON strips any
// number of those wrappers on read, while MarshalJSON always emits the flat
// object, so new wrapped records cannot be created.
type Article struct {
	// Identifiers
	ArgosID string
	URL     string

	// Content
	Title          string
	Summary        string
	Description    string
	ContentSummary string
	Content        string

	// Source metadata
	Source        string
	PubDate       string
	PublishedDate string

	// Extra holds every field not mapped above.
	Extra map[string]any
}

// typed keys lifted out of the raw object; everything else goes to Extra.
var articleFields = []string{
	"argos_id", "url", "title", "summary", "description",
	"content_summary", "content", "source", "pubDate", "published_date",
}

// UnmarshalJSON decodes a raw article object, flattening legacy
// {"data": {...}} wrappers first.
func (a *Article) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	raw = unwrap(raw)

	a.ArgosID = takeString(raw, "argos_id")
	a.URL = takeString(raw, "url")
	a.Title = takeString(raw, "title")
	a.Summary = takeString(raw, "summary")
	a.Description = takeString(raw, "description")
	a.ContentSummary = takeString(raw, "content_summary")
	a.Content = takeString(raw, "content")
	a.Source = takeString(raw, "source")
	a.PubDate = takeString(raw, "pubDate")
	a.PublishedDate = takeString(raw, "published_date")

	if len(raw) > 0 {
		a.Extra = raw
	} else {
		a.Extra = nil
	}
	return nil
}

// MarshalJSON emits the flat article object.
func (a Article) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Extra)+len(articleFields))
	for k, v := range a.Extra {
		out[k] = v
	}

	out["argos_id"] = a.ArgosID
	setIfPresent(out, "url", a.URL)
	setIfPresent(out, "title", a.Title)
	setIfPresent(out, "summary", a.Summary)
	setIfPresent(out, "description", a.Description)
	setIfPresent(out, "content_summary", a.ContentSummary)
	setIfPresent(out, "content", a.Content)
	setIfPresent(out, "source", a.Source)
	setIfPresent(out, "pubDate", a.PubDate)
	setIfPresent(out, "published_date", a.PublishedDate)

	return json.Marshal(out)
}

// Partition returns the YYYY-MM-DD directory key for this article, derived
// from its publication date. Articles with no parseable date fall back to
// the given default (the store's construction-time date).
func (a *Article) Partition(fallback string) string {
	for _, raw := range []string{a.PubDate, a.PublishedDate} {
		if raw == "" {
			continue
		}
		// "2024-03-15T10:00:00Z" or "2024-03-15 10:00:00" -> "2024-03-15"
		date := raw
		if i := strings.IndexAny(date, "T "); i >= 0 {
			date = date[:i]
		}
		if _, err := time.Parse("2006-01-02", date); err == nil {
			return date
		}
	}
	return fallback
}

// SearchText returns the lowercased text blob keyword search runs against:
// title, summary, description, then the long-form secondary summary.
func (a *Article) SearchText() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Title, a.Summary, a.Description, a.ContentSummary} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}

// unwrap flattens nested {"data": {...}} wrappers. Fields on an outer level
// are kept unless the inner object overrides them, so a wrapped ingest
// payload ({"argos_id": ..., "data": {...}}) keeps its outer ID.
func unwrap(raw map[string]any) map[string]any {
	for {
		inner, ok := raw["data"].(map[string]any)
		if !ok {
			return raw
		}
		merged := make(map[string]any, len(inner)+len(raw))
		for k, v := range raw {
			if k != "data" {
				merged[k] = v
			}
		}
		for k, v := range inner {
			merged[k] = v
		}
		raw = merged
	}
}

func takeString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		delete(m, key)
		return v
	}
	return ""
}

func setIfPresent(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
