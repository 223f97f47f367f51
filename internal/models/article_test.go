package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleUnmarshalFlat(t *testing.T) {
	raw := `{
		"argos_id": "ABC123XYZ",
		"url": "https://news.example.com/fed",
		"title": "Fed holds rates",
		"summary": "The Fed held rates steady.",
		"pubDate": "2024-03-15T10:00:00Z",
		"sentiment": "neutral",
		"score": 0.8
	}`

	var a Article
	require.NoError(t, json.Unmarshal([]byte(raw), &a))

	assert.Equal(t, "ABC123XYZ", a.ArgosID)
	assert.Equal(t, "https://news.example.com/fed", a.URL)
	assert.Equal(t, "Fed holds rates", a.Title)
	assert.Equal(t, "The Fed held rates steady.", a.Summary)
	assert.Equal(t, "2024-03-15T10:00:00Z", a.PubDate)
	assert.Equal(t, "neutral", a.Extra["sentiment"])
	assert.Equal(t, 0.8, a.Extra["score"])
}

func TestArticleUnmarshalDoubleWrapped(t *testing.T) {
	raw := `{"data": {"data": {"argos_id": "X12345678", "url": "http://x/1", "title": "Wrapped"}}}`

	var a Article
	require.NoError(t, json.Unmarshal([]byte(raw), &a))

	assert.Equal(t, "X12345678", a.ArgosID)
	assert.Equal(t, "http://x/1", a.URL)
	assert.Equal(t, "Wrapped", a.Title)
	assert.Nil(t, a.Extra)
}

func TestArticleUnmarshalIngestWrapper(t *testing.T) {
	// Ingest payload shape: outer ID, article under "data". The outer ID
	// survives because the inner object does not carry one.
	raw := `{"argos_id": "OUTER1234", "data": {"url": "http://x/2", "title": "Inner"}}`

	var a Article
	require.NoError(t, json.Unmarshal([]byte(raw), &a))

	assert.Equal(t, "OUTER1234", a.ArgosID)
	assert.Equal(t, "http://x/2", a.URL)
	assert.Equal(t, "Inner", a.Title)
}

func TestArticleMarshalIsFlat(t *testing.T) {
	a := Article{
		ArgosID: "FLAT00001",
		URL:     "http://x/3",
		Title:   "Flat on disk",
		Extra:   map[string]any{"language": "en"},
	}

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "FLAT00001", out["argos_id"])
	assert.Equal(t, "http://x/3", out["url"])
	assert.Equal(t, "en", out["language"])
	assert.NotContains(t, out, "data")
	assert.NotContains(t, out, "summary")
}

func TestArticleRoundTripPreservesExtras(t *testing.T) {
	raw := `{"argos_id": "RT1234567", "url": "http://x/4", "tags": ["fed", "rates"], "nested": {"a": 1}}`

	var a Article
	require.NoError(t, json.Unmarshal([]byte(raw), &a))

	data, err := json.Marshal(&a)
	require.NoError(t, err)

	var b Article
	require.NoError(t, json.Unmarshal(data, &b))

	assert.Equal(t, a.ArgosID, b.ArgosID)
	assert.Equal(t, a.Extra["tags"], b.Extra["tags"])
	assert.Equal(t, a.Extra["nested"], b.Extra["nested"])
}

func TestArticlePartition(t *testing.T) {
	tests := []struct {
		name     string
		article  Article
		expected string
	}{
		{"pubdate with time", Article{PubDate: "2024-03-15T10:00:00Z"}, "2024-03-15"},
		{"pubdate with space", Article{PubDate: "2024-03-15 10:00:00"}, "2024-03-15"},
		{"date only", Article{PubDate: "2025-11-04"}, "2025-11-04"},
		{"published_date fallback", Article{PublishedDate: "2023-01-02T08:00:00Z"}, "2023-01-02"},
		{"pubdate wins", Article{PubDate: "2024-01-01", PublishedDate: "2023-01-01"}, "2024-01-01"},
		{"unparseable", Article{PubDate: "last tuesday"}, "2026-08-31"},
		{"missing", Article{}, "2026-08-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.article.Partition("2026-08-31"))
		})
	}
}

func TestArticleSearchText(t *testing.T) {
	a := Article{
		Title:          "AI Regulation Advances",
		Summary:        "Lawmakers moved forward.",
		Description:    "A longer description.",
		ContentSummary: "Extended analysis here.",
	}

	text := a.SearchText()
	assert.Equal(t, "ai regulation advances\nlawmakers moved forward.\na longer description.\nextended analysis here.", text)
}
