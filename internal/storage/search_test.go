package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argoslabs/saga/internal/models"
)

func seedArticle(t *testing.T, s *Store, id, title, summary string) {
	t.Helper()
	_, err := s.Store(&models.Article{
		ArgosID: id,
		URL:     "http://x/" + id,
		Title:   title,
		Summary: summary,
		PubDate: "2024-01-15",
	})
	require.NoError(t, err)
}

func matchedIDs(matches []Match) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ArgosID
	}
	return ids
}

func TestSearchWordBoundaries(t *testing.T) {
	s, _ := newTestStore(t)

	seedArticle(t, s, "INSIDE001", "This text contains nothing he said", "")
	seedArticle(t, s, "PLAIN0001", "New AI regulation advances", "")
	seedArticle(t, s, "HYPHEN001", "The real-time AI pipeline", "")

	matches := s.SearchByKeywords([]string{"ai"}, 10, 1, nil)
	ids := matchedIDs(matches)

	// "ai" inside "contains"/"said" is not a match; standalone and
	// hyphen-adjacent occurrences are.
	assert.NotContains(t, ids, "INSIDE001")
	assert.Contains(t, ids, "PLAIN0001")
	assert.Contains(t, ids, "HYPHEN001")
}

func TestSearchSeparatorFlexibleKeywords(t *testing.T) {
	s, _ := newTestStore(t)

	seedArticle(t, s, "DOTTED001", "A.I. systems under review", "")
	seedArticle(t, s, "SOLID0001", "AI systems under review", "")
	seedArticle(t, s, "SPACED001", "machine learning budgets grow", "")
	seedArticle(t, s, "JOINED001", "machine-learning budgets grow", "")

	dotted := matchedIDs(s.SearchByKeywords([]string{"a.i"}, 10, 1, nil))
	assert.Contains(t, dotted, "DOTTED001")
	assert.Contains(t, dotted, "SOLID0001")

	ml := matchedIDs(s.SearchByKeywords([]string{"machine learning"}, 10, 1, nil))
	assert.Contains(t, ml, "SPACED001")
	assert.Contains(t, ml, "JOINED001")
}

func TestSearchShortKeywordNoSubstringMatch(t *testing.T) {
	s, _ := newTestStore(t)

	seedArticle(t, s, "RATE00001", "The rate decision nears", "")
	seedArticle(t, s, "RE0000001", "What does re mean here", "")

	ids := matchedIDs(s.SearchByKeywords([]string{"re"}, 10, 1, nil))
	assert.NotContains(t, ids, "RATE00001")
	assert.Contains(t, ids, "RE0000001")
}

func TestSearchMinHitsThreshold(t *testing.T) {
	s, _ := newTestStore(t)

	seedArticle(t, s, "ONEHIT001", "Fed meets this week", "")
	seedArticle(t, s, "TWOHIT001", "Fed weighs rate decision", "")
	seedArticle(t, s, "THREEH001", "Fed rate call amid inflation fears", "")

	matches := s.SearchByKeywords([]string{"fed", "rate", "inflation"}, 10, 2, nil)
	ids := matchedIDs(matches)

	assert.NotContains(t, ids, "ONEHIT001")
	assert.Contains(t, ids, "TWOHIT001")
	assert.Contains(t, ids, "THREEH001")

	for _, m := range matches {
		switch m.ArgosID {
		case "TWOHIT001":
			assert.Equal(t, 2, m.HitCount)
			assert.Equal(t, []string{"fed", "rate"}, m.MatchedKeywords)
		case "THREEH001":
			assert.Equal(t, 3, m.HitCount)
			assert.Equal(t, []string{"fed", "rate", "inflation"}, m.MatchedKeywords)
		}
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	s, _ := newTestStore(t)

	seedArticle(t, s, "CASE00001", "INFLATION Outlook", "")

	matches := s.SearchByKeywords([]string{"Inflation"}, 10, 1, nil)
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"Inflation"}, matches[0].MatchedKeywords)
}

func TestSearchExcludeIDs(t *testing.T) {
	s, _ := newTestStore(t)

	seedArticle(t, s, "KEEP00001", "Inflation data released", "")
	seedArticle(t, s, "DROP00001", "Inflation climbs again", "")

	exclude := map[string]struct{}{"DROP00001": {}}
	ids := matchedIDs(s.SearchByKeywords([]string{"inflation"}, 10, 1, exclude))

	assert.Contains(t, ids, "KEEP00001")
	assert.NotContains(t, ids, "DROP00001")
}

func TestSearchLimitStopsEarly(t *testing.T) {
	s, _ := newTestStore(t)

	seedArticle(t, s, "LIM000001", "Inflation report one", "")
	seedArticle(t, s, "LIM000002", "Inflation report two", "")
	seedArticle(t, s, "LIM000003", "Inflation report three", "")

	matches := s.SearchByKeywords([]string{"inflation"}, 2, 1, nil)
	assert.Len(t, matches, 2)
}

func TestSearchScansSummaryFields(t *testing.T) {
	s, _ := newTestStore(t)

	seedArticle(t, s, "SUM000001", "Quiet headline", "Central bank discusses inflation targets")

	matches := s.SearchByKeywords([]string{"inflation"}, 10, 1, nil)
	require.Len(t, matches, 1)
	assert.Equal(t, "SUM000001", matches[0].ArgosID)
}

func TestSearchNewestPartitionFirst(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Store(&models.Article{
		ArgosID: "OLDER0001", URL: "http://x/older",
		Title: "Inflation view", PubDate: "2024-01-01",
	})
	require.NoError(t, err)
	_, err = s.Store(&models.Article{
		ArgosID: "NEWER0001", URL: "http://x/newer",
		Title: "Inflation view", PubDate: "2024-02-01",
	})
	require.NoError(t, err)

	matches := s.SearchByKeywords([]string{"inflation"}, 10, 1, nil)
	require.Len(t, matches, 2)
	assert.Equal(t, "NEWER0001", matches[0].ArgosID)
	assert.Equal(t, "OLDER0001", matches[1].ArgosID)
}

func TestSearchIgnoresUnusableKeywords(t *testing.T) {
	s, _ := newTestStore(t)

	seedArticle(t, s, "OK0000001", "Inflation outlook", "")

	// Separator-only keywords contribute no tokens and are dropped.
	matches := s.SearchByKeywords([]string{"---", "inflation"}, 10, 1, nil)
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"inflation"}, matches[0].MatchedKeywords)
}

func TestKeywordPattern(t *testing.T) {
	tests := []struct {
		keyword string
		text    string
		match   bool
	}{
		{"ai", "ai regulation", true},
		{"ai", "real-time ai", true},
		{"ai", "said", false},
		{"ai", "contains", false},
		{"a.i", "a.i. systems", true},
		{"a.i", "ai systems", true},
		{"machine learning", "machine-learning", true},
		{"machine learning", "machine/learning", true},
		{"machine learning", "machinelearning", true},
		{"machine learning", "machine  learning", false},
		{"c3.ai", "c3.ai stock", true},
		{"re", "rate", false},
	}

	for _, tt := range tests {
		re, err := keywordPattern(tt.keyword)
		require.NoError(t, err, "keyword %q", tt.keyword)
		assert.Equal(t, tt.match, re.MatchString(tt.text),
			"keyword %q against %q", tt.keyword, tt.text)
	}
}
