package storage

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/argoslabs/saga/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultMinHits is the distinct-keyword threshold applied when a caller
// does not specify one.
const DefaultMinHits = 2

// Match is one keyword-search result.
type Match struct {
	ArgosID         string          `json:"argos_id"`
	MatchedKeywords []string        `json:"matched_keywords"`
	HitCount        int             `json:"hit_count"`
	Article         *models.Article `json:"article"`
}

// SearchByKeywords scans the archive newest-partition-first for articles
// whose title/summary text matches at least minHits of the given keywords,
// stopping once limit matches are collected. Results come back in scan
// order, not ranked. IDs in excludeIDs are skipped, as are unreadable files.
//
// Each keyword matches case-insensitively at word boundaries, with its
// tokens allowed to be joined by a hyphen, slash, dot, space, or nothing:
// "machine-learning" matches "machine learning" and "machinelearning", and
// "a.i" matches "AI" and "A.I.". A keyword never matches inside a longer
// alphanumeric run ("ai" does not match "said").
func (s *Store) SearchByKeywords(keywords []string, limit, minHits int, excludeIDs map[string]struct{}) []Match {
	if limit <= 0 || len(keywords) == 0 {
		return nil
	}
	if minHits < 1 {
		minHits = 1
	}

	type pattern struct {
		keyword string
		re      *regexp.Regexp
	}
	patterns := make([]pattern, 0, len(keywords))
	for _, kw := range keywords {
		re, err := keywordPattern(kw)
		if err != nil {
			log.Warn().Err(err).Str("keyword", kw).Msg("Skipping unusable search keyword")
			continue
		}
		patterns = append(patterns, pattern{kw, re})
	}
	if len(patterns) == 0 {
		return nil
	}

	start := time.Now()
	scanned := 0
	var matches []Match

	for _, partition := range s.partitionDirs(true) {
		for _, path := range s.partitionFiles(partition) {
			id := strings.TrimSuffix(filepath.Base(path), ".json")
			if _, skip := excludeIDs[id]; skip {
				continue
			}

			article, err := s.readArticle(path)
			if err != nil {
				s.skipped.Add(1)
				log.Warn().Err(err).Str("file", path).Msg("Skipping unreadable article file")
				continue
			}
			scanned++

			text := article.SearchText()
			var matched []string
			for _, p := range patterns {
				if p.re.MatchString(text) {
					matched = append(matched, p.keyword)
				}
			}
			if len(matched) < minHits {
				continue
			}

			matches = append(matches, Match{
				ArgosID:         id,
				MatchedKeywords: matched,
				HitCount:        len(matched),
				Article:         article,
			})
			if len(matches) >= limit {
				logSearch(keywords, scanned, len(matches), start)
				return matches
			}
		}
	}

	logSearch(keywords, scanned, len(matches), start)
	return matches
}

func logSearch(keywords []string, scanned, found int, start time.Time) {
	log.Debug().
		Strs("keywords", keywords).
		Int("scanned", scanned).
		Int("matches", found).
		Dur("elapsed", time.Since(start)).
		Msg("Keyword search complete")
}

var errEmptyKeyword = errors.New("keyword has no tokens")

// isKeywordSeparator reports the characters a keyword is tokenized on; a
// single one of them (or nothing) may appear between tokens in matching text.
func isKeywordSeparator(r rune) bool {
	switch r {
	case '-', '/', '.', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// keywordPattern compiles the separator-flexible, word-boundary-anchored
// pattern for one keyword.
func keywordPattern(keyword string) (*regexp.Regexp, error) {
	tokens := strings.FieldsFunc(strings.ToLower(keyword), isKeywordSeparator)
	if len(tokens) == 0 {
		return nil, errEmptyKeyword
	}

	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}

	return regexp.Compile(`\b` + strings.Join(quoted, `[-/. ]?`) + `\b`)
}

// partitionFiles returns the JSON file paths in a partition in name order.
func (s *Store) partitionFiles(partition string) []string {
	dir := filepath.Join(s.root, partition)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths
}
