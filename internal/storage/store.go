// Package storage provides the file-backed article archive for SAGA.
//
// Articles live as one JSON file per article under {root}/{YYYY-MM-DD}/{id}.json.
// The filesystem is the source of truth; the in-memory indexes (known IDs,
// URL -> ID, ID -> partition) are a derived cache built by a full scan at
// construction and updated on every successful store.
package storage

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/argoslabs/saga/internal/models"
	"github.com/rs/zerolog/log"
)

// Caller contract violations and misses.
var (
	ErrMissingID  = errors.New("article must have argos_id")
	ErrMissingURL = errors.New("article must have url")
	ErrNotFound   = errors.New("article not found")
)

const (
	idLength      = 9
	idCharset     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxIDAttempts = 100
)

// Store is the article archive. All operations are safe for concurrent use;
// GenerateID reserves candidates so a generate-then-store sequence from two
// goroutines cannot hand out the same ID.
type Store struct {
	root     string
	todayStr string

	mu         sync.RWMutex
	ids        map[string]struct{}
	urls       map[string]string // URL -> first-seen article ID
	partitions map[string]string // article ID -> date directory
	pending    map[string]struct{}

	skipped atomic.Int64 // unreadable files seen during scans
}

// NewStore opens the archive at root, creating today's partition if needed,
// and builds the in-memory indexes with a full scan.
func NewStore(root string) (*Store, error) {
	s := &Store{
		root:     root,
		todayStr: time.Now().Format("2006-01-02"),
		pending:  make(map[string]struct{}),
	}

	if err := os.MkdirAll(filepath.Join(root, s.todayStr), 0o755); err != nil {
		return nil, err
	}

	start := time.Now()
	ids, urls, partitions := s.scanArchive()
	s.ids = ids
	s.urls = urls
	s.partitions = partitions

	log.Info().
		Str("root", root).
		Int("articles", len(ids)).
		Int("urls", len(urls)).
		Int64("skipped", s.skipped.Load()).
		Dur("elapsed", time.Since(start)).
		Msg("Article archive indexed")

	return s, nil
}

// scanArchive walks every partition once, recording IDs and URL mappings.
// Partitions are visited oldest-first so the URL index keeps the earliest
// stored article for each URL.
func (s *Store) scanArchive() (map[string]struct{}, map[string]string, map[string]string) {
	ids := make(map[string]struct{})
	urls := make(map[string]string)
	partitions := make(map[string]string)

	for _, partition := range s.partitionDirs(false) {
		dir := filepath.Join(s.root, partition)
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("Skipping unreadable partition")
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".json") {
				continue
			}
			id := strings.TrimSuffix(name, ".json")
			ids[id] = struct{}{}
			partitions[id] = partition

			article, err := s.readArticle(filepath.Join(dir, name))
			if err != nil {
				s.skipped.Add(1)
				log.Warn().Err(err).Str("file", name).Str("partition", partition).
					Msg("Skipping unreadable article file")
				continue
			}
			if article.URL != "" {
				if _, seen := urls[article.URL]; !seen {
					urls[article.URL] = id
				}
			}
		}
	}

	return ids, urls, partitions
}

// Rebuild discards the in-memory indexes and rescans the archive. Intended
// for operational use after manual edits to the tree. Pending ID
// reservations survive the rebuild.
func (s *Store) Rebuild() {
	ids, urls, partitions := s.scanArchive()

	s.mu.Lock()
	s.ids = ids
	s.urls = urls
	s.partitions = partitions
	s.mu.Unlock()

	log.Info().Int("articles", len(ids)).Msg("Article archive reindexed")
}

// ============================================================================
// STORE / GET / EXISTS
// ============================================================================

// Store writes a new article to its date partition and returns its ID.
// Storing an already-known ID is an idempotent no-op that leaves the disk
// untouched. The article must carry both an ID and a URL.
func (s *Store) Store(article *models.Article) (string, error) {
	if article.ArgosID == "" {
		return "", ErrMissingID
	}
	if article.URL == "" {
		return "", ErrMissingURL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := article.ArgosID
	if _, ok := s.ids[id]; ok {
		return id, nil
	}

	partition := article.Partition(s.todayStr)
	dir := filepath.Join(s.root, partition)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(article, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, id+".json"), data, 0o644); err != nil {
		return "", err
	}

	s.ids[id] = struct{}{}
	s.partitions[id] = partition
	delete(s.pending, id)
	if _, seen := s.urls[article.URL]; !seen {
		s.urls[article.URL] = id
	}

	log.Debug().Str("argos_id", id).Str("partition", partition).Msg("Article stored")
	return id, nil
}

// Get loads an article by ID. The partition index makes the common case one
// file read; files created behind the store's back are found by a directory
// scan and backfilled into the indexes. Returns ErrNotFound on a miss.
func (s *Store) Get(id string) (*models.Article, error) {
	s.mu.RLock()
	partition, ok := s.partitions[id]
	s.mu.RUnlock()

	if ok {
		article, err := s.readArticle(filepath.Join(s.root, partition, id+".json"))
		if err == nil {
			return article, nil
		}
		// Stale index entry, fall through to the scan.
	}

	for _, partition := range s.partitionDirs(true) {
		path := filepath.Join(s.root, partition, id+".json")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		article, err := s.readArticle(path)
		if err != nil {
			s.skipped.Add(1)
			log.Warn().Err(err).Str("argos_id", id).Msg("Skipping unreadable article file")
			continue
		}
		s.backfill(id, partition)
		return article, nil
	}

	return nil, ErrNotFound
}

// Exists reports whether an article ID is known. A miss in the index falls
// back to a filesystem check and repairs the index when the file turns up.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	_, ok := s.ids[id]
	s.mu.RUnlock()
	if ok {
		return true
	}

	for _, partition := range s.partitionDirs(true) {
		if _, err := os.Stat(filepath.Join(s.root, partition, id+".json")); err == nil {
			s.backfill(id, partition)
			return true
		}
	}
	return false
}

// FindByURL returns the ID of the first article stored for a URL. This is
// the primary deduplication entrypoint.
func (s *Store) FindByURL(url string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.urls[url]
	return id, ok
}

// backfill repairs the indexes for a file discovered outside the normal
// store path.
func (s *Store) backfill(id, partition string) {
	s.mu.Lock()
	s.ids[id] = struct{}{}
	s.partitions[id] = partition
	s.mu.Unlock()
}

// ============================================================================
// ID GENERATION
// ============================================================================

// GenerateID returns a fresh 9-character uppercase-alphanumeric ID that no
// stored article uses. The candidate is reserved until the caller stores it,
// so concurrent callers never receive the same ID. After 100 collisions the
// generator falls back to a clock-derived ID.
func (s *Store) GenerateID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < maxIDAttempts; i++ {
		id := randomID()
		if !s.taken(id) {
			s.pending[id] = struct{}{}
			return id
		}
	}

	id := fallbackID()
	s.pending[id] = struct{}{}
	log.Warn().Str("argos_id", id).Msg("ID generation exhausted retries, using time-derived ID")
	return id
}

func (s *Store) taken(id string) bool {
	if _, ok := s.ids[id]; ok {
		return true
	}
	_, ok := s.pending[id]
	return ok
}

func randomID() string {
	b := make([]byte, idLength)
	for i := range b {
		b[i] = idCharset[rand.IntN(len(idCharset))]
	}
	return string(b)
}

// fallbackID derives an ID from the current clock. Base-36 of UnixNano keeps
// the uppercase-alphanumeric format.
func fallbackID() string {
	id := strings.ToUpper(strconv.FormatInt(time.Now().UnixNano(), 36))
	if len(id) > idLength {
		id = id[len(id)-idLength:]
	}
	for len(id) < idLength {
		id = "0" + id
	}
	return id
}

// ============================================================================
// LISTING
// ============================================================================

// List returns up to limit articles, newest partition first and most
// recently modified first within a partition. A date restricts the listing
// to that partition. Unreadable files are skipped.
func (s *Store) List(limit int, date string) []*models.Article {
	if limit <= 0 {
		return nil
	}

	var partitions []string
	if date != "" {
		if _, err := os.Stat(filepath.Join(s.root, date)); err == nil {
			partitions = []string{date}
		}
	} else {
		partitions = s.partitionDirs(true)
	}

	var articles []*models.Article
	for _, partition := range partitions {
		for _, path := range s.partitionFilesByMtime(partition) {
			if len(articles) >= limit {
				return articles
			}
			article, err := s.readArticle(path)
			if err != nil {
				s.skipped.Add(1)
				log.Warn().Err(err).Str("file", path).Msg("Skipping unreadable article file")
				continue
			}
			articles = append(articles, article)
		}
	}
	return articles
}

// ============================================================================
// STATS
// ============================================================================

// Stats holds archive counters.
type Stats struct {
	Root         string `json:"root"`
	Articles     int    `json:"articles"`
	Partitions   int    `json:"partitions"`
	IndexedURLs  int    `json:"indexed_urls"`
	SkippedFiles int64  `json:"skipped_files"`
}

// GetStats returns archive counters.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.partitions))
	for _, p := range s.partitions {
		seen[p] = struct{}{}
	}

	return Stats{
		Root:         s.root,
		Articles:     len(s.ids),
		Partitions:   len(seen),
		IndexedURLs:  len(s.urls),
		SkippedFiles: s.skipped.Load(),
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Store) readArticle(path string) (*models.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var article models.Article
	if err := json.Unmarshal(data, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

// partitionDirs lists the date directories under root, sorted by name.
// Date-formatted names sort chronologically.
func (s *Store) partitionDirs(newestFirst bool) []string {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}

	if newestFirst {
		sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	} else {
		sort.Strings(dirs)
	}
	return dirs
}

// partitionFilesByMtime returns the JSON file paths in a partition, most
// recently modified first.
func (s *Store) partitionFilesByMtime(partition string) []string {
	dir := filepath.Join(s.root, partition)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	type fileInfo struct {
		path  string
		mtime time.Time
	}
	var files []fileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{filepath.Join(dir, entry.Name()), info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].mtime.After(files[j].mtime)
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths
}
