// Package main provides a bulk uploader that pushes a local article archive
// tree through the gateway's ingest API, preserving filename-derived IDs and
// skipping articles the server already has.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const checkBatchSize = 500

type existenceResult struct {
	Checked  int      `json:"checked"`
	Existing int      `json:"existing"`
	Missing  []string `json:"missing"`
}

type ingestResult struct {
	ArgosID string `json:"argos_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason"`
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	dataDir := flag.String("data-dir", "data/raw_news", "local article archive root")
	backendURL := flag.String("backend-url", envOr("BACKEND_API_URL", "http://localhost:8080"), "gateway API URL")
	limit := flag.Int("limit", 0, "maximum number of articles to upload (0 = all)")
	flag.Parse()

	log.Info().Str("dir", *dataDir).Str("backend", *backendURL).Msg("Starting bulk article upload")

	paths := findArticleFiles(*dataDir)
	if len(paths) == 0 {
		log.Fatal().Str("dir", *dataDir).Msg("No articles found")
	}
	log.Info().Int("count", len(paths)).Msg("Found local articles")

	client := resty.New().
		SetBaseURL(*backendURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2)

	// Ask the server which IDs it is missing, in batches.
	ids := make([]string, len(paths))
	for i, p := range paths {
		ids[i] = articleID(p)
	}

	missing := checkMissing(client, ids)
	log.Info().
		Int("total", len(paths)).
		Int("existing", len(paths)-len(missing)).
		Int("missing", len(missing)).
		Msg("Existence check complete")

	var toUpload []string
	for _, p := range paths {
		if _, ok := missing[articleID(p)]; ok {
			toUpload = append(toUpload, p)
		}
	}
	if *limit > 0 && len(toUpload) > *limit {
		log.Warn().Int("limit", *limit).Msg("Limiting upload")
		toUpload = toUpload[:*limit]
	}

	if len(toUpload) == 0 {
		fmt.Println("All articles already uploaded, nothing to do.")
		return
	}

	created := 0
	existing := 0
	failed := 0
	start := time.Now()

	for i, path := range toUpload {
		status, err := uploadArticle(client, path)
		switch {
		case err != nil:
			failed++
			log.Error().Err(err).Str("file", filepath.Base(path)).Msg("Upload failed")
		case status == "created":
			created++
		default:
			existing++
		}

		if (i+1)%10 == 0 || i+1 == len(toUpload) {
			elapsed := time.Since(start).Seconds()
			log.Info().
				Int("progress", i+1).
				Int("total", len(toUpload)).
				Float64("per_sec", float64(i+1)/elapsed).
				Msg("Uploading")
		}
	}

	fmt.Printf("\nUpload complete!\n")
	fmt.Printf("   Created: %d articles\n", created)
	fmt.Printf("   Existing: %d articles\n", existing)
	fmt.Printf("   Failed: %d\n", failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// findArticleFiles collects every {date}/{id}.json path under the root.
func findArticleFiles(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, entry.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			paths = append(paths, filepath.Join(root, entry.Name(), f.Name()))
		}
	}
	sort.Strings(paths)
	return paths
}

func articleID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".json")
}

// checkMissing returns the set of IDs the server does not have. A failed
// batch falls back to treating the whole batch as missing; ingest-side
// dedup makes re-uploads harmless.
func checkMissing(client *resty.Client, ids []string) map[string]struct{} {
	missing := make(map[string]struct{})

	for start := 0; start < len(ids); start += checkBatchSize {
		end := start + checkBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(batch).
			Post("/api/articles/check-existence")

		if err != nil || resp.StatusCode() != 200 {
			log.Warn().Err(err).Int("from", start).Int("to", end).Msg("Batch check failed, uploading whole batch")
			for _, id := range batch {
				missing[id] = struct{}{}
			}
			continue
		}

		var result existenceResult
		if err := json.Unmarshal(resp.Body(), &result); err != nil {
			log.Warn().Err(err).Msg("Bad existence response, uploading whole batch")
			for _, id := range batch {
				missing[id] = struct{}{}
			}
			continue
		}
		for _, id := range result.Missing {
			missing[id] = struct{}{}
		}
	}

	return missing
}

// uploadArticle ingests one file, forcing its argos_id to the filename stem
// so IDs stay stable across systems.
func uploadArticle(client *resty.Client, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("unreadable article: %w", err)
	}
	payload["argos_id"] = articleID(path)

	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/api/articles/ingest")

	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("ingest returned %d: %s", resp.StatusCode(), resp.String())
	}

	var result ingestResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", err
	}

	if result.Status == "created" && result.ArgosID != articleID(path) {
		return "", fmt.Errorf("id mismatch: %s -> %s", articleID(path), result.ArgosID)
	}

	return result.Status, nil
}
