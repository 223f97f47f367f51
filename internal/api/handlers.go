package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/argoslabs/saga/internal/graph"
	"github.com/argoslabs/saga/internal/models"
	"github.com/argoslabs/saga/internal/storage"
)

// HandlerOptions holds tunables for the API handlers.
type HandlerOptions struct {
	// DefaultMinHits is the keyword-search threshold applied when a search
	// request omits min_hits.
	DefaultMinHits int
	// MaxLimit caps limit parameters on list and search requests.
	MaxLimit int
}

// Handlers holds the API handlers.
type Handlers struct {
	store *storage.Store
	graph *graph.Client
	opts  HandlerOptions
}

// NewHandlers creates new API handlers.
func NewHandlers(store *storage.Store, graphClient *graph.Client, opts HandlerOptions) *Handlers {
	if opts.DefaultMinHits <= 0 {
		opts.DefaultMinHits = storage.DefaultMinHits
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	return &Handlers{store: store, graph: graphClient, opts: opts}
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (h *Handlers) getLimit(r *http.Request, defaultLimit int) int {
	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= h.opts.MaxLimit {
			limit = parsed
		}
	}
	return limit
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ============================================================================
// ARTICLE HANDLERS
// ============================================================================

// IngestArticle stores an article, deduplicating by ID and URL. The response
// status is "created", "exists" (ID already ingested) or "duplicate" (URL
// already stored under another ID, which is returned).
func (h *Handlers) IngestArticle(w http.ResponseWriter, r *http.Request) {
	var article models.Article
	if err := json.NewDecoder(r.Body).Decode(&article); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid article payload")
		return
	}

	if article.URL == "" {
		respondError(w, http.StatusBadRequest, "Article must have url")
		return
	}

	if article.ArgosID != "" && h.store.Exists(article.ArgosID) {
		respondJSON(w, http.StatusOK, map[string]string{
			"argos_id": article.ArgosID,
			"status":   "exists",
			"reason":   "id already ingested",
		})
		return
	}

	if existingID, ok := h.store.FindByURL(article.URL); ok {
		respondJSON(w, http.StatusOK, map[string]string{
			"argos_id": existingID,
			"status":   "duplicate",
			"reason":   "url already stored",
		})
		return
	}

	if article.ArgosID == "" {
		article.ArgosID = h.store.GenerateID()
	}

	id, err := h.store.Store(&article)
	if err != nil {
		if errors.Is(err, storage.ErrMissingID) || errors.Is(err, storage.ErrMissingURL) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to store article")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"argos_id": id,
		"status":   "created",
		"reason":   "new article",
	})
}

// CheckExistence reports which of the posted article IDs are unknown.
func (h *Handlers) CheckExistence(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		respondError(w, http.StatusBadRequest, "Expected a JSON array of article IDs")
		return
	}

	missing := []string{}
	for _, id := range ids {
		if !h.store.Exists(id) {
			missing = append(missing, id)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"checked":  len(ids),
		"existing": len(ids) - len(missing),
		"missing":  missing,
	})
}

// GetArticle returns a single article by ID.
func (h *Handlers) GetArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "Article ID is required")
		return
	}

	article, err := h.store.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Article not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"argos_id": id,
		"data":     article,
	})
}

// ListArticles returns recent articles, optionally from one date partition.
func (h *Handlers) ListArticles(w http.ResponseWriter, r *http.Request) {
	limit := h.getLimit(r, 50)

	date := r.URL.Query().Get("date")
	if date != "" && !datePattern.MatchString(date) {
		respondError(w, http.StatusBadRequest, "Date must be YYYY-MM-DD")
		return
	}

	articles := h.store.List(limit, date)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"articles": articles,
		"count":    len(articles),
	})
}

// SearchRequest is the keyword-search request body.
type SearchRequest struct {
	Keywords   []string `json:"keywords"`
	Limit      int      `json:"limit"`
	MinHits    int      `json:"min_hits"`
	ExcludeIDs []string `json:"exclude_ids"`
}

// SearchArticles runs a keyword search over the archive.
func (h *Handlers) SearchArticles(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid search payload")
		return
	}

	if len(req.Keywords) == 0 {
		respondError(w, http.StatusBadRequest, "Keywords are required")
		return
	}
	if req.Limit <= 0 || req.Limit > h.opts.MaxLimit {
		req.Limit = 20
	}
	if req.MinHits <= 0 {
		req.MinHits = h.opts.DefaultMinHits
	}

	var exclude map[string]struct{}
	if len(req.ExcludeIDs) > 0 {
		exclude = make(map[string]struct{}, len(req.ExcludeIDs))
		for _, id := range req.ExcludeIDs {
			exclude[id] = struct{}{}
		}
	}

	matches := h.store.SearchByKeywords(req.Keywords, req.Limit, req.MinHits, exclude)
	if matches == nil {
		matches = []storage.Match{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})
}

// ============================================================================
// REPORT HANDLERS
// ============================================================================

// GetReport proxies a report fetch to the Graph API.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	if h.graph == nil {
		respondError(w, http.StatusServiceUnavailable, "Graph API not available")
		return
	}

	topicID := chi.URLParam(r, "topicID")
	report, err := h.graph.GetReport(r.Context(), topicID)
	if err != nil {
		respondError(w, http.StatusBadGateway, "Graph API error")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// ============================================================================
// STATS HANDLERS
// ============================================================================

// GetStats returns archive statistics.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.GetStats())
}

// HealthCheck returns service health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "saga",
	})
}
