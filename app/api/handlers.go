package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ademidov/newspulse/app/cfg"
	"github.com/ademidov/newspulse/app/database"
	"github.com/ademidov/newspulse/app/ingest"
	"github.com/ademidov/newspulse/app/vector"
)

const (
	defaultLatestLimit      = 50
	defaultRecommendedLimit = 20
	defaultHistoryLimit     = 50
	maxLimit                = 200
)

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"version":   cfg.Get().Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if count, err := h.items.Count(); err == nil {
		health["articles"] = count
	}

	health["scheduler_running"] = h.runner.IsRunning()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	total, err := h.items.Count()
	if err != nil {
		slog.Error("Database error", "operation", "count_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	bySource, err := h.items.CountBySource()
	if err != nil {
		slog.Error("Database error", "operation", "count_by_source", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	stats := gin.H{
		"total_articles": total,
		"by_source":      bySource,
	}

	if report := h.runner.LastReport(); report != nil {
		stats["last_run"] = report
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetLatestArticles(c *gin.Context) {
	limit := queryLimit(c, defaultLatestLimit)

	items, err := h.items.Query(database.ItemFilter{
		Keyword: c.Query("keyword"),
		Source:  c.Query("source"),
		Limit:   limit,
	})
	if err != nil {
		slog.Error("Database error", "operation", "query_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, itemView(item))
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": views,
		"total":    len(views),
	})
}

// GetRecommendedArticles ranks a candidate pool against the user's
// weighted preference vectors. Users without embedded preferences get
// the recency feed with zero scores, same shape either way.
func (h *Handler) GetRecommendedArticles(c *gin.Context) {
	username := c.Query("user")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user parameter"})
		return
	}
	limit := queryLimit(c, defaultRecommendedLimit)

	prefs := h.embeddedPreferences(username)

	if len(prefs) == 0 {
		items, err := h.items.Query(database.ItemFilter{Limit: limit})
		if err != nil {
			slog.Error("Database error", "operation", "query_items", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		views := make([]ScoredItemView, 0, len(items))
		for _, item := range items {
			views = append(views, ScoredItemView{ItemView: itemView(item), Score: 0.0})
		}
		c.JSON(http.StatusOK, gin.H{
			"articles":   views,
			"total":      len(views),
			"fallback":   true,
			"fused_from": 0,
		})
		return
	}

	// Over-fetch so relevant older items can outrank recent ones.
	candidates, err := h.items.Query(database.ItemFilter{
		ExcludeUnembedded: true,
		Limit:             h.ranker.CandidateLimit(limit),
	})
	if err != nil {
		slog.Error("Database error", "operation", "query_candidates", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	ranked := h.ranker.Rank(prefs, candidates, limit)

	views := make([]ScoredItemView, 0, len(ranked))
	for _, s := range ranked {
		views = append(views, scoredView(s))
	}

	c.JSON(http.StatusOK, gin.H{
		"articles":   views,
		"total":      len(views),
		"fallback":   false,
		"fused_from": len(prefs),
	})
}

// embeddedPreferences returns the user's preferences that carry a
// vector. Unknown users and lookup failures degrade to an empty list,
// which the caller treats as the recency fallback.
func (h *Handler) embeddedPreferences(username string) []database.Preference {
	userID, err := h.users.GetID(username)
	if err != nil {
		if !errors.Is(err, database.ErrUserNotFound) {
			slog.Error("Database error", "operation", "get_user", "user", username, "error", err)
		}
		return nil
	}

	prefs, err := h.users.ListPreferences(userID)
	if err != nil {
		slog.Error("Database error", "operation", "list_preferences", "user", username, "error", err)
		return nil
	}

	embedded := make([]database.Preference, 0, len(prefs))
	for _, p := range prefs {
		if p.Embedding != nil {
			embedded = append(embedded, p)
		}
	}
	return embedded
}

type readRequest struct {
	User      string `json:"user" binding:"required"`
	ArticleID string `json:"article_id" binding:"required"`
	Action    string `json:"action"`
}

func (h *Handler) MarkArticleRead(c *gin.Context) {
	var req readRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.Action == "" {
		req.Action = database.ActionRead
	}
	if !database.ValidAction(req.Action) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action", "message": "Action must be one of: clicked, read, dismissed"})
		return
	}

	userID, err := h.users.GetOrCreate(req.User)
	if err != nil {
		slog.Error("Database error", "operation", "get_or_create_user", "user", req.User, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if err := h.users.RecordInteraction(userID, req.ArticleID, req.Action); err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
			return
		}
		slog.Error("Database error", "operation", "record_interaction", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if req.Action == database.ActionRead {
		if err := h.items.MarkRead(req.ArticleID); err != nil {
			slog.Warn("Failed to mark article read", "article_id", req.ArticleID, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "action": req.Action})
}

func (h *Handler) ListPreferences(c *gin.Context) {
	username := c.Query("user")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user parameter"})
		return
	}

	userID, err := h.users.GetID(username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			c.JSON(http.StatusOK, gin.H{"preferences": []PreferenceView{}, "total": 0})
			return
		}
		slog.Error("Database error", "operation", "get_user", "user", username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	prefs, err := h.users.ListPreferences(userID)
	if err != nil {
		slog.Error("Database error", "operation", "list_preferences", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]PreferenceView, 0, len(prefs))
	for _, p := range prefs {
		views = append(views, preferenceView(p))
	}

	c.JSON(http.StatusOK, gin.H{"preferences": views, "total": len(views)})
}

type preferenceRequest struct {
	User        string   `json:"user" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Weight      *float64 `json:"weight"`
}

func (h *Handler) AddPreference(c *gin.Context) {
	var req preferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	weight := 1.0
	if req.Weight != nil {
		weight = *req.Weight
	}
	if weight <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid weight", "message": "Weight must be positive"})
		return
	}

	userID, err := h.users.GetOrCreate(req.User)
	if err != nil {
		slog.Error("Database error", "operation", "get_or_create_user", "user", req.User, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	pref := database.Preference{
		UserID:      userID,
		Description: req.Description,
		Weight:      weight,
		Embedding:   h.embedPreference(c.Request.Context(), req.Description),
	}

	id, err := h.users.UpsertPreference(pref)
	if err != nil {
		slog.Error("Database error", "operation", "insert_preference", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	pref.ID = id

	c.JSON(http.StatusCreated, gin.H{"success": true, "preference": preferenceView(pref)})
}

type preferenceUpdateRequest struct {
	User        string   `json:"user" binding:"required"`
	Description *string  `json:"description"`
	Weight      *float64 `json:"weight"`
}

// UpdatePreference re-embeds whenever the description changes so a
// stored vector never describes stale text.
func (h *Handler) UpdatePreference(c *gin.Context) {
	id := c.Param("id")

	var req preferenceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.Weight != nil && *req.Weight <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid weight", "message": "Weight must be positive"})
		return
	}

	pref, ok := h.ownedPreference(c, id, req.User)
	if !ok {
		return
	}

	if req.Description != nil && *req.Description != pref.Description {
		pref.Description = *req.Description
		pref.Embedding = h.embedPreference(c.Request.Context(), pref.Description)
	}
	if req.Weight != nil {
		pref.Weight = *req.Weight
	}

	if _, err := h.users.UpsertPreference(*pref); err != nil {
		if errors.Is(err, database.ErrPreferenceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Preference not found"})
			return
		}
		slog.Error("Database error", "operation", "update_preference", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "preference": preferenceView(*pref)})
}

func (h *Handler) DeletePreference(c *gin.Context) {
	id := c.Param("id")
	username := c.Query("user")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user parameter"})
		return
	}

	if _, ok := h.ownedPreference(c, id, username); !ok {
		return
	}

	if err := h.users.DeletePreference(id); err != nil {
		if errors.Is(err, database.ErrPreferenceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Preference not found"})
			return
		}
		slog.Error("Database error", "operation", "delete_preference", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ClearPreferences(c *gin.Context) {
	username := c.Query("user")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user parameter"})
		return
	}

	userID, err := h.users.GetID(username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": true, "deleted": 0})
			return
		}
		slog.Error("Database error", "operation", "get_user", "user", username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	deleted, err := h.users.ClearPreferences(userID)
	if err != nil {
		slog.Error("Database error", "operation", "clear_preferences", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}

func (h *Handler) GetReadingHistory(c *gin.Context) {
	username := c.Query("user")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user parameter"})
		return
	}
	limit := queryLimit(c, defaultHistoryLimit)

	userID, err := h.users.GetID(username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			c.JSON(http.StatusOK, gin.H{"history": []InteractionView{}, "total": 0})
			return
		}
		slog.Error("Database error", "operation", "get_user", "user", username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	interactions, err := h.users.ListInteractions(userID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_interactions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]InteractionView, 0, len(interactions))
	for _, in := range interactions {
		view := InteractionView{Action: in.Action, Timestamp: in.CreatedAt}
		if item, err := h.items.GetByID(in.ItemID); err == nil {
			v := itemView(*item)
			view.Item = &v
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"history": views, "total": len(views)})
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	username := c.Query("user")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user parameter"})
		return
	}

	if err := h.users.Delete(username); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		slog.Error("Database error", "operation", "delete_user", "user", username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TriggerScrape starts an ingestion run in the background. The runner's
// own guard is authoritative; the IsRunning check here just gives the
// caller a clean 409 instead of silently dropping the trigger.
func (h *Handler) TriggerScrape(c *gin.Context) {
	if h.runner.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"error": "Ingestion run already in progress"})
		return
	}

	go func() {
		if _, err := h.runner.Run(h.baseCtx); err != nil {
			if errors.Is(err, ingest.ErrRunInProgress) {
				slog.Warn("Manual ingestion dropped, run already active")
				return
			}
			slog.Error("Manual ingestion failed", "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Ingestion run started"})
}

func (h *Handler) GetSchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// embedPreference returns the encoded vector for a preference
// description, or nil when embedding fails. A nil vector keeps the
// preference stored but excluded from scoring until it is re-embedded.
func (h *Handler) embedPreference(ctx context.Context, description string) []byte {
	vec, err := h.embedder.Embed(ctx, description)
	if err != nil {
		slog.Warn("Failed to embed preference, storing without vector", "error", err)
		return nil
	}
	return vector.Encode(vec)
}

// ownedPreference loads a preference and verifies it belongs to the
// named user. Foreign preferences read as not found.
func (h *Handler) ownedPreference(c *gin.Context, id, username string) (*database.Preference, bool) {
	userID, err := h.users.GetID(username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Preference not found"})
			return nil, false
		}
		slog.Error("Database error", "operation", "get_user", "user", username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}

	pref, err := h.users.GetPreference(id)
	if err != nil {
		if errors.Is(err, database.ErrPreferenceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Preference not found"})
			return nil, false
		}
		slog.Error("Database error", "operation", "get_preference", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}

	if pref.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Preference not found"})
		return nil, false
	}

	return pref, true
}

func queryLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return fallback
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
