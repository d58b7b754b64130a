package api

import (
	"context"
	"time"

	"github.com/ademidov/newspulse/app/database"
	"github.com/ademidov/newspulse/app/ingest"
	"github.com/ademidov/newspulse/app/ranker"
	"github.com/ademidov/newspulse/app/tasks"
	"github.com/ademidov/newspulse/app/vector"
)

// Handler carries the service collaborators behind the HTTP routes.
// baseCtx is the server lifecycle context: background work started from a
// request (the manual scrape) is scoped to it, not to the request, so it
// survives the response but stops on shutdown.
type Handler struct {
	baseCtx   context.Context
	items     database.ItemRepository
	users     database.UserRepository
	embedder  vector.Embedder
	ranker    *ranker.Ranker
	runner    *ingest.Runner
	scheduler *tasks.Scheduler
}

func NewHandler(baseCtx context.Context, items database.ItemRepository,
	users database.UserRepository, embedder vector.Embedder, rk *ranker.Ranker,
	runner *ingest.Runner, scheduler *tasks.Scheduler) *Handler {
	return &Handler{
		baseCtx:   baseCtx,
		items:     items,
		users:     users,
		embedder:  embedder,
		ranker:    rk,
		runner:    runner,
		scheduler: scheduler,
	}
}

// ItemView is the serializable article shape handed to clients. Vectors
// and fingerprints are internal and never cross this boundary.
type ItemView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Description string     `json:"description"`
	Source      string     `json:"source"`
	Category    string     `json:"category,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	IsRead      bool       `json:"is_read"`
}

type ScoredItemView struct {
	ItemView
	Score float64 `json:"score"`
}

type PreferenceView struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
	Embedded    bool    `json:"embedded"`
}

type InteractionView struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Item      *ItemView `json:"item,omitempty"`
}

func itemView(item database.Item) ItemView {
	return ItemView{
		ID:          item.ID,
		Title:       item.Title,
		URL:         item.URL,
		Description: item.Description,
		Source:      item.Source,
		Category:    item.Category,
		PublishedAt: item.PublishedAt,
		IsRead:      item.IsRead,
	}
}

func scoredView(s ranker.Scored) ScoredItemView {
	return ScoredItemView{ItemView: itemView(s.Item), Score: s.Score}
}

func preferenceView(p database.Preference) PreferenceView {
	return PreferenceView{
		ID:          p.ID,
		Description: p.Description,
		Weight:      p.Weight,
		Embedded:    p.Embedding != nil,
	}
}
