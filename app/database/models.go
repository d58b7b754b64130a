package database

import (
	"time"
)

type User struct {
	ID        string
	Username  string
	Email     string
	CreatedAt time.Time
}

// Item is a stored article. Embedding holds the encoded vector blob
// (see the vector package codec); nil until the item has been embedded.
// PublishedAt is nullable in the schema: rows ingested through the
// pipeline always carry a date, but legacy rows without one are treated
// as indeterminately old by the purge.
type Item struct {
	ID          string
	URL         string
	Fingerprint string
	Title       string
	Description string
	Content     string
	PublishedAt *time.Time
	Source      string
	Category    string
	Embedding   []byte
	IsRead      bool
	CreatedAt   time.Time
}

type Preference struct {
	ID          string
	UserID      string
	Description string
	Weight      float64
	Embedding   []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Interaction is an append-only record of a user acting on an item.
type Interaction struct {
	ID        string
	UserID    string
	ItemID    string
	Action    string
	CreatedAt time.Time
}

// Valid interaction actions.
const (
	ActionClicked   = "clicked"
	ActionRead      = "read"
	ActionDismissed = "dismissed"
)

func ValidAction(action string) bool {
	switch action {
	case ActionClicked, ActionRead, ActionDismissed:
		return true
	}
	return false
}
