package database

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrPreferenceNotFound = errors.New("preference not found")
	ErrItemNotFound       = errors.New("item not found")
)

// ItemFilter selects candidate items. Zero values mean "no constraint".
type ItemFilter struct {
	Keyword           string
	Source            string
	MinDate           *time.Time
	ExcludeUnembedded bool
	Limit             int
}

type ItemRepository interface {
	// InsertIfAbsent stores the item unless its URL or fingerprint is
	// already present. The false return is the dedup signal, not an error.
	InsertIfAbsent(item Item) (bool, error)

	// Query returns items matching the filter, newest published first.
	Query(filter ItemFilter) ([]Item, error)

	GetByID(id string) (*Item, error)
	GetByURL(url string) (*Item, error)

	UpdateEmbedding(itemID string, embedding []byte) error
	ListUnembedded(limit int) ([]Item, error)

	UpdateContent(itemID string, content string) error
	ListWithoutContent(limit int) ([]Item, error)

	MarkRead(itemID string) error

	// PurgeOlderThan removes items published before the cutoff. Items
	// with no published date are indeterminately old and also removed.
	// An item published exactly at the cutoff instant is retained.
	PurgeOlderThan(cutoff time.Time) (int, error)

	Count() (int, error)
	CountBySource() (map[string]int, error)
}

type UserRepository interface {
	GetOrCreate(username string) (string, error)
	GetID(username string) (string, error)
	Delete(username string) error

	ListPreferences(userID string) ([]Preference, error)
	UpsertPreference(pref Preference) (string, error)
	GetPreference(id string) (*Preference, error)
	DeletePreference(id string) error
	ClearPreferences(userID string) (int, error)

	RecordInteraction(userID, itemID, action string) error
	ListInteractions(userID string, limit int) ([]Interaction, error)
}
