package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var _ ItemRepository = (*SQLItemRepository)(nil)

type SQLItemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) *SQLItemRepository {
	return &SQLItemRepository{db: db}
}

const itemColumns = `id, url, fingerprint, title, COALESCE(description, ''),
	COALESCE(content, ''), published_at, COALESCE(source, ''),
	COALESCE(category, ''), embedding, is_read, created_at`

// InsertIfAbsent relies on the UNIQUE constraints on url and fingerprint:
// the conflict clause makes check-and-insert a single atomic statement, so
// concurrent workers racing on the same item cannot both insert it.
func (r *SQLItemRepository) InsertIfAbsent(item Item) (bool, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.Exec(`
		INSERT INTO items (id, url, fingerprint, title, description, content,
			published_at, source, category, embedding, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, item.ID, item.URL, item.Fingerprint, item.Title, item.Description,
		nullableString(item.Content), nullableTime(item.PublishedAt), item.Source,
		nullableString(item.Category), item.Embedding, item.IsRead, item.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return affected == 1, nil
}

func (r *SQLItemRepository) Query(filter ItemFilter) ([]Item, error) {
	var conditions []string
	var args []interface{}

	if filter.Keyword != "" {
		conditions = append(conditions, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + filter.Keyword + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.MinDate != nil {
		conditions = append(conditions, "published_at >= ?")
		args = append(args, filter.MinDate.UTC())
	}
	if filter.ExcludeUnembedded {
		conditions = append(conditions, "embedding IS NOT NULL")
	}

	query := "SELECT " + itemColumns + " FROM items"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY published_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *SQLItemRepository) GetByID(id string) (*Item, error) {
	return r.getOne("id = ?", id)
}

func (r *SQLItemRepository) GetByURL(url string) (*Item, error) {
	return r.getOne("url = ?", url)
}

func (r *SQLItemRepository) getOne(where string, arg interface{}) (*Item, error) {
	row := r.db.QueryRow("SELECT "+itemColumns+" FROM items WHERE "+where, arg)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

func (r *SQLItemRepository) UpdateEmbedding(itemID string, embedding []byte) error {
	result, err := r.db.Exec(`UPDATE items SET embedding = ? WHERE id = ?`, embedding, itemID)
	if err != nil {
		return fmt.Errorf("failed to update item embedding: %w", err)
	}
	return requireRow(result, ErrItemNotFound)
}

func (r *SQLItemRepository) ListUnembedded(limit int) ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM items
		WHERE embedding IS NULL
		ORDER BY created_at
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unembedded items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *SQLItemRepository) UpdateContent(itemID string, content string) error {
	result, err := r.db.Exec(`UPDATE items SET content = ? WHERE id = ?`, content, itemID)
	if err != nil {
		return fmt.Errorf("failed to update item content: %w", err)
	}
	return requireRow(result, ErrItemNotFound)
}

func (r *SQLItemRepository) ListWithoutContent(limit int) ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM items
		WHERE content IS NULL OR content = ''
		ORDER BY created_at
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list items without content: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *SQLItemRepository) MarkRead(itemID string) error {
	result, err := r.db.Exec(`UPDATE items SET is_read = 1 WHERE id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("failed to mark item read: %w", err)
	}
	return requireRow(result, ErrItemNotFound)
}

// PurgeOlderThan uses a strict < so an item published exactly at the
// cutoff instant survives. Null-dated rows cannot be dated and go too.
func (r *SQLItemRepository) PurgeOlderThan(cutoff time.Time) (int, error) {
	result, err := r.db.Exec(`
		DELETE FROM items
		WHERE published_at < ? OR published_at IS NULL
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge items: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge result: %w", err)
	}

	return int(affected), nil
}

func (r *SQLItemRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func (r *SQLItemRepository) CountBySource() (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT COALESCE(source, ''), COUNT(*)
		FROM items
		GROUP BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count items by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		counts[source] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source counts: %w", err)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var publishedAt sql.NullTime
	var isRead int

	err := row.Scan(
		&item.ID, &item.URL, &item.Fingerprint, &item.Title, &item.Description,
		&item.Content, &publishedAt, &item.Source, &item.Category,
		&item.Embedding, &isRead, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if publishedAt.Valid {
		t := publishedAt.Time.UTC()
		item.PublishedAt = &t
	}
	item.IsRead = isRead != 0

	return &item, nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func requireRow(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
