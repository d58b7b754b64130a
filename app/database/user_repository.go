package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var _ UserRepository = (*SQLUserRepository)(nil)

type SQLUserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

// GetOrCreate returns the id for username, creating the user lazily on
// first use. The conflict clause covers the race where two requests
// create the same user concurrently.
func (r *SQLUserRepository) GetOrCreate(username string) (string, error) {
	id, err := r.GetID(username)
	if err == nil {
		return id, nil
	}
	if err != ErrUserNotFound {
		return "", err
	}

	newID := uuid.NewString()
	_, err = r.db.Exec(`
		INSERT INTO users (id, username, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(username) DO NOTHING
	`, newID, username, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	// Re-read: on conflict another writer won and owns the id.
	return r.GetID(username)
}

func (r *SQLUserRepository) GetID(username string) (string, error) {
	var id string
	err := r.db.QueryRow("SELECT id FROM users WHERE username = ?", username).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return id, nil
}

// Delete removes the user; preferences and interactions cascade.
func (r *SQLUserRepository) Delete(username string) error {
	result, err := r.db.Exec("DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRow(result, ErrUserNotFound)
}

const preferenceColumns = `id, user_id, description, weight, embedding, created_at, updated_at`

func (r *SQLUserRepository) ListPreferences(userID string) ([]Preference, error) {
	rows, err := r.db.Query(`
		SELECT `+preferenceColumns+`
		FROM preferences
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	defer rows.Close()

	var prefs []Preference
	for rows.Next() {
		var p Preference
		if err := rows.Scan(&p.ID, &p.UserID, &p.Description, &p.Weight,
			&p.Embedding, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference row: %w", err)
		}
		prefs = append(prefs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating preference rows: %w", err)
	}

	return prefs, nil
}

// UpsertPreference inserts when pref.ID is empty, updates otherwise.
// Callers must pass an embedding that matches the description: the
// description and its vector are written together so they cannot drift.
func (r *SQLUserRepository) UpsertPreference(pref Preference) (string, error) {
	now := time.Now().UTC()

	if pref.ID == "" {
		pref.ID = uuid.NewString()
		_, err := r.db.Exec(`
			INSERT INTO preferences (id, user_id, description, weight, embedding, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, pref.ID, pref.UserID, pref.Description, pref.Weight, pref.Embedding, now, now)
		if err != nil {
			if isForeignKeyViolation(err) {
				return "", ErrUserNotFound
			}
			return "", fmt.Errorf("failed to insert preference: %w", err)
		}
		return pref.ID, nil
	}

	result, err := r.db.Exec(`
		UPDATE preferences
		SET description = ?, weight = ?, embedding = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, pref.Description, pref.Weight, pref.Embedding, now, pref.ID, pref.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to update preference: %w", err)
	}
	if err := requireRow(result, ErrPreferenceNotFound); err != nil {
		return "", err
	}

	return pref.ID, nil
}

func (r *SQLUserRepository) GetPreference(id string) (*Preference, error) {
	var p Preference
	err := r.db.QueryRow(`
		SELECT `+preferenceColumns+`
		FROM preferences
		WHERE id = ?
	`, id).Scan(&p.ID, &p.UserID, &p.Description, &p.Weight,
		&p.Embedding, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrPreferenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}
	return &p, nil
}

func (r *SQLUserRepository) DeletePreference(id string) error {
	result, err := r.db.Exec("DELETE FROM preferences WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete preference: %w", err)
	}
	return requireRow(result, ErrPreferenceNotFound)
}

func (r *SQLUserRepository) ClearPreferences(userID string) (int, error) {
	result, err := r.db.Exec("DELETE FROM preferences WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear preferences: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read clear result: %w", err)
	}

	return int(affected), nil
}

func (r *SQLUserRepository) RecordInteraction(userID, itemID, action string) error {
	if !ValidAction(action) {
		return fmt.Errorf("invalid interaction action %q", action)
	}

	_, err := r.db.Exec(`
		INSERT INTO interactions (id, user_id, item_id, action, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), userID, itemID, action, time.Now().UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrItemNotFound
		}
		return fmt.Errorf("failed to record interaction: %w", err)
	}

	return nil
}

func (r *SQLUserRepository) ListInteractions(userID string, limit int) ([]Interaction, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, item_id, action, created_at
		FROM interactions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	var list []Interaction
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.ID, &in.UserID, &in.ItemID, &in.Action, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction row: %w", err)
		}
		list = append(list, in)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interaction rows: %w", err)
	}

	return list, nil
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
