package preferences

import (
	"context"
	"errors"
)

// Repository errors.
var (
	// ErrNotFound is returned when a chat id has no stored preferences.
	ErrNotFound = errors.New("preferences not found")

	// ErrStorage wraps storage-layer failures (I/O, corrupt records).
	ErrStorage = errors.New("preferences storage error")
)

// Repository defines the interface for preference persistence. The deal
// engine and monitor only ever see materialized UserPreferences; the storage
// mechanics behind this interface are irrelevant to them.
type Repository interface {
	// Load retrieves preferences for a chat id.
	// Returns ErrNotFound if none are stored.
	Load(ctx context.Context, chatID int64) (*UserPreferences, error)

	// Save stores preferences for a chat id, overwriting any existing record.
	Save(ctx context.Context, prefs *UserPreferences) error

	// Delete removes stored preferences.
	// Returns ErrNotFound if none are stored.
	Delete(ctx context.Context, chatID int64) error

	// Exists reports whether preferences are stored for a chat id.
	Exists(ctx context.Context, chatID int64) (bool, error)

	// ListChatIDs returns the chat ids of all users with stored preferences.
	ListChatIDs(ctx context.Context) ([]int64, error)
}
