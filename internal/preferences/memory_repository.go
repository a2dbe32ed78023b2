package preferences

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository
// or FileRepository.
type InMemoryRepository struct {
	mu    sync.RWMutex
	prefs map[int64]*UserPreferences
}

// NewInMemoryRepository creates a new in-memory preferences repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		prefs: make(map[int64]*UserPreferences),
	}
}

// Load retrieves preferences for a chat id.
func (r *InMemoryRepository) Load(_ context.Context, chatID int64) (*UserPreferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prefs[chatID]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	cpy := *p
	if err := cpy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid record for %d: %v", ErrStorage, chatID, err)
	}
	return &cpy, nil
}

// Save stores preferences keyed by their chat id.
func (r *InMemoryRepository) Save(_ context.Context, prefs *UserPreferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *prefs
	r.prefs[prefs.ChatID] = &cpy
	return nil
}

// Delete removes stored preferences.
func (r *InMemoryRepository) Delete(_ context.Context, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.prefs[chatID]; !ok {
		return ErrNotFound
	}
	delete(r.prefs, chatID)
	return nil
}

// Exists reports whether preferences are stored for a chat id.
func (r *InMemoryRepository) Exists(_ context.Context, chatID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.prefs[chatID]
	return ok, nil
}

// ListChatIDs returns all chat ids with stored preferences, sorted for
// deterministic iteration.
func (r *InMemoryRepository) ListChatIDs(_ context.Context) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.prefs))
	for id := range r.prefs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
