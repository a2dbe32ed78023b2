package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
//
// Preferences are stored as a JSONB document keyed by chat id. The document
// form keeps monetary values as their exact decimal strings and survives
// model additions without schema migrations:
//
//	CREATE TABLE user_preferences (
//	    chat_id    BIGINT PRIMARY KEY,
//	    doc        JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL preferences repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Load retrieves preferences for a chat id.
func (r *PostgresRepository) Load(ctx context.Context, chatID int64) (*UserPreferences, error) {
	query := `SELECT doc FROM user_preferences WHERE chat_id = $1`

	var doc []byte
	err := r.pool.QueryRow(ctx, query, chatID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: loading %d: %v", ErrStorage, chatID, err)
	}

	var prefs UserPreferences
	if err := json.Unmarshal(doc, &prefs); err != nil {
		return nil, fmt.Errorf("%w: corrupt record for %d: %v", ErrStorage, chatID, err)
	}
	if err := prefs.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid record for %d: %v", ErrStorage, chatID, err)
	}
	return &prefs, nil
}

// Save upserts preferences keyed by their chat id.
func (r *PostgresRepository) Save(ctx context.Context, prefs *UserPreferences) error {
	doc, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("%w: encoding %d: %v", ErrStorage, prefs.ChatID, err)
	}

	query := `
		INSERT INTO user_preferences (chat_id, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (chat_id)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`

	if _, err := r.pool.Exec(ctx, query, prefs.ChatID, doc); err != nil {
		return fmt.Errorf("%w: saving %d: %v", ErrStorage, prefs.ChatID, err)
	}
	return nil
}

// Delete removes stored preferences.
func (r *PostgresRepository) Delete(ctx context.Context, chatID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_preferences WHERE chat_id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("%w: deleting %d: %v", ErrStorage, chatID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether preferences are stored for a chat id.
func (r *PostgresRepository) Exists(ctx context.Context, chatID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM user_preferences WHERE chat_id = $1)`
	if err := r.pool.QueryRow(ctx, query, chatID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: checking %d: %v", ErrStorage, chatID, err)
	}
	return exists, nil
}

// ListChatIDs returns the chat ids of all users with stored preferences.
func (r *PostgresRepository) ListChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT chat_id FROM user_preferences ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing chat ids: %v", ErrStorage, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning chat id: %v", ErrStorage, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing chat ids: %v", ErrStorage, err)
	}
	return ids, nil
}
