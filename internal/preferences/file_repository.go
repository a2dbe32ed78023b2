package preferences

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileRepository persists each user's preferences as a YAML file named by
// chat id: {dir}/{chat_id}.yaml. It is the simplest durable store and needs
// no external service.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a file-backed preferences repository rooted at dir.
// The directory is created on first save.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

func (r *FileRepository) path(chatID int64) string {
	return filepath.Join(r.dir, strconv.FormatInt(chatID, 10)+".yaml")
}

// Load retrieves preferences from the user's YAML file.
func (r *FileRepository) Load(_ context.Context, chatID int64) (*UserPreferences, error) {
	data, err := os.ReadFile(r.path(chatID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: reading %d: %v", ErrStorage, chatID, err)
	}

	prefs, err := decodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt record for %d: %v", ErrStorage, chatID, err)
	}
	if err := prefs.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid record for %d: %v", ErrStorage, chatID, err)
	}
	return prefs, nil
}

// Save writes the user's preferences file, creating the directory if needed
// and overwriting any existing record.
func (r *FileRepository) Save(_ context.Context, prefs *UserPreferences) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrStorage, r.dir, err)
	}

	data, err := encodeYAML(prefs)
	if err != nil {
		return fmt.Errorf("%w: encoding %d: %v", ErrStorage, prefs.ChatID, err)
	}

	if err := os.WriteFile(r.path(prefs.ChatID), data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %d: %v", ErrStorage, prefs.ChatID, err)
	}
	return nil
}

// Delete removes the user's preferences file.
func (r *FileRepository) Delete(_ context.Context, chatID int64) error {
	err := os.Remove(r.path(chatID))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: deleting %d: %v", ErrStorage, chatID, err)
	}
	return nil
}

// Exists reports whether a preferences file is present for the chat id.
func (r *FileRepository) Exists(_ context.Context, chatID int64) (bool, error) {
	_, err := os.Stat(r.path(chatID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat %d: %v", ErrStorage, chatID, err)
	}
	return true, nil
}

// ListChatIDs scans the directory for preference files. Files whose names
// are not numeric chat ids are ignored.
func (r *FileRepository) ListChatIDs(_ context.Context) ([]int64, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: listing %s: %v", ErrStorage, r.dir, err)
	}

	var ids []int64
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(name, ".yaml"), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// encodeYAML renders preferences as YAML. Encoding goes through the JSON
// representation first so monetary values keep their exact decimal strings
// ("500.00" stays "500.00") instead of degrading to floats.
func encodeYAML(prefs *UserPreferences) ([]byte, error) {
	jsonData, err := json.Marshal(prefs)
	if err != nil {
		return nil, err
	}

	// JSON is a YAML subset, so this re-shape never loses information.
	var doc map[string]interface{}
	if err := yaml.Unmarshal(jsonData, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// decodeYAML parses a preferences YAML document via the same JSON bridge.
func decodeYAML(data []byte) (*UserPreferences, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var prefs UserPreferences
	if err := json.Unmarshal(jsonData, &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}
