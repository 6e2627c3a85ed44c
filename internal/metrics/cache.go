package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store persists the username to user-ID mapping between runs.
type Store interface {
	Load() (map[string]string, error)
	Save(ids map[string]string) error
}

// FileStore keeps the ID cache as a YAML file. The whole file is rewritten
// on save.
type FileStore struct {
	Path string
}

// DefaultStore places the cache file in the platform cache directory.
func DefaultStore() (*FileStore, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return &FileStore{Path: filepath.Join(dir, "mrmetrics", "user_ids.yaml")}, nil
}

func (s *FileStore) Load() (map[string]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]string)
	if err := yaml.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse ID cache: %w", err)
	}
	return ids, nil
}

func (s *FileStore) Save(ids map[string]string) error {
	data, err := yaml.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode ID cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	return os.WriteFile(s.Path, data, 0644)
}
