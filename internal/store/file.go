package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/i474232898/weather-widgets/internal/weather"
)

// FilePersister keeps the widget list as a JSON document on disk.
type FilePersister struct {
	path string
}

// NewFilePersister returns a persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load reads the saved widgets. A missing file is an empty list.
func (p *FilePersister) Load() ([]weather.Widget, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}
	return decodeWidgets(data)
}

// Save writes the whole list to a temp file and renames it into place.
func (p *FilePersister) Save(widgets []weather.Widget) error {
	data, err := json.Marshal(widgets)
	if err != nil {
		return fmt.Errorf("encode widgets: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".widgets-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write widgets: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write widgets: %w", err)
	}
	return os.Rename(tmp.Name(), p.path)
}

// Clear removes the file.
func (p *FilePersister) Clear() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func decodeWidgets(data []byte) ([]weather.Widget, error) {
	var widgets []weather.Widget
	if err := json.Unmarshal(data, &widgets); err != nil {
		return nil, fmt.Errorf("decode widgets: %w", err)
	}
	return widgets, nil
}

var _ Persister = (*FilePersister)(nil)
