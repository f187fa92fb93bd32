package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// StateFile is a single exported bundle on disk, used as the server's
// persistent state and as the CLI's working file.
type StateFile struct {
	Path string
}

// Load reads the file. A missing file yields nil, nil.
func (f StateFile) Load() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	return data, nil
}

// Save replaces the file atomically.
func (f StateFile) Save(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := writeAtomic(f.Path, data); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}
