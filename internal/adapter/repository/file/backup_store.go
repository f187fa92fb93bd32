package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const backupExt = ".json"

// BackupStore implements usecase.BackupStore as JSON files in one directory.
// Backup names embed a sortable timestamp, so lexical order is age order.
type BackupStore struct {
	dir       string
	retention int
}

// NewBackupStore creates a BackupStore. A non-positive retention keeps every backup.
func NewBackupStore(dir string, retention int) *BackupStore {
	return &BackupStore{dir: dir, retention: retention}
}

// Save writes payload to dir/name and removes backups beyond the retention.
func (s *BackupStore) Save(ctx context.Context, name string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid backup name %q", name)
	}
	if !strings.HasSuffix(name, backupExt) {
		name += backupExt
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	if err := writeAtomic(filepath.Join(s.dir, name), payload); err != nil {
		return fmt.Errorf("save backup %s: %w", name, err)
	}

	if s.retention <= 0 {
		return nil
	}
	return s.prune()
}

// Latest returns the newest backup, or nil when the directory holds none.
func (s *BackupStore) Latest(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names, err := s.Names()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	payload, err := os.ReadFile(filepath.Join(s.dir, names[0]))
	if err != nil {
		return nil, fmt.Errorf("read backup %s: %w", names[0], err)
	}
	return payload, nil
}

// Names lists backup files, newest first.
func (s *BackupStore) Names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), backupExt) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	slices.Reverse(names)
	return names, nil
}

func (s *BackupStore) prune() error {
	names, err := s.Names()
	if err != nil {
		return err
	}
	if len(names) <= s.retention {
		return nil
	}

	var errs []error
	for _, name := range names[s.retention:] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
