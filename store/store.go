// Package store is the persistence boundary between the in-memory task
// collection and its durable JSON file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"taskforge/model"
)

const maxRotatingBackups = 10

// ErrCorruptData marks a data file that exists but cannot be decoded, or a
// record that fails schema validation.
var ErrCorruptData = errors.New("corrupt task data")

var errNoValidBackup = errors.New("no valid backup found")

// FileStore reads and writes the full task collection at a fixed path.
type FileStore struct {
	Path string
}

// NewFileStore creates a store for the given data file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the task collection from the data file.
// A missing file is the first-run case and yields an empty collection.
func (s *FileStore) Load() ([]model.Task, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Task{}, nil
		}
		return nil, err
	}
	return decodeTasks(data)
}

// Save serializes the full collection and replaces the data file atomically:
// snapshot the previous file, write a temp file in the same directory, fsync,
// then rename over the target. A crash mid-write never truncates valid data.
func (s *FileStore) Save(tasks []model.Task) error {
	if err := ensureDir(s.Path); err != nil {
		return err
	}

	if err := s.backup(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), filepath.Base(s.Path)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tasks); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, s.Path)
}

// LoadWithRecovery loads the collection and attempts automatic recovery when
// the data file is corrupted: the bad file is moved aside and the newest valid
// backup (or an empty collection) takes its place. The returned status message
// describes what happened and is meant for display.
func (s *FileStore) LoadWithRecovery() ([]model.Task, string, error) {
	tasks, err := s.Load()
	if err == nil {
		return tasks, "", nil
	}
	if !errors.Is(err, ErrCorruptData) {
		return nil, "", err
	}

	corruptPath, moveErr := s.moveCorruptFile()
	if moveErr != nil {
		return nil, "", fmt.Errorf("move corrupt data file: %w", moveErr)
	}

	recovered, backupPath, backupErr := s.loadLatestValidBackup()
	if backupErr == nil {
		if err := s.Save(recovered); err != nil {
			return nil, "", fmt.Errorf("restore backup: %w", err)
		}
		msg := fmt.Sprintf("recovered corrupt data from %s", filepath.Base(backupPath))
		if corruptPath != "" {
			msg += fmt.Sprintf(" (bad file moved to %s)", filepath.Base(corruptPath))
		}
		return recovered, msg, nil
	}
	if !errors.Is(backupErr, errNoValidBackup) {
		return nil, "", fmt.Errorf("inspect backups: %w", backupErr)
	}

	empty := []model.Task{}
	if err := s.Save(empty); err != nil {
		return nil, "", fmt.Errorf("initialize empty collection after corruption: %w", err)
	}
	msg := "data file was corrupt with no valid backup; starting empty"
	if corruptPath != "" {
		msg += fmt.Sprintf(" (bad file moved to %s)", filepath.Base(corruptPath))
	}
	return empty, msg, nil
}

func decodeTasks(data []byte) ([]model.Task, error) {
	var tasks []model.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	for i, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorruptData, i, err)
		}
	}
	return tasks, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func (s *FileStore) backup() error {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	if err := os.WriteFile(s.Path+".bak", data, 0o644); err != nil {
		return err
	}

	timestamp := time.Now().UTC().Format("20060102-150405.000000000")
	rotatingPath := fmt.Sprintf("%s.bak.%s", s.Path, timestamp)
	if err := os.WriteFile(rotatingPath, data, 0o644); err != nil {
		return err
	}

	return s.pruneRotatingBackups()
}

func (s *FileStore) pruneRotatingBackups() error {
	files, err := filepath.Glob(s.Path + ".bak.*")
	if err != nil {
		return err
	}
	if len(files) <= maxRotatingBackups {
		return nil
	}

	sort.Strings(files)
	toDelete := files[:len(files)-maxRotatingBackups]
	for _, old := range toDelete {
		if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *FileStore) loadLatestValidBackup() ([]model.Task, string, error) {
	candidates := make([]string, 0, maxRotatingBackups+2)
	latest := s.Path + ".bak"
	if _, err := os.Stat(latest); err == nil {
		candidates = append(candidates, latest)
	}
	rotating, err := filepath.Glob(s.Path + ".bak.*")
	if err != nil {
		return nil, "", err
	}
	candidates = append(candidates, rotating...)
	if len(candidates) == 0 {
		return nil, "", errNoValidBackup
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		iInfo, iErr := os.Stat(candidates[i])
		jInfo, jErr := os.Stat(candidates[j])
		if iErr != nil || jErr != nil {
			return candidates[i] > candidates[j]
		}
		return iInfo.ModTime().After(jInfo.ModTime())
	})

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		tasks, err := decodeTasks(data)
		if err != nil {
			continue
		}
		return tasks, candidate, nil
	}

	return nil, "", errNoValidBackup
}

func (s *FileStore) moveCorruptFile() (string, error) {
	if _, err := os.Stat(s.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	base := filepath.Base(s.Path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	timestamp := time.Now().UTC().Format("20060102-150405")
	corruptName := fmt.Sprintf("%s.corrupt-%s%s", name, timestamp, ext)
	corruptPath := filepath.Join(filepath.Dir(s.Path), corruptName)
	if err := os.Rename(s.Path, corruptPath); err != nil {
		return "", err
	}
	return corruptPath, nil
}
