package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	stateDirName  = ".hrmate"
	stateFileName = "current_session"
)

// StateFilePath returns the path to the current-session state file,
// creating ~/.hrmate if needed.
func StateFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir := filepath.Join(home, stateDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating state directory: %w", err)
	}
	return filepath.Join(dir, stateFileName), nil
}

// withStateLock runs fn while holding an exclusive flock on the state
// file's companion lock. Serializes concurrent CLI invocations.
func withStateLock(path string, fn func() error) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquiring state lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

// LoadCurrentSessionID loads the active session ID from the state file.
// Returns (nil, nil) when no current session is set.
func LoadCurrentSessionID() (*uuid.UUID, error) {
	path, err := StateFilePath()
	if err != nil {
		return nil, err
	}

	var id *uuid.UUID
	err = withStateLock(path, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("reading state file: %w", err)
		}
		raw := strings.TrimSpace(string(data))
		if raw == "" {
			return nil
		}
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid session ID in state file: %w", err)
		}
		id = &parsed
		return nil
	})
	return id, err
}

// SaveCurrentSessionID atomically records the active session ID.
func SaveCurrentSessionID(sessionID uuid.UUID) error {
	path, err := StateFilePath()
	if err != nil {
		return err
	}

	return withStateLock(path, func() error {
		tmp, err := os.CreateTemp(filepath.Dir(path), stateFileName+".tmp-*")
		if err != nil {
			return fmt.Errorf("creating temp state file: %w", err)
		}
		tmpName := tmp.Name()
		if _, err := tmp.WriteString(sessionID.String()); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
			return fmt.Errorf("writing temp state file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			_ = os.Remove(tmpName)
			return fmt.Errorf("closing temp state file: %w", err)
		}
		if err := os.Rename(tmpName, path); err != nil {
			_ = os.Remove(tmpName)
			return fmt.Errorf("replacing state file: %w", err)
		}
		return nil
	})
}

// ClearCurrentSessionID removes the state file. Idempotent.
func ClearCurrentSessionID() error {
	path, err := StateFilePath()
	if err != nil {
		return err
	}
	return withStateLock(path, func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing state file: %w", err)
		}
		return nil
	})
}
