package scratchpad

import (
	"fmt"
	"os"
	"path/filepath"

	errx "github.com/padpal/server/internal/core/error"
)

// Store owns the scratch pad file. Single writer: the update manager runs
// once per turn, after the response, so no file locking is needed.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the whole scratch pad. A missing file is a context-fetch error;
// the assistant treats it as "no stored knowledge" rather than crashing.
func (s *Store) Load() (string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errx.New(err, errx.KindContextFetch, fmt.Sprintf("scratch pad file not found: %s", s.path))
		}
		return "", errx.New(err, errx.KindContextFetch, "failed to read scratch pad")
	}
	return string(b), nil
}

// Write replaces the scratch pad atomically: write a sibling temp file, then
// rename over the original. A reader never observes a half-written pad.
func (s *Store) Write(content string) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".scratchpad-*")
	if err != nil {
		return errx.New(err, errx.KindStorage, "failed to create scratch pad temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return errx.New(err, errx.KindStorage, "failed to write scratch pad temp file")
	}
	if err := tmp.Close(); err != nil {
		return errx.New(err, errx.KindStorage, "failed to close scratch pad temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errx.New(err, errx.KindStorage, "failed to replace scratch pad")
	}
	return nil
}
