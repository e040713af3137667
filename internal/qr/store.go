package qr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store writes rendered artifacts to a deterministic, human-inspectable
// location: one file per prescription/code pair. Re-rendering the same pair
// overwrites the previous artifact.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) ArtifactPath(prescriptionID uuid.UUID, code string) string {
	return filepath.Join(s.dir, fmt.Sprintf("prescription_%s_%s.png", prescriptionID, code))
}

func (s *Store) Write(prescriptionID uuid.UUID, code string, png []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}
	path := s.ArtifactPath(prescriptionID, code)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	return path, nil
}

func (s *Store) Read(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return b, nil
}
