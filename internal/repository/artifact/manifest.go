package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Manifest describes one written index. It sits next to the index as
// <index>.manifest.json.
type Manifest struct {
	BuildID   string    `json:"build_id"`
	Schema    int       `json:"schema"`
	CreatedAt time.Time `json:"created_at"`
	Products  int       `json:"products"`
	Reviews   int64     `json:"reviews"`
	SHA256    string    `json:"sha256"`
	// Skipped counts dropped records per "<pass>/<reason>".
	Skipped map[string]int64 `json:"skipped,omitempty"`
}

// ManifestPath returns the manifest location for an index path.
func ManifestPath(indexPath string) string {
	return strings.TrimSuffix(indexPath, filepath.Ext(indexPath)) + ".manifest.json"
}

// WriteManifest writes m atomically next to indexPath.
func WriteManifest(indexPath string, m Manifest) error {
	f, err := CreateAtomic(ManifestPath(indexPath))
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		f.Abort()
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Abort()
		return fmt.Errorf("write manifest: %w", err)
	}
	if _, err := f.Commit(); err != nil {
		return err
	}
	return nil
}

// ReadManifest loads the manifest for indexPath. A missing manifest yields
// os.ErrNotExist.
func ReadManifest(indexPath string) (Manifest, error) {
	path := ManifestPath(indexPath)
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{}, err //nolint:wrapcheck // callers test for os.ErrNotExist
		}
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}
