package builder

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/repository/artifact"
)

const (
	stateFile    = "state.json"
	stateVersion = 1
)

// fingerprint identifies a file version without hashing it.
type fingerprint struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time_ns"`
}

func fingerprintOf(path string) (fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fingerprint{}, fmt.Errorf("stat %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return fingerprint{Path: abs, Size: info.Size(), ModTime: info.ModTime().UnixNano()}, nil
}

func fingerprints(paths []string) ([]fingerprint, error) {
	out := make([]fingerprint, 0, len(paths))
	for _, p := range paths {
		fp, err := fingerprintOf(p)
		if err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	return out, nil
}

type passRecord struct {
	Inputs      []fingerprint `json:"inputs"`
	Output      fingerprint   `json:"output"`
	Stats       PassStats     `json:"stats"`
	CompletedAt time.Time     `json:"completed_at"`
}

// state is the resume record kept in the work dir.
type state struct {
	Version int                   `json:"version"`
	Passes  map[string]passRecord `json:"passes"`
}

// loadState reads state.json. A missing or unreadable file yields an empty
// state.
func loadState(path string, logger *zap.Logger) *state {
	st := &state{Version: stateVersion, Passes: make(map[string]passRecord)}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to read builder state", zap.Error(err))
		}
		return st
	}
	var loaded state
	if err := json.Unmarshal(data, &loaded); err != nil || loaded.Version != stateVersion {
		logger.Warn("ignoring unusable builder state", zap.String("path", path))
		return st
	}
	if loaded.Passes != nil {
		st.Passes = loaded.Passes
	}
	return st
}

// completed returns the record for pass when its inputs match fps and its
// output file is unchanged.
func (s *state) completed(pass string, fps []fingerprint, output string) (passRecord, bool) {
	rec, ok := s.Passes[pass]
	if !ok || len(rec.Inputs) != len(fps) {
		return passRecord{}, false
	}
	for i := range fps {
		if rec.Inputs[i] != fps[i] {
			return passRecord{}, false
		}
	}
	out, err := fingerprintOf(output)
	if err != nil || out != rec.Output {
		return passRecord{}, false
	}
	return rec, true
}

func (s *state) record(pass string, rec passRecord) {
	s.Passes[pass] = rec
}

// save writes the state through a temp file and rename.
func (s *state) save(path string) error {
	f, err := artifact.CreateAtomic(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		f.Abort()
		return fmt.Errorf("marshal state: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Abort()
		return fmt.Errorf("write state: %w", err)
	}
	_, err = f.Commit()
	return err
}
