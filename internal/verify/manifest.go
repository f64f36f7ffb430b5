package verify

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestFile is the filename written beside a recorded fixtures archive.
const ManifestFile = "mixdown.manifest.json"

const manifestVersion = "1"

// Manifest pins the content of a fixtures archive so a later replay can
// tell when the files it is about to trust have drifted from what was
// recorded.
type Manifest struct {
	Version   string          `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	Files     []ManifestEntry `json:"files"`
}

// ManifestEntry describes one fixtures file, path relative to the
// manifest's own directory.
type ManifestEntry struct {
	Path     string `json:"path"`
	SHA256   string `json:"sha256"`
	Fixtures int    `json:"fixtures"`
}

// BuildManifest hashes the named fixture files under dir.
func BuildManifest(dir string, files []string) (*Manifest, error) {
	m := &Manifest{Version: manifestVersion, CreatedAt: time.Now().UTC()}
	for _, rel := range files {
		b, err := os.ReadFile(filepath.Join(dir, rel))
		if err != nil {
			return nil, fmt.Errorf("manifest: reading %s: %w", rel, err)
		}
		sum := sha256.Sum256(b)
		m.Files = append(m.Files, ManifestEntry{
			Path:     rel,
			SHA256:   hex.EncodeToString(sum[:]),
			Fixtures: countJSONLines(b),
		})
	}
	return m, nil
}

func countJSONLines(b []byte) int {
	n := 0
	for _, line := range bytes.Split(b, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}

// WriteManifest writes the manifest into dir as ManifestFile.
func WriteManifest(dir string, m *Manifest) (string, error) {
	path := filepath.Join(dir, ManifestFile)
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("manifest: encode: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("manifest: writing %s: %w", path, err)
	}
	return path, nil
}

// LoadManifest reads ManifestFile from dir. The returned path names the
// file that was read, for error reporting.
func LoadManifest(dir string) (*Manifest, string, error) {
	path := filepath.Join(dir, ManifestFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, path, err
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, path, fmt.Errorf("manifest: invalid JSON: %w", err)
	}
	if m.Version == "" {
		return nil, path, fmt.Errorf("manifest: missing version")
	}
	return &m, path, nil
}

// CheckManifest re-hashes every file the manifest names and returns one
// line per discrepancy. An empty result means the archive matches.
func CheckManifest(dir string, m *Manifest) []string {
	var problems []string
	for _, entry := range m.Files {
		b, err := os.ReadFile(filepath.Join(dir, entry.Path))
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", entry.Path, err))
			continue
		}
		sum := sha256.Sum256(b)
		if got := hex.EncodeToString(sum[:]); got != entry.SHA256 {
			problems = append(problems, fmt.Sprintf("%s: content changed since recording (sha256 %s, recorded %s)", entry.Path, got[:12], entry.SHA256[:12]))
		}
	}
	return problems
}
