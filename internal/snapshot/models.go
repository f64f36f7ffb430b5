// Package snapshot captures point-in-time images of the scenario
// corpus: every outcome document content-addressed, with enough
// metadata to diff two runs and answer "what changed since the tag
// we shipped".
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/fingerprint"
)

// Snapshot represents a point-in-time capture of corpus outcomes.
type Snapshot struct {
	ID          string            `json:"id"`
	ParentID    string            `json:"parent_id,omitempty"`
	Tag         string            `json:"tag,omitempty"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Origin      string            `json:"origin"` // cli, workflow, server
	ContentHash string            `json:"content_hash"`
	PassRate    float64           `json:"pass_rate"`
	Status      string            `json:"status"` // success, partial, failed
	Scenarios   []ScenarioInfo    `json:"scenarios"`
	Manifest    []OutcomeEntry    `json:"manifest"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ScenarioInfo captures per-scenario facts for provenance tracking.
type ScenarioInfo struct {
	Name       string `json:"name"`
	Pass       bool   `json:"pass"`
	GraphHash  string `json:"graph_hash,omitempty"`
	EventCount int    `json:"event_count"`
	OrderLen   int    `json:"order_len"`
	Error      string `json:"error,omitempty"`
}

// OutcomeEntry records one outcome document with its content hash.
type OutcomeEntry struct {
	Scenario    string `json:"scenario"`
	ContentHash string `json:"content_hash"`
	Size        int    `json:"size"`
}

// Document is an outcome rendered for storage.
type Document struct {
	Scenario string
	Content  []byte
}

// Index is a lightweight listing of all snapshots for fast lookup.
type Index struct {
	Snapshots []Summary `json:"snapshots"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the minimal info for listing snapshots.
type Summary struct {
	ID            string    `json:"id"`
	ParentID      string    `json:"parent_id,omitempty"`
	Tag           string    `json:"tag,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Origin        string    `json:"origin"`
	PassRate      float64   `json:"pass_rate"`
	Status        string    `json:"status"`
	ScenarioCount int       `json:"scenario_count"`
}

// Capture executes every registered scenario and renders one outcome
// document per scenario. A scenario that fails to execute still gets a
// document, holding the error, so diffs can surface recoveries.
func Capture(reg *catalog.Registry) ([]Document, []ScenarioInfo, error) {
	var docs []Document
	var infos []ScenarioInfo

	for _, s := range reg.All() {
		info := ScenarioInfo{Name: s.Name}

		if g, err := s.Graph(); err == nil {
			info.GraphHash = fingerprint.GraphHash(g)
		}

		out, err := catalog.Execute(s)
		if err != nil {
			info.Error = err.Error()
			content, merr := json.MarshalIndent(map[string]string{
				"scenario": s.Name,
				"error":    err.Error(),
			}, "", "  ")
			if merr != nil {
				return nil, nil, merr
			}
			docs = append(docs, Document{Scenario: s.Name, Content: content})
			infos = append(infos, info)
			continue
		}

		info.Pass = true
		info.EventCount = len(out.Trace)
		info.OrderLen = len(out.Order)

		content, merr := json.MarshalIndent(out, "", "  ")
		if merr != nil {
			return nil, nil, merr
		}
		docs = append(docs, Document{Scenario: s.Name, Content: content})
		infos = append(infos, info)
	}

	return docs, infos, nil
}

// NewSnapshot assembles a snapshot from captured documents.
func NewSnapshot(origin string, docs []Document, infos []ScenarioInfo) *Snapshot {
	snap := &Snapshot{
		CreatedAt: time.Now(),
		Origin:    origin,
		Scenarios: infos,
		Metadata:  make(map[string]string),
	}

	for _, d := range docs {
		snap.Manifest = append(snap.Manifest, OutcomeEntry{
			Scenario:    d.Scenario,
			ContentHash: ContentHash(d.Content),
			Size:        len(d.Content),
		})
	}

	passed := 0
	for _, info := range infos {
		if info.Pass {
			passed++
		}
	}
	switch {
	case len(infos) == 0 || passed == len(infos):
		snap.Status = "success"
	case passed == 0:
		snap.Status = "failed"
	default:
		snap.Status = "partial"
	}
	if len(infos) > 0 {
		snap.PassRate = float64(passed) / float64(len(infos))
	}

	snap.ContentHash = computeManifestHash(snap.Manifest)
	snap.ID = generateSnapshotID(snap)

	return snap
}

// ContentHash computes SHA-256 of content.
func ContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

func computeManifestHash(entries []OutcomeEntry) string {
	h := sha256.New()
	for _, e := range entries {
		h.Write([]byte(e.Scenario))
		h.Write([]byte(e.ContentHash))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func generateSnapshotID(snap *Snapshot) string {
	data, _ := json.Marshal(struct {
		Time    int64  `json:"t"`
		Content string `json:"c"`
	}{
		Time:    snap.CreatedAt.UnixNano(),
		Content: snap.ContentHash,
	})
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:8]) // Short 16-char hex ID
}

// Summary returns a lightweight summary of this snapshot.
func (s *Snapshot) Summary() Summary {
	return Summary{
		ID:            s.ID,
		ParentID:      s.ParentID,
		Tag:           s.Tag,
		CreatedAt:     s.CreatedAt,
		Origin:        s.Origin,
		PassRate:      s.PassRate,
		Status:        s.Status,
		ScenarioCount: len(s.Manifest),
	}
}
