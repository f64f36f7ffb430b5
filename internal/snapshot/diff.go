package snapshot

import (
	"fmt"
	"sort"
	"strings"
)

// DiffType indicates the kind of change.
type DiffType string

const (
	DiffAdded    DiffType = "added"
	DiffRemoved  DiffType = "removed"
	DiffModified DiffType = "modified"
)

// SnapshotDiff represents the complete diff between two snapshots.
type SnapshotDiff struct {
	OldID         string        `json:"old_id"`
	NewID         string        `json:"new_id"`
	OldTag        string        `json:"old_tag,omitempty"`
	NewTag        string        `json:"new_tag,omitempty"`
	PassRateDelta float64       `json:"pass_rate_delta"`
	OutcomeDiffs  []OutcomeDiff `json:"outcome_diffs"`
	ScenarioDiffs []ScenarioDiff `json:"scenario_diffs"`
	Summary       DiffSummary   `json:"summary"`
}

// OutcomeDiff represents a change to a single outcome document.
type OutcomeDiff struct {
	Scenario     string     `json:"scenario"`
	Type         DiffType   `json:"type"`
	OldHash      string     `json:"old_hash,omitempty"`
	NewHash      string     `json:"new_hash,omitempty"`
	OldSize      int        `json:"old_size,omitempty"`
	NewSize      int        `json:"new_size,omitempty"`
	SizeDelta    int        `json:"size_delta"`
	HunkCount    int        `json:"hunk_count,omitempty"`
	LinesAdded   int        `json:"lines_added,omitempty"`
	LinesRemoved int        `json:"lines_removed,omitempty"`
	Hunks        []DiffHunk `json:"hunks,omitempty"`
}

// DiffHunk represents a contiguous block of changes in a document.
type DiffHunk struct {
	OldStart int        `json:"old_start"`
	OldCount int        `json:"old_count"`
	NewStart int        `json:"new_start"`
	NewCount int        `json:"new_count"`
	Lines    []DiffLine `json:"lines"`
}

// DiffLine is a single line in a diff hunk.
type DiffLine struct {
	Type    string `json:"type"` // "context", "add", "remove"
	Content string `json:"content"`
	OldNum  int    `json:"old_num,omitempty"`
	NewNum  int    `json:"new_num,omitempty"`
}

// ScenarioDiff captures how a scenario's result moved between two
// snapshots.
type ScenarioDiff struct {
	Name            string `json:"name"`
	PassChanged     bool   `json:"pass_changed"`
	OldPass         bool   `json:"old_pass"`
	NewPass         bool   `json:"new_pass"`
	HashChanged     bool   `json:"hash_changed"`
	EventCountDelta int    `json:"event_count_delta"`
	OrderLenDelta   int    `json:"order_len_delta"`
}

// DiffSummary provides aggregate stats about the diff.
type DiffSummary struct {
	ScenariosAdded    int  `json:"scenarios_added"`
	ScenariosRemoved  int  `json:"scenarios_removed"`
	ScenariosModified int  `json:"scenarios_modified"`
	TotalAdded        int  `json:"total_lines_added"`
	TotalRemoved      int  `json:"total_lines_removed"`
	Regressions       int  `json:"regressions"` // pass -> fail flips
	Recoveries        int  `json:"recoveries"`  // fail -> pass flips
	PassRateImproved  bool `json:"pass_rate_improved"`
}

// Diff computes the differences between two snapshots. When store is
// provided, modified outcomes also get line-level hunks.
func Diff(old, new *Snapshot, store *Store) (*SnapshotDiff, error) {
	d := &SnapshotDiff{
		OldID:         old.ID,
		NewID:         new.ID,
		OldTag:        old.Tag,
		NewTag:        new.Tag,
		PassRateDelta: new.PassRate - old.PassRate,
	}

	d.OutcomeDiffs = diffOutcomes(old.Manifest, new.Manifest)

	if store != nil {
		if err := enrichWithLineDiffs(d, old, new, store); err != nil {
			// Document-level diffs still stand without hunks.
			_ = err
		}
	}

	d.ScenarioDiffs = diffScenarios(old.Scenarios, new.Scenarios)
	d.Summary = computeSummary(d)

	return d, nil
}

func diffOutcomes(oldEntries, newEntries []OutcomeEntry) []OutcomeDiff {
	oldMap := make(map[string]OutcomeEntry, len(oldEntries))
	for _, e := range oldEntries {
		oldMap[e.Scenario] = e
	}
	newMap := make(map[string]OutcomeEntry, len(newEntries))
	for _, e := range newEntries {
		newMap[e.Scenario] = e
	}

	var diffs []OutcomeDiff

	for scenario, oldEntry := range oldMap {
		if newEntry, ok := newMap[scenario]; ok {
			if oldEntry.ContentHash != newEntry.ContentHash {
				diffs = append(diffs, OutcomeDiff{
					Scenario:  scenario,
					Type:      DiffModified,
					OldHash:   oldEntry.ContentHash,
					NewHash:   newEntry.ContentHash,
					OldSize:   oldEntry.Size,
					NewSize:   newEntry.Size,
					SizeDelta: newEntry.Size - oldEntry.Size,
				})
			}
		} else {
			diffs = append(diffs, OutcomeDiff{
				Scenario:  scenario,
				Type:      DiffRemoved,
				OldHash:   oldEntry.ContentHash,
				OldSize:   oldEntry.Size,
				SizeDelta: -oldEntry.Size,
			})
		}
	}

	for scenario, newEntry := range newMap {
		if _, ok := oldMap[scenario]; !ok {
			diffs = append(diffs, OutcomeDiff{
				Scenario:  scenario,
				Type:      DiffAdded,
				NewHash:   newEntry.ContentHash,
				NewSize:   newEntry.Size,
				SizeDelta: newEntry.Size,
			})
		}
	}

	sort.Slice(diffs, func(i, j int) bool {
		return diffs[i].Scenario < diffs[j].Scenario
	})

	return diffs
}

func enrichWithLineDiffs(d *SnapshotDiff, old, new *Snapshot, store *Store) error {
	oldDocs, err := store.LoadDocuments(old)
	if err != nil {
		return fmt.Errorf("load old documents: %w", err)
	}
	newDocs, err := store.LoadDocuments(new)
	if err != nil {
		return fmt.Errorf("load new documents: %w", err)
	}

	oldContents := make(map[string]string, len(oldDocs))
	for _, doc := range oldDocs {
		oldContents[doc.Scenario] = string(doc.Content)
	}
	newContents := make(map[string]string, len(newDocs))
	for _, doc := range newDocs {
		newContents[doc.Scenario] = string(doc.Content)
	}

	for i, od := range d.OutcomeDiffs {
		switch od.Type {
		case DiffModified:
			hunks := computeHunks(oldContents[od.Scenario], newContents[od.Scenario])
			d.OutcomeDiffs[i].Hunks = hunks
			d.OutcomeDiffs[i].HunkCount = len(hunks)
			for _, h := range hunks {
				for _, l := range h.Lines {
					switch l.Type {
					case "add":
						d.OutcomeDiffs[i].LinesAdded++
					case "remove":
						d.OutcomeDiffs[i].LinesRemoved++
					}
				}
			}
		case DiffAdded:
			d.OutcomeDiffs[i].LinesAdded = len(strings.Split(newContents[od.Scenario], "\n"))
		case DiffRemoved:
			d.OutcomeDiffs[i].LinesRemoved = len(strings.Split(oldContents[od.Scenario], "\n"))
		}
	}

	return nil
}

// computeHunks produces unified-diff style hunks from an LCS diff.
func computeHunks(oldText, newText string) []DiffHunk {
	oldLines := strings.Split(oldText, "\n")
	newLines := strings.Split(newText, "\n")

	lcs := longestCommonSubsequence(oldLines, newLines)
	rawDiff := buildRawDiff(oldLines, newLines, lcs)

	return groupIntoHunks(rawDiff, 3)
}

type rawDiffLine struct {
	typ     string // "context", "add", "remove"
	content string
	oldNum  int
	newNum  int
}

func longestCommonSubsequence(a, b []string) [][]int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] > dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}
	return dp
}

func buildRawDiff(oldLines, newLines []string, dp [][]int) []rawDiffLine {
	var result []rawDiffLine
	i, j := len(oldLines), len(newLines)

	for i > 0 || j > 0 {
		if i > 0 && j > 0 && oldLines[i-1] == newLines[j-1] {
			result = append(result, rawDiffLine{
				typ: "context", content: oldLines[i-1],
				oldNum: i, newNum: j,
			})
			i--
			j--
		} else if j > 0 && (i == 0 || dp[i][j-1] >= dp[i-1][j]) {
			result = append(result, rawDiffLine{
				typ: "add", content: newLines[j-1],
				newNum: j,
			})
			j--
		} else {
			result = append(result, rawDiffLine{
				typ: "remove", content: oldLines[i-1],
				oldNum: i,
			})
			i--
		}
	}

	// Built backwards, flip into order
	for left, right := 0, len(result)-1; left < right; left, right = left+1, right-1 {
		result[left], result[right] = result[right], result[left]
	}

	return result
}

func groupIntoHunks(rawDiff []rawDiffLine, contextLines int) []DiffHunk {
	if len(rawDiff) == 0 {
		return nil
	}

	type region struct{ start, end int }
	var regions []region

	for i, line := range rawDiff {
		if line.typ != "context" {
			if len(regions) == 0 || i > regions[len(regions)-1].end+contextLines*2 {
				regions = append(regions, region{start: i, end: i})
			} else {
				regions[len(regions)-1].end = i
			}
		}
	}

	var hunks []DiffHunk
	for _, r := range regions {
		start := r.start - contextLines
		if start < 0 {
			start = 0
		}
		end := r.end + contextLines + 1
		if end > len(rawDiff) {
			end = len(rawDiff)
		}

		hunk := DiffHunk{}
		for k := start; k < end; k++ {
			line := rawDiff[k]
			hunk.Lines = append(hunk.Lines, DiffLine{
				Type:    line.typ,
				Content: line.content,
				OldNum:  line.oldNum,
				NewNum:  line.newNum,
			})
		}

		if len(hunk.Lines) > 0 {
			for _, l := range hunk.Lines {
				if l.OldNum > 0 {
					if hunk.OldStart == 0 || l.OldNum < hunk.OldStart {
						hunk.OldStart = l.OldNum
					}
					hunk.OldCount++
				}
				if l.NewNum > 0 {
					if hunk.NewStart == 0 || l.NewNum < hunk.NewStart {
						hunk.NewStart = l.NewNum
					}
					hunk.NewCount++
				}
			}
			hunks = append(hunks, hunk)
		}
	}

	return hunks
}

func diffScenarios(oldInfos, newInfos []ScenarioInfo) []ScenarioDiff {
	oldMap := make(map[string]ScenarioInfo, len(oldInfos))
	for _, info := range oldInfos {
		oldMap[info.Name] = info
	}

	var diffs []ScenarioDiff
	for _, ni := range newInfos {
		sd := ScenarioDiff{Name: ni.Name, NewPass: ni.Pass}
		if oi, ok := oldMap[ni.Name]; ok {
			sd.OldPass = oi.Pass
			sd.PassChanged = ni.Pass != oi.Pass
			sd.HashChanged = ni.GraphHash != oi.GraphHash
			sd.EventCountDelta = ni.EventCount - oi.EventCount
			sd.OrderLenDelta = ni.OrderLen - oi.OrderLen
		} else {
			sd.PassChanged = true
			sd.EventCountDelta = ni.EventCount
			sd.OrderLenDelta = ni.OrderLen
		}
		diffs = append(diffs, sd)
	}

	return diffs
}

func computeSummary(d *SnapshotDiff) DiffSummary {
	s := DiffSummary{
		PassRateImproved: d.PassRateDelta > 0,
	}
	for _, od := range d.OutcomeDiffs {
		switch od.Type {
		case DiffAdded:
			s.ScenariosAdded++
		case DiffRemoved:
			s.ScenariosRemoved++
		case DiffModified:
			s.ScenariosModified++
		}
		s.TotalAdded += od.LinesAdded
		s.TotalRemoved += od.LinesRemoved
	}
	for _, sd := range d.ScenarioDiffs {
		if sd.PassChanged {
			if sd.NewPass {
				s.Recoveries++
			} else {
				s.Regressions++
			}
		}
	}
	return s
}

// FormatDiff returns a human-readable string representation of the diff.
func FormatDiff(d *SnapshotDiff) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Diff: %s -> %s\n", d.OldID, d.NewID))
	if d.OldTag != "" || d.NewTag != "" {
		sb.WriteString(fmt.Sprintf("Tags: %s -> %s\n", d.OldTag, d.NewTag))
	}
	sb.WriteString(fmt.Sprintf("Pass rate: %+.2f\n\n", d.PassRateDelta))

	sb.WriteString(fmt.Sprintf("Outcomes: +%d -%d ~%d\n",
		d.Summary.ScenariosAdded, d.Summary.ScenariosRemoved, d.Summary.ScenariosModified))
	sb.WriteString(fmt.Sprintf("Lines: +%d -%d\n", d.Summary.TotalAdded, d.Summary.TotalRemoved))
	if d.Summary.Regressions > 0 || d.Summary.Recoveries > 0 {
		sb.WriteString(fmt.Sprintf("Flips: %d regressed, %d recovered\n",
			d.Summary.Regressions, d.Summary.Recoveries))
	}
	sb.WriteString("\n")

	for _, od := range d.OutcomeDiffs {
		icon := "~"
		switch od.Type {
		case DiffAdded:
			icon = "+"
		case DiffRemoved:
			icon = "-"
		}
		sb.WriteString(fmt.Sprintf("  %s %s", icon, od.Scenario))
		if od.Type == DiffModified && od.HunkCount > 0 {
			sb.WriteString(fmt.Sprintf(" (+%d/-%d in %d hunks)", od.LinesAdded, od.LinesRemoved, od.HunkCount))
		}
		sb.WriteString("\n")
	}

	changed := false
	for _, sd := range d.ScenarioDiffs {
		if sd.PassChanged || sd.HashChanged {
			changed = true
			break
		}
	}
	if changed {
		sb.WriteString("\nScenarios:\n")
		for _, sd := range d.ScenarioDiffs {
			if !sd.PassChanged && !sd.HashChanged {
				continue
			}
			sb.WriteString(fmt.Sprintf("  %s:", sd.Name))
			if sd.PassChanged {
				sb.WriteString(fmt.Sprintf(" pass %v->%v", sd.OldPass, sd.NewPass))
			}
			if sd.HashChanged {
				sb.WriteString(" graph changed")
			}
			if sd.EventCountDelta != 0 {
				sb.WriteString(fmt.Sprintf(" events %+d", sd.EventCountDelta))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
