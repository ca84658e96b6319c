package transform

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"omop2neo4j/pkg/errors"
)

// RecordKind distinguishes node files from edge files in the manifest.
type RecordKind string

const (
	KindNode RecordKind = "node"
	KindEdge RecordKind = "edge"
)

// FileEntry describes one emitted import file.
type FileEntry struct {
	Path string     `json:"path"`
	Kind RecordKind `json:"kind"`
	// Signature is the label-set or relationship-type of the file. Files
	// carrying per-row values record the column strategy instead.
	Signature string `json:"signature"`
	// Groups holds the id group of a node file, or the start and end groups
	// of an edge file, in that order.
	Groups []GroupID `json:"groups"`
	Rows   int64     `json:"rows"`
}

// Manifest records every file a run produced, with enough structure for the
// import-command synthesizer and for operators reading manifest.json.
type Manifest struct {
	RunID       string      `json:"run_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Delimiter   string      `json:"delimiter"`
	// ArrayDelimiter is the in-field separator used for array properties
	// (synonyms); the synthesized command must pass the same value.
	ArrayDelimiter string `json:"array_delimiter"`
	// LabelStrategy documents how node labels are encoded: this pipeline
	// always tags labels per row in a ":LABEL" column, so concepts with and
	// without the Standard label may share a file without being merged into
	// one label set.
	LabelStrategy string      `json:"label_strategy"`
	Files         []FileEntry `json:"files"`
}

const labelStrategyPerRow = "per-row :LABEL column"

func newManifest(runID, arrayDelimiter string) *Manifest {
	return &Manifest{
		RunID:          runID,
		GeneratedAt:    time.Now().UTC(),
		Delimiter:      ",",
		ArrayDelimiter: arrayDelimiter,
		LabelStrategy:  labelStrategyPerRow,
	}
}

// AddNodeFile records a node file emitted under a single id group.
func (m *Manifest) AddNodeFile(path, signature string, group GroupID, rows int64) {
	m.Files = append(m.Files, FileEntry{
		Path: path, Kind: KindNode, Signature: signature,
		Groups: []GroupID{group}, Rows: rows,
	})
}

// AddEdgeFile records an edge file with its start and end id groups.
func (m *Manifest) AddEdgeFile(path, signature string, start, end GroupID, rows int64) {
	m.Files = append(m.Files, FileEntry{
		Path: path, Kind: KindEdge, Signature: signature,
		Groups: []GroupID{start, end}, Rows: rows,
	})
}

// NodeGroups returns the distinct id groups declared by node files.
func (m *Manifest) NodeGroups() []GroupID {
	seen := make(map[GroupID]bool)
	var out []GroupID
	for _, f := range m.Files {
		if f.Kind != KindNode {
			continue
		}
		for _, g := range f.Groups {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}

// Validate cross-checks the manifest against the coordinator before any
// import command is synthesized: every file must declare its groups, node
// groups must be bound, and every edge endpoint group must belong to some
// node file.
func (m *Manifest) Validate(c *Coordinator) error {
	nodeGroups := make(map[GroupID]bool)
	for _, f := range m.Files {
		if f.Kind == KindNode {
			if len(f.Groups) != 1 {
				return errors.NewIdentityGroup(f.Path, "node file must declare exactly one id group")
			}
			if !c.HasGroup(f.Groups[0]) {
				return errors.NewIdentityGroup(string(f.Groups[0]),
					"node file "+f.Path+" declares a group the coordinator never bound")
			}
			nodeGroups[f.Groups[0]] = true
		}
	}
	for _, f := range m.Files {
		if f.Kind != KindEdge {
			continue
		}
		if len(f.Groups) != 2 {
			return errors.NewIdentityGroup(f.Path, "edge file must declare start and end id groups")
		}
		for _, g := range f.Groups {
			if !nodeGroups[g] {
				return errors.NewIdentityGroup(string(g),
					"edge file "+f.Path+" references a group with no node file")
			}
		}
	}
	return nil
}

// Write persists the manifest as JSON next to the import files.
func (m *Manifest) Write(dir string) (string, error) {
	path := filepath.Join(dir, "manifest.json")
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
