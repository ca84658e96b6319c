package transform

import (
	"fmt"
	"path/filepath"
	"strings"

	"omop2neo4j/pkg/errors"
)

// SynthesizeCommand builds the neo4j-admin invocation for a completed run.
// It is pure: nothing is executed, the operator runs the command against a
// stopped database. File paths in the command are relative to the import
// directory, which the operator mounts at the importer's working directory.
//
// The array delimiter must match the one used when the synonyms column was
// written, and id groups ride inside each file's header cells, so a file
// set whose manifest declares multiple node groups is only importable when
// every edge file carries explicit start and end groups.
func SynthesizeCommand(m *Manifest, databaseName string) (string, error) {
	if len(m.Files) == 0 {
		return "", fmt.Errorf("manifest has no files, nothing to import")
	}

	multipleGroups := len(m.NodeGroups()) > 1
	parts := []string{
		"neo4j-admin database import full \\",
		fmt.Sprintf("  --delimiter='%s' \\", m.Delimiter),
		fmt.Sprintf("  --array-delimiter='%s' \\", m.ArrayDelimiter),
		"  --multiline-fields=true \\",
	}

	for _, f := range m.Files {
		if f.Kind != KindNode {
			continue
		}
		if len(f.Groups) != 1 {
			return "", errors.NewIdentityGroup(f.Path, "node file without a single id group")
		}
		parts = append(parts, fmt.Sprintf("  --nodes='%s' \\", filepath.Base(f.Path)))
	}
	for _, f := range m.Files {
		if f.Kind != KindEdge {
			continue
		}
		if multipleGroups && len(f.Groups) != 2 {
			return "", errors.NewIdentityGroup(f.Path,
				"edge file without explicit endpoint groups in a multi-group import")
		}
		parts = append(parts, fmt.Sprintf("  --relationships='%s' \\", filepath.Base(f.Path)))
	}

	parts = append(parts, "  "+databaseName)
	return strings.Join(parts, "\n"), nil
}
