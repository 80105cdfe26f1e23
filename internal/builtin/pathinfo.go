package builtin

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	versionPattern = regexp.MustCompile(`(?i)^(.*)[._-]v(\d+)\.?([^.]+)?$`)
	framePattern   = regexp.MustCompile(`^(.*)\.(\d+)\.?([^.]+)$`)
)

// PublishName strips the version token from a file name so every version of
// a file publishes under the same name: "shot.v003.nk" becomes "shot.nk".
func PublishName(path string) string {
	base := filepath.Base(path)
	m := versionPattern.FindStringSubmatch(base)
	if m == nil {
		return base
	}
	if m[3] != "" {
		return m[1] + "." + m[3]
	}
	return m[1]
}

// VersionNumber extracts the version token from a file name.
func VersionNumber(path string) (int, bool) {
	m := versionPattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Extension returns the lowercased extension of path without the dot.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Sequence is a run of numbered frames found in one folder.
type Sequence struct {
	// Path uses a printf frame token, for example "beauty.%04d.exr".
	Path   string
	Frames []string
}

// FindSequences groups the numbered files directly inside folder into
// sequences. Subfolders and unnumbered files are ignored.
func FindSequences(folder string) ([]Sequence, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}
	byPath := map[string]*Sequence{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := framePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		name := fmt.Sprintf("%s.%%0%dd", m[1], len(m[2]))
		if m[3] != "" {
			name += "." + m[3]
		}
		seqPath := filepath.Join(folder, name)
		seq, ok := byPath[seqPath]
		if !ok {
			seq = &Sequence{Path: seqPath}
			byPath[seqPath] = seq
		}
		seq.Frames = append(seq.Frames, filepath.Join(folder, entry.Name()))
	}

	out := make([]Sequence, 0, len(byPath))
	for _, seq := range byPath {
		sort.Strings(seq.Frames)
		out = append(out, *seq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
