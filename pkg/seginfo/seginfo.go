// Package seginfo manages the naming convention of segment files.
//
// Filename format: prefix_NNNNN.seg
//
// Where:
//   - prefix: a configurable string identifying the store's files.
//   - NNNNN: the segment's zero-padded position. Position 0 is the newest
//     segment; higher positions are older.
//   - .seg: fixed file extension.
//
// Zero-padding keeps lexicographic order equal to positional order, so a
// plain sorted directory listing already yields segments newest first.
// Renaming a file to a new position is the only commit mechanism the engine
// has: rotation shifts every position up by one, and a merge deletes the
// oldest position outright.
package seginfo

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cinderdb/cinder/pkg/filesys"
)

const extension = ".seg"

// Name returns the file name for a segment at the given position.
// %05d keeps the names lexicographically ordered by position.
func Name(prefix string, position int) string {
	return fmt.Sprintf("%s_%05d%s", prefix, position, extension)
}

// ParsePosition extracts the position encoded in a segment file name.
func ParsePosition(fileName, prefix string) (int, error) {
	base := filepath.Base(fileName)
	if !strings.HasPrefix(base, prefix+"_") {
		return 0, fmt.Errorf("file name %q does not start with prefix %q", base, prefix)
	}
	core := strings.TrimSuffix(strings.TrimPrefix(base, prefix+"_"), extension)
	position, err := strconv.Atoi(core)
	if err != nil {
		return 0, fmt.Errorf("file name %q has no numeric position: %w", base, err)
	}
	return position, nil
}

// List returns the positions of all segment files in the directory, sorted
// ascending (newest first). Files matching the prefix pattern but carrying
// an unparsable position are reported as an error rather than skipped: a
// directory the engine cannot fully account for is not safe to open.
func List(dir, prefix string) ([]int, error) {
	pattern := filepath.Join(dir, prefix+"_*"+extension)
	matches, err := filesys.ReadDir(pattern)
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", pattern, err)
	}

	positions := make([]int, 0, len(matches))
	for _, match := range matches {
		position, err := ParsePosition(match, prefix)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}

	sort.Ints(positions)
	return positions, nil
}
