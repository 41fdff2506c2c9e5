package segment

import (
	"fmt"
	"os"
	"regexp"
	"sort"
)

// namePattern matches the zero-padded segment files produced by the splitter,
// e.g. seg000.mp3, seg001.mp3.
var namePattern = regexp.MustCompile(`^seg\d{3}\.mp3$`)

// OutPattern is the printf-style template the splitter writes segments with.
const OutPattern = "seg%03d.mp3"

// List returns the segment file names present in workDir, sorted by name.
// Sequential zero-padded names make lexical order chronological order.
func List(workDir string) ([]string, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read work dir %s: %w", workDir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if namePattern.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)
	return names, nil
}
