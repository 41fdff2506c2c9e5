package transcriber

import (
	"fmt"
	"math"
	"strings"
)

// Job is one unit of transcription work: an audio slice and its position in
// the original recording's timeline. Depth is 0 for top-level segments and
// increases by one per bisection.
type Job struct {
	Path  string
	Start float64
	End   float64
	Depth int
	Index int
}

// Result is the outcome of attempting one Job. Exactly one of Text or
// SplitRequired is meaningful: Text carries the transcript (or a failure
// placeholder), SplitRequired routes the job into the recursive splitter.
type Result struct {
	Index         int
	Text          string
	SplitRequired bool
	Path          string
	Start         float64
	End           float64
}

const placeholderPrefix = "[Transcription failed"

// placeholder builds the synthetic transcript text inserted in place of a
// segment that could not be transcribed.
func placeholder(start, end float64, reason string) string {
	if reason == "" {
		reason = "unknown"
	}
	return fmt.Sprintf("%s - %s - %s Reason: %s]", placeholderPrefix, formatTimestamp(start), formatTimestamp(end), reason)
}

// formatTimestamp renders seconds as HH:MM:SS
func formatTimestamp(seconds float64) string {
	total := int(math.Round(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// CountPlaceholders returns how many failure placeholders a transcript contains
func CountPlaceholders(transcript string) int {
	return strings.Count(transcript, placeholderPrefix)
}
