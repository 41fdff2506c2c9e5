package transcriber

import (
	"context"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/yoyole123/gdrive-transcriber/internal/segment"
)

// TranscribeSegments transcribes every seg###.mp3 file in workDir and returns
// the assembled transcript plus the list of top-level segment names processed.
//
// All top-level segments are dispatched concurrently; the weighted semaphore
// inside callModel enforces the in-flight ceiling, so a finished call
// immediately frees a slot for the next. Results that come back flagged
// split-required are routed through the recursive splitter after the top-level
// pass; its remote calls acquire the same semaphore. Finally all leaves are
// sorted by start offset and joined with a blank line.
func (t *Transcriber) TranscribeSegments(ctx context.Context, workDir string) (string, []string, error) {
	names, err := segment.List(workDir)
	if err != nil {
		return "", nil, err
	}
	if len(names) == 0 {
		return "", []string{}, nil
	}

	// Precompute each segment's time range by accumulating probed durations
	// over the sorted list, so ranges are stable regardless of completion
	// order under concurrency.
	starts := make([]float64, len(names))
	ends := make([]float64, len(names))
	cursor := 0.0
	for i, name := range names {
		d, err := t.media.ProbeDuration(ctx, filepath.Join(workDir, name))
		if err != nil || d <= 0 {
			d = float64(t.opts.SegmentSeconds)
		}
		starts[i] = cursor
		cursor += d
		ends[i] = cursor
	}

	base := make([]Result, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		job := Job{
			Path:  filepath.Join(workDir, name),
			Start: starts[i],
			End:   ends[i],
			Index: i,
		}
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			base[i] = t.transcribeSegment(ctx, job, t.opts.MaxRetries)
		}(i, job)
	}
	wg.Wait()

	var leaves []Result
	for _, res := range base {
		if res.SplitRequired {
			log.Printf("Starting recursive split for segment %d, range %.2f-%.2fs", res.Index, res.Start, res.End)
			leaves = append(leaves, t.splitAndTranscribe(ctx, Job{
				Path:  res.Path,
				Start: res.Start,
				End:   res.End,
				Index: res.Index,
			})...)
		} else {
			leaves = append(leaves, res)
		}
	}

	sort.SliceStable(leaves, func(i, j int) bool {
		return leaves[i].Start < leaves[j].Start
	})

	texts := make([]string, len(leaves))
	for i, leaf := range leaves {
		texts[i] = leaf.Text
	}
	return strings.Join(texts, "\n\n"), names, nil
}
