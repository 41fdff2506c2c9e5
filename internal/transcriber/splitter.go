package transcriber

import (
	"context"
	"log"
	"os"
)

// splitAndTranscribe resolves an oversized segment by repeatedly bisecting it
// in time. Each half is re-submitted through the segment transcriber; halves
// still over the cap recurse down to MaxSplitDepth. Leaves come back in
// chronological (left before right) order.
func (t *Transcriber) splitAndTranscribe(ctx context.Context, job Job) []Result {
	size := fileSize(job.Path)

	if size <= t.opts.MaxPayloadSize || job.Depth >= t.opts.MaxSplitDepth {
		// Depth exhausted and still too large: never spend a remote call on a
		// job known to be rejected.
		if size > t.opts.MaxPayloadSize {
			t.metrics.Placeholders.Inc()
			return []Result{t.branchPlaceholder(job, "payload-too-large-after-splits")}
		}

		// Under the cap: one attempt, no extra retries. A second payload-size
		// signal here is terminal rather than another split round.
		res := t.transcribeSegment(ctx, job, 0)
		if res.SplitRequired {
			t.metrics.Placeholders.Inc()
			res = t.branchPlaceholder(job, "payload-error-persistent")
		}
		return []Result{res}
	}

	dur, err := t.media.ProbeDuration(ctx, job.Path)
	if err != nil || dur <= 0 {
		dur = job.End - job.Start
	}
	if dur <= 0 {
		dur = 1.0
	}
	half := dur / 2.0

	leftPath := job.Path + "_partL.mp3"
	rightPath := job.Path + "_partR.mp3"

	if err := t.media.EncodeSlice(ctx, job.Path, leftPath, 0, half); err != nil {
		log.Printf("Slice encoding failed for segment %d at depth %d: %v", job.Index, job.Depth, err)
		t.metrics.Placeholders.Inc()
		return []Result{t.branchPlaceholder(job, err.Error())}
	}
	if err := t.media.EncodeSlice(ctx, job.Path, rightPath, half, dur-half); err != nil {
		log.Printf("Slice encoding failed for segment %d at depth %d: %v", job.Index, job.Depth, err)
		t.metrics.Placeholders.Inc()
		return []Result{t.branchPlaceholder(job, err.Error())}
	}

	left := t.splitAndTranscribe(ctx, Job{
		Path:  leftPath,
		Start: job.Start,
		End:   job.Start + half,
		Depth: job.Depth + 1,
		Index: job.Index,
	})
	right := t.splitAndTranscribe(ctx, Job{
		Path:  rightPath,
		Start: job.Start + half,
		End:   job.End,
		Depth: job.Depth + 1,
		Index: job.Index,
	})

	return append(left, right...)
}

// branchPlaceholder builds a terminal placeholder leaf covering the job's range
func (t *Transcriber) branchPlaceholder(job Job, reason string) Result {
	t.metrics.SegmentsCompleted.Inc()
	return Result{
		Index: job.Index,
		Text:  placeholder(job.Start, job.End, reason),
		Start: job.Start,
		End:   job.End,
	}
}

// fileSize returns the size of path in bytes, 0 when it cannot be read
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
