package transcriber

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"
)

// transcribeSegment attempts to transcribe one job, retrying transient
// failures up to maxRetries extra times with linear backoff. A payload-size
// rejection short-circuits the retries and yields a split-required result.
// The returned result is always terminal for this job: transcript text, a
// failure placeholder, or the split signal.
func (t *Transcriber) transcribeSegment(ctx context.Context, job Job, maxRetries int) Result {
	attempts := maxRetries + 1
	var lastErr string

	for attempt := 1; attempt <= attempts; attempt++ {
		log.Printf("Transcribing segment %d attempt %d/%d: %s", job.Index, attempt, attempts, job.Path)
		if attempt > 1 {
			t.metrics.RemoteRetries.Inc()
		}

		text, err := t.callModel(ctx, job.Path)
		if err == nil {
			if text != "" {
				t.metrics.SegmentsCompleted.Inc()
				return Result{Index: job.Index, Text: text, Start: job.Start, End: job.End}
			}
			lastErr = "empty transcription"
		} else if IsPayloadSizeError(err) {
			log.Printf("Payload error detected for segment %d: %v. Marking for split.", job.Index, err)
			t.metrics.PayloadSplitSignals.Inc()
			return Result{Index: job.Index, SplitRequired: true, Path: job.Path, Start: job.Start, End: job.End}
		} else {
			lastErr = err.Error()
			log.Printf("Error transcribing segment %d attempt %d: %v", job.Index, attempt, err)
		}

		if attempt < attempts {
			if err := sleepContext(ctx, time.Duration(attempt)*t.backoffUnit); err != nil {
				lastErr = err.Error()
				break
			}
		}
	}

	t.metrics.Placeholders.Inc()
	t.metrics.SegmentsCompleted.Inc()
	return Result{Index: job.Index, Text: placeholder(job.Start, job.End, lastErr), Start: job.Start, End: job.End}
}

// callModel performs one remote transcription call under the concurrency gate
// and rate limiter, draining the chunk stream eagerly. The gate is released
// unconditionally when the call completes, success or not.
func (t *Transcriber) callModel(ctx context.Context, path string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer t.sem.Release(1)

	t.metrics.RemoteCallsInFlight.Inc()
	defer t.metrics.RemoteCallsInFlight.Dec()
	t.metrics.RemoteAttempts.Inc()

	stream, err := t.model.Transcribe(ctx, path, true)
	if err != nil {
		return "", err
	}

	var chunks []string
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		chunks = append(chunks, cleanInvisible(chunk))
	}

	return strings.TrimSpace(strings.Join(chunks, "\n")), nil
}

// sleepContext sleeps for d unless the context is cancelled first
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
