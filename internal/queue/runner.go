package queue

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/yoyole123/gdrive-transcriber/internal/storage"
)

// RecordingLister lists the recordings waiting in the source Drive folder
type RecordingLister interface {
	ListRecordings(ctx context.Context) ([]storage.RecordingFile, error)
}

// Runner scans the source Drive folder and enqueues a job per pending
// recording. A recording stays listed on Drive until its job moves it to the
// processed folder, so the runner tracks in-flight file ids and skips them on
// later scans; otherwise a slow transcription would be enqueued again by the
// next scheduled run.
type Runner struct {
	drive RecordingLister
	pool  *WorkerPool

	mu       sync.Mutex
	scanning bool
	inFlight map[string]struct{}
}

// NewRunner creates a Runner and hooks it into the pool's job completions so
// finished files become eligible for listing again.
func NewRunner(drive RecordingLister, pool *WorkerPool) *Runner {
	r := &Runner{
		drive:    drive,
		pool:     pool,
		inFlight: make(map[string]struct{}),
	}
	pool.onDone = r.release
	return r
}

// Run lists pending recordings and enqueues one job per file not already
// queued or processing, returning the enqueued jobs. Concurrent scans are
// collapsed: a second Run while one is in progress returns immediately with
// no jobs.
func (r *Runner) Run(ctx context.Context, trigger string) ([]*Job, error) {
	r.mu.Lock()
	if r.scanning {
		r.mu.Unlock()
		log.Printf("Scan already in progress, skipping %s trigger", trigger)
		return nil, nil
	}
	r.scanning = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.scanning = false
		r.mu.Unlock()
	}()

	files, err := r.drive.ListRecordings(ctx)
	if err != nil {
		return nil, err
	}

	jobs := make([]*Job, 0, len(files))
	for _, f := range files {
		if !r.claim(f.ID) {
			log.Printf("Skipping %s: already queued or processing", f.Name)
			continue
		}
		job := NewJob(uuid.New().String(), f.ID, f.Name, trigger, f.CreatedTime)
		r.pool.EnqueueJob(job)
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		log.Println("No pending recordings found")
		return nil, nil
	}
	log.Printf("Run enqueued %d recordings (trigger: %s)", len(jobs), trigger)
	return jobs, nil
}

// claim marks a Drive file as in flight; false means it already is
func (r *Runner) claim(fileID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[fileID]; busy {
		return false
	}
	r.inFlight[fileID] = struct{}{}
	return true
}

// release clears a file's in-flight mark once its job has finished
func (r *Runner) release(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, job.FileID)
}
