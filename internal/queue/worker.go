package queue

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yoyole123/gdrive-transcriber/internal/config"
	"github.com/yoyole123/gdrive-transcriber/internal/media"
	"github.com/yoyole123/gdrive-transcriber/internal/metrics"
	"github.com/yoyole123/gdrive-transcriber/internal/notify"
	"github.com/yoyole123/gdrive-transcriber/internal/runpod"
	"github.com/yoyole123/gdrive-transcriber/internal/segment"
	"github.com/yoyole123/gdrive-transcriber/internal/storage"
	"github.com/yoyole123/gdrive-transcriber/internal/transcriber"
	"github.com/yoyole123/gdrive-transcriber/internal/types"
)

// BalanceFetcher reports the remote account's remaining credit
type BalanceFetcher interface {
	FetchBalance(ctx context.Context) (*runpod.Balance, error)
}

// Deps bundles the collaborators the worker pool drives per job
type Deps struct {
	Drive        *storage.DriveClient
	Media        *media.Tools
	Transcriber  *transcriber.Transcriber
	Balance      BalanceFetcher
	LocalStorage *storage.LocalStorage
	DB           *storage.MetadataDB
	Emailer      *notify.Emailer
	Metrics      *metrics.Metrics
}

// WorkerPool manages a pool of workers processing recording jobs
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	deps        Deps
	tempDir     string
	segmenting  config.SegmentingConfig

	// onDone fires after a job finishes, whatever its outcome
	onDone func(*Job)
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workerCount int, deps Deps, tempDir string, segmenting config.SegmentingConfig) *WorkerPool {
	return &WorkerPool{
		jobQueue:    make(chan *Job, 100),
		workerCount: workerCount,
		deps:        deps,
		tempDir:     tempDir,
		segmenting:  segmenting,
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		go wp.worker(i)
	}
}

// EnqueueJob adds a job to the queue
func (wp *WorkerPool) EnqueueJob(job *Job) {
	job.Status = types.StatusQueued
	wp.jobQueue <- job
	log.Printf("Job %s enqueued (file: %s, trigger: %s)", job.ID, job.FileName, job.Trigger)
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	log.Printf("Worker %d started", id)

	for job := range wp.jobQueue {
		// Panic recovery
		func() {
			defer wp.notifyDone(job)
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
						id, job.ID, r, string(debug.Stack()))
					job.Status = types.StatusFailed
					job.Error = fmt.Errorf("worker panic: %v", r)
					wp.deps.Metrics.FilesFailed.Inc()
				}
			}()

			wp.processJob(id, job)
		}()
	}
}

// notifyDone reports a finished job to the registered listener
func (wp *WorkerPool) notifyDone(job *Job) {
	if wp.onDone != nil {
		wp.onDone(job)
	}
}

// processJob handles one recording end to end: download, convert, segment,
// transcribe, store, email, archive. A failure at any step fails only this
// job; other queued recordings proceed.
func (wp *WorkerPool) processJob(workerID int, job *Job) {
	log.Printf("Worker %d: Processing job %s (%s)", workerID, job.ID, job.FileName)
	job.Status = types.StatusProcessing
	ctx := context.Background()
	started := time.Now()

	workDir := filepath.Join(wp.tempDir, job.ID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		wp.failJob(workerID, job, fmt.Errorf("work dir creation failed: %w", err))
		return
	}
	defer wp.cleanupWorkDir(workDir)

	// Step 1: Download from Drive
	rawPath := filepath.Join(workDir, job.FileName)
	if err := wp.deps.Drive.Download(ctx, job.FileID, rawPath); err != nil {
		wp.failJob(workerID, job, fmt.Errorf("download failed: %w", err))
		return
	}

	// Step 2: Convert to mp3
	mp3Path := rawPath + ".mp3"
	if err := wp.deps.Media.ConvertToMP3(ctx, rawPath, mp3Path); err != nil {
		wp.failJob(workerID, job, fmt.Errorf("conversion failed: %w", err))
		return
	}

	// Step 3: Size-bounded segmentation
	outPattern := filepath.Join(workDir, segment.OutPattern)
	if err := wp.deps.Media.SegmentBySize(ctx, mp3Path, outPattern,
		wp.segmenting.MaxSegmentSize, wp.segmenting.SegmentSeconds); err != nil {
		wp.failJob(workerID, job, fmt.Errorf("segmentation failed: %w", err))
		return
	}

	// Step 4: Transcribe all segments
	transcript, segments, err := wp.deps.Transcriber.TranscribeSegments(ctx, workDir)
	if err != nil {
		wp.failJob(workerID, job, fmt.Errorf("transcription failed: %w", err))
		return
	}

	// Step 5: Balance snapshot (best effort)
	balance := "N/A"
	spendPerHr := "N/A"
	spendLimit := "N/A"
	if wp.deps.Balance != nil {
		if b, err := wp.deps.Balance.FetchBalance(ctx); err == nil {
			balance = fmt.Sprintf("%.2f", b.ClientBalance)
			spendPerHr = fmt.Sprintf("%.2f", b.CurrentSpendPerHr)
			spendLimit = fmt.Sprintf("%.2f", b.SpendLimit)
		} else {
			log.Printf("Worker %d: Balance fetch failed: %v", workerID, err)
		}
	}

	result := &types.FileResult{
		JobID:        job.ID,
		FileID:       job.FileID,
		FileName:     job.FileName,
		Transcript:   transcript,
		SegmentCount: len(segments),
		Placeholders: transcriber.CountPlaceholders(transcript),
		Balance:      balance,
		ProcessedAt:  time.Now(),
	}

	// Step 6: Save locally
	localPath, err := wp.deps.LocalStorage.SaveTranscript(result)
	if err != nil {
		wp.failJob(workerID, job, fmt.Errorf("local save failed: %w", err))
		return
	}
	result.LocalPath = localPath

	// Step 7: Email the transcript
	if wp.deps.Emailer != nil && wp.deps.Emailer.Configured() {
		subject, body := wp.composeEmail(job, result, spendPerHr, spendLimit)
		if err := wp.deps.Emailer.SendTranscript(subject, body, localPath); err != nil {
			log.Printf("Worker %d: Email delivery failed for job %s: %v", workerID, job.ID, err)
		} else {
			result.EmailSent = true
			wp.deps.Metrics.EmailsSent.Inc()
		}
	}

	// Step 8: Archive the original on Drive
	if err := wp.deps.Drive.MoveToProcessed(ctx, job.FileID); err != nil {
		log.Printf("Worker %d: WARNING - failed to move %s to processed: %v", workerID, job.FileID, err)
	}

	// Step 9: Record metadata
	if wp.deps.DB != nil {
		if err := wp.deps.DB.SaveResult(result); err != nil {
			log.Printf("Worker %d: Database save failed: %v", workerID, err)
		}
	}

	job.Status = types.StatusCompleted
	wp.deps.Metrics.FilesProcessed.Inc()
	wp.deps.Metrics.FileDuration.Observe(time.Since(started).Seconds())
	log.Printf("Worker %d: Job %s completed (%d segments, %d placeholders, local: %s)",
		workerID, job.ID, result.SegmentCount, result.Placeholders, localPath)
}

// composeEmail builds the notification subject and body
func (wp *WorkerPool) composeEmail(job *Job, result *types.FileResult, spendPerHr, spendLimit string) (string, string) {
	base := strings.TrimSuffix(job.FileName, filepath.Ext(job.FileName))
	subject := fmt.Sprintf("Transcription: %s (Balance: %s)", base, result.Balance)

	preview := result.Transcript
	if len(preview) > 5000 {
		// back up to a rune boundary so the cut never leaves a partial
		// UTF-8 sequence in the body
		cut := 5000
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut]
	}
	body := fmt.Sprintf(
		"Transcription for file %s (segments: %d)\n"+
			"Recorded: %s\n"+
			"RunPod Balance: %s | Spend/hr: %s | Limit: %s\n\n"+
			"%s\n\n"+
			"--\nRemaining RunPod balance after this transcription: %s",
		job.FileName, result.SegmentCount,
		job.FileCreated.Format("2006-01-02_15-04"),
		result.Balance, spendPerHr, spendLimit,
		preview, result.Balance)
	return subject, body
}

// failJob marks a job failed and logs the reason
func (wp *WorkerPool) failJob(workerID int, job *Job, err error) {
	log.Printf("Worker %d: Job %s failed: %v", workerID, job.ID, err)
	job.Status = types.StatusFailed
	job.Error = err
	wp.deps.Metrics.FilesFailed.Inc()
}

// cleanupWorkDir removes a job's working directory
func (wp *WorkerPool) cleanupWorkDir(workDir string) {
	if err := os.RemoveAll(workDir); err != nil {
		log.Printf("Failed to cleanup work dir %s: %v", workDir, err)
	}
}
