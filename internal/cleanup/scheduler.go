package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scheduler periodically removes aged per-recording work directories from the
// temp dir. Each run creates one work directory per Drive file; anything still
// around after maxAgeHours is debris from a crashed or abandoned run.
type Scheduler struct {
	tempDir         string
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(tempDir string, intervalMinutes, maxAgeHours int) *Scheduler {
	return &Scheduler{
		tempDir:         tempDir,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the cleanup scheduler
func (s *Scheduler) Start() {
	log.Println("Running initial work dir cleanup...")
	s.cleanOldWorkDirs()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.cleanOldWorkDirs()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %dm, max age: %dh)",
		s.intervalMinutes, s.maxAgeHours)
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// cleanOldWorkDirs removes work directories older than maxAgeHours
func (s *Scheduler) cleanOldWorkDirs() {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		log.Printf("Error reading temp dir during cleanup: %v", err)
		return
	}

	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour
	var removed int

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		age := now.Sub(info.ModTime())
		if age <= maxAge {
			continue
		}

		path := filepath.Join(s.tempDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("Failed to delete old work dir %s: %v", path, err)
			continue
		}
		removed++
		log.Printf("Deleted old work dir: %s (age: %s)", entry.Name(), age.Round(time.Hour))
	}

	if removed > 0 {
		log.Printf("Cleanup complete: %d work dirs removed", removed)
	}
}

// EnsureTempDirExists creates the temp directory if it doesn't exist
func EnsureTempDirExists(tempDir string) error {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return err
	}
	log.Printf("Temp directory ready: %s", tempDir)
	return nil
}
