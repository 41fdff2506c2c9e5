package schedule

import (
	"log"
	"time"
)

// Trigger periodically fires a run when the scheduling window allows it
type Trigger struct {
	window   *Window
	interval time.Duration
	run      func()
	stopChan chan struct{}
}

// NewTrigger creates a trigger that calls run every interval while the window allows
func NewTrigger(window *Window, interval time.Duration, run func()) *Trigger {
	return &Trigger{
		window:   window,
		interval: interval,
		run:      run,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic trigger
func (t *Trigger) Start() {
	ticker := time.NewTicker(t.interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				if t.window.Allows(time.Now()) {
					t.run()
				} else {
					log.Println("Outside scheduling window, skipping run")
				}
			case <-t.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Schedule trigger started (interval: %s)", t.interval)
}

// Stop stops the trigger
func (t *Trigger) Stop() {
	close(t.stopChan)
	log.Println("Schedule trigger stopped")
}
