package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yoyole123/gdrive-transcriber/internal/cleanup"
	"github.com/yoyole123/gdrive-transcriber/internal/config"
	"github.com/yoyole123/gdrive-transcriber/internal/media"
	"github.com/yoyole123/gdrive-transcriber/internal/metrics"
	"github.com/yoyole123/gdrive-transcriber/internal/notify"
	"github.com/yoyole123/gdrive-transcriber/internal/queue"
	"github.com/yoyole123/gdrive-transcriber/internal/runpod"
	"github.com/yoyole123/gdrive-transcriber/internal/schedule"
	"github.com/yoyole123/gdrive-transcriber/internal/storage"
	"github.com/yoyole123/gdrive-transcriber/internal/transcriber"
	"github.com/yoyole123/gdrive-transcriber/internal/types"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ensure directories exist
	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
		subs:  make(map[chan string]struct{}),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	log.Println("Initializing components...")

	// Metrics registry
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// RunPod transcription model
	if cfg.RunPod.APIKey == "" || cfg.RunPod.EndpointID == "" {
		log.Fatalf("runpod.api_key and runpod.endpoint_id must be configured")
	}
	modelName, err := cfg.Model()
	if err != nil {
		log.Fatalf("Failed to resolve transcription model: %v", err)
	}
	log.Printf("Using model %q for language %q via RunPod endpoint %s",
		modelName, cfg.RunPod.Language, cfg.RunPod.EndpointID)
	runpodClient := runpod.New(cfg.RunPod.APIKey, cfg.RunPod.EndpointID, modelName)

	// Core transcriber
	mediaTools := media.NewTools()
	trans := transcriber.New(runpodClient, mediaTools, m, transcriber.Options{
		MaxConcurrency:    cfg.Segmenting.MaxConcurrency,
		MaxRetries:        cfg.Segmenting.MaxRetries,
		MaxPayloadSize:    cfg.Segmenting.MaxPayloadSize,
		MaxSplitDepth:     cfg.Segmenting.MaxSplitDepth,
		SegmentSeconds:    cfg.Segmenting.SegmentSeconds,
		RequestsPerMinute: cfg.Segmenting.RateLimitPerMin,
	})

	// Google Drive client
	driveClient, err := storage.NewDriveClient(context.Background(),
		cfg.Drive.ServiceAccountFile,
		cfg.Drive.CredentialsFile,
		cfg.Drive.TokenFile,
		cfg.Drive.FolderID,
	)
	if err != nil {
		log.Fatalf("Failed to initialize Google Drive client: %v", err)
	}

	// Local storage and database
	localStorage := storage.NewLocalStorage(cfg.Storage.OutputDir)
	db, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Email notifications
	emailer := notify.NewEmailer(cfg.Email)
	if !emailer.Configured() {
		log.Println("Email configuration incomplete - transcripts will not be emailed")
	}

	// Worker pool
	workerPool := queue.NewWorkerPool(cfg.Workers.Count, queue.Deps{
		Drive:        driveClient,
		Media:        mediaTools,
		Transcriber:  trans,
		Balance:      runpodClient,
		LocalStorage: localStorage,
		DB:           db,
		Emailer:      emailer,
		Metrics:      m,
	}, cfg.Storage.TempDir, cfg.Segmenting)
	workerPool.Start()

	runner := queue.NewRunner(driveClient, workerPool)

	// Scheduled runs
	window, err := schedule.NewWindow(cfg.Schedule)
	if err != nil {
		log.Fatalf("Failed to build schedule window: %v", err)
	}
	trigger := schedule.NewTrigger(window,
		time.Duration(cfg.Schedule.IntervalMinutes)*time.Minute,
		func() {
			if _, err := runner.Run(context.Background(), types.TriggerSchedule); err != nil {
				log.Printf("Scheduled run failed: %v", err)
			}
		})
	trigger.Start()
	defer trigger.Stop()

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/run", func(c *fiber.Ctx) error {
		jobs, err := runner.Run(c.Context(), types.TriggerManual)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		jobIDs := make([]string, len(jobs))
		for i, job := range jobs {
			jobIDs[i] = job.ID
		}
		return c.JSON(fiber.Map{
			"status":  "queued",
			"files":   len(jobs),
			"job_ids": jobIDs,
		})
	})

	app.Get("/transcripts", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		transcripts, err := db.ListTranscripts(limit)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(transcripts)
	})

	app.Get("/transcripts/:id/text", func(c *fiber.Ctx) error {
		jobID := c.Params("id")

		transcript, err := db.GetTranscript(jobID)
		if err != nil {
			return c.Status(404).JSON(fiber.Map{"error": "Transcript not found"})
		}

		localPath, ok := transcript["local_path"].(string)
		if !ok || localPath == "" {
			return c.Status(404).JSON(fiber.Map{"error": "Transcript file path not found"})
		}

		content, err := os.ReadFile(localPath)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "Failed to read transcript file"})
		}

		return c.SendString(string(content))
	})

	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// WebSocket live log tail
	app.Get("/ws/logs", websocket.New(func(c *websocket.Conn) {
		defer c.Close()

		ch := logBuffer.Subscribe()
		defer logBuffer.Unsubscribe(ch)

		for line := range ch {
			if err := c.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		}
	}))

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /run                  - Trigger a Drive processing run")
	log.Println("   GET  /transcripts          - List processed recordings")
	log.Println("   GET  /transcripts/:id/text - Get transcript text")
	log.Println("   GET  /logs                 - View server logs")
	log.Println("   GET  /ws/logs              - Live log stream")
	log.Println("   GET  /metrics              - Prometheus metrics")
	log.Println("   GET  /health               - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures logs in memory and fans new lines out to subscribers
type LogBuffer struct {
	lines []string
	subs  map[chan string]struct{}
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	line := string(p)
	lb.lines = append(lb.lines, line)

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	// Slow subscribers miss lines rather than block logging
	for ch := range lb.subs {
		select {
		case ch <- line:
		default:
		}
	}

	return len(p), nil
}

// GetLogs returns a copy of the buffered log lines
func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// Subscribe registers a channel receiving future log lines
func (lb *LogBuffer) Subscribe() chan string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	ch := make(chan string, 64)
	lb.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel
func (lb *LogBuffer) Unsubscribe(ch chan string) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if _, ok := lb.subs[ch]; ok {
		delete(lb.subs, ch)
		close(ch)
	}
}
