package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	RunPod     RunPodConfig     `yaml:"runpod"`
	Segmenting SegmentingConfig `yaml:"segmenting"`
	Drive      DriveConfig      `yaml:"drive"`
	Email      EmailConfig      `yaml:"email"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Storage    StorageConfig    `yaml:"storage"`
	Cleanup    CleanupConfig    `yaml:"cleanup"`
	Workers    WorkersConfig    `yaml:"workers"`
}

// ServerConfig contains the HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LanguageConfig maps a language code to its transcription model
type LanguageConfig struct {
	Model string `yaml:"model"`
}

// RunPodConfig contains the remote transcription endpoint settings
type RunPodConfig struct {
	APIKey     string                    `yaml:"api_key"`
	EndpointID string                    `yaml:"endpoint_id"`
	Language   string                    `yaml:"language"`
	Languages  map[string]LanguageConfig `yaml:"languages"`
}

// SegmentingConfig contains segmentation and scheduling knobs
type SegmentingConfig struct {
	SegmentSeconds  int   `yaml:"segment_seconds"`
	MaxConcurrency  int   `yaml:"max_concurrency"`
	MaxRetries      int   `yaml:"max_retries"`
	MaxPayloadSize  int64 `yaml:"max_payload_size"`
	MaxSplitDepth   int   `yaml:"max_split_depth"`
	MaxSegmentSize  int64 `yaml:"max_segment_size"`
	RateLimitPerMin int   `yaml:"rate_limit_per_min"`
}

// DriveConfig contains Google Drive access settings
type DriveConfig struct {
	CredentialsFile    string `yaml:"credentials_file"`
	TokenFile          string `yaml:"token_file"`
	ServiceAccountFile string `yaml:"service_account_file"`
	FolderID           string `yaml:"folder_id"`
}

// EmailConfig contains SMTP delivery settings
type EmailConfig struct {
	SMTPServer  string `yaml:"smtp_server"`
	SMTPPort    int    `yaml:"smtp_port"`
	SenderEmail string `yaml:"sender_email"`
	AppPassword string `yaml:"app_password"`
	To          string `yaml:"to"`
}

// ScheduleConfig gates when automatic runs may execute
type ScheduleConfig struct {
	Enabled         bool   `yaml:"enabled"`
	StartHour       int    `yaml:"start_hour"`
	EndHour         int    `yaml:"end_hour"`
	Days            string `yaml:"days"`
	Timezone        string `yaml:"timezone"`
	IntervalMinutes int    `yaml:"interval_minutes"`
}

// StorageConfig contains filesystem and database paths
type StorageConfig struct {
	TempDir   string `yaml:"temp_dir"`
	OutputDir string `yaml:"output_dir"`
	Database  string `yaml:"database"`
}

// CleanupConfig controls removal of aged work directories
type CleanupConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
	MaxAgeHours     int `yaml:"max_age_hours"`
}

// WorkersConfig controls the file-processing worker pool
type WorkersConfig struct {
	Count int `yaml:"count"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyDefaults fills in zero-valued fields with sensible defaults
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.RunPod.Language == "" {
		c.RunPod.Language = "he"
	}
	if c.Segmenting.SegmentSeconds == 0 {
		c.Segmenting.SegmentSeconds = 600
	}
	if c.Segmenting.MaxConcurrency == 0 {
		c.Segmenting.MaxConcurrency = 2
	}
	if c.Segmenting.MaxPayloadSize == 0 {
		c.Segmenting.MaxPayloadSize = 10 * 1024 * 1024
	}
	if c.Segmenting.MaxSplitDepth == 0 {
		c.Segmenting.MaxSplitDepth = 4
	}
	if c.Segmenting.MaxSegmentSize == 0 {
		c.Segmenting.MaxSegmentSize = 8 * 1024 * 1024
	}
	if c.Email.SMTPServer == "" {
		c.Email.SMTPServer = "smtp.gmail.com"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 465
	}
	if c.Schedule.StartHour == 0 && c.Schedule.EndHour == 0 {
		c.Schedule.StartHour = 8
		c.Schedule.EndHour = 22
	}
	if c.Schedule.Days == "" {
		c.Schedule.Days = "SUN-SAT"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "UTC"
	}
	if c.Schedule.IntervalMinutes == 0 {
		c.Schedule.IntervalMinutes = 30
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "temp"
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "outputs"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "transcripts.db"
	}
	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 60
	}
	if c.Cleanup.MaxAgeHours == 0 {
		c.Cleanup.MaxAgeHours = 24
	}
	if c.Workers.Count == 0 {
		c.Workers.Count = 1
	}
}

// Validate checks the configuration for inconsistent values
func (c *Config) Validate() error {
	if c.Segmenting.MaxConcurrency < 1 {
		return fmt.Errorf("segmenting.max_concurrency must be at least 1, got %d", c.Segmenting.MaxConcurrency)
	}
	if c.Segmenting.MaxRetries < 0 {
		return fmt.Errorf("segmenting.max_retries must not be negative, got %d", c.Segmenting.MaxRetries)
	}
	if c.Segmenting.MaxSplitDepth < 0 {
		return fmt.Errorf("segmenting.max_split_depth must not be negative, got %d", c.Segmenting.MaxSplitDepth)
	}
	if c.Schedule.StartHour < 0 || c.Schedule.StartHour > 23 {
		return fmt.Errorf("schedule.start_hour must be between 0 and 23, got %d", c.Schedule.StartHour)
	}
	if c.Schedule.EndHour < 0 || c.Schedule.EndHour > 23 {
		return fmt.Errorf("schedule.end_hour must be between 0 and 23, got %d", c.Schedule.EndHour)
	}
	if c.RunPod.Language != "" && len(c.RunPod.Languages) > 0 {
		if _, ok := c.RunPod.Languages[c.RunPod.Language]; !ok {
			return fmt.Errorf("runpod.language %q not present in runpod.languages", c.RunPod.Language)
		}
	}
	return nil
}

// Model returns the transcription model configured for the active language
func (c *Config) Model() (string, error) {
	lang, ok := c.RunPod.Languages[c.RunPod.Language]
	if !ok {
		return "", fmt.Errorf("language %q not found in config", c.RunPod.Language)
	}
	if lang.Model == "" {
		return "", fmt.Errorf("model not configured for language %q", c.RunPod.Language)
	}
	return lang.Model, nil
}
