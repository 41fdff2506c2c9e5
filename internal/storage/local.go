package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yoyole123/gdrive-transcriber/internal/types"
)

// LocalStorage handles saving transcripts to the local filesystem
type LocalStorage struct {
	outputDir string
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{outputDir: outputDir}
}

// SaveTranscript saves the transcript and its metadata under a dated directory,
// returning the transcript file path. The attachment-friendly file name is
// <recording base name>_transcription.txt.
func (ls *LocalStorage) SaveTranscript(result *types.FileResult) (string, error) {
	t := result.ProcessedAt
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", t.Year()),
		fmt.Sprintf("%02d", t.Month()),
		fmt.Sprintf("%02d", t.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %w", err)
	}

	base := strings.TrimSuffix(result.FileName, filepath.Ext(result.FileName))
	txtPath := filepath.Join(dateDir, sanitizeFilename(base)+"_transcription.txt")
	metaPath := strings.TrimSuffix(txtPath, ".txt") + "_meta.json"

	if err := os.WriteFile(txtPath, []byte(result.Transcript), 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %w", err)
	}

	metadata := map[string]interface{}{
		"job_id":            result.JobID,
		"file_id":           result.FileID,
		"file_name":         result.FileName,
		"segment_count":     result.SegmentCount,
		"placeholder_count": result.Placeholders,
		"balance":           result.Balance,
		"created_at":        result.ProcessedAt,
	}
	metaJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to save metadata: %w", err)
	}

	return txtPath, nil
}

// sanitizeFilename replaces characters that are unsafe in file names
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	)
	result := replacer.Replace(name)
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
