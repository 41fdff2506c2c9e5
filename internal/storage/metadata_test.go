package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/yoyole123/gdrive-transcriber/internal/types"
)

func newTestDB(t *testing.T) *MetadataDB {
	t.Helper()
	mdb, err := NewMetadataDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewMetadataDB: %v", err)
	}
	t.Cleanup(func() { mdb.Close() })
	return mdb
}

func sampleResult(jobID string, at time.Time) *types.FileResult {
	return &types.FileResult{
		JobID:        jobID,
		FileID:       "drive-" + jobID,
		FileName:     jobID + ".m4a",
		LocalPath:    "/outputs/" + jobID + ".txt",
		SegmentCount: 4,
		Placeholders: 1,
		Balance:      "9.75",
		EmailSent:    true,
		ProcessedAt:  at,
	}
}

func TestSaveAndGetTranscript(t *testing.T) {
	mdb := newTestDB(t)

	saved := sampleResult("job-1", time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC))
	if err := mdb.SaveResult(saved); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	got, err := mdb.GetTranscript("job-1")
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	if got["job_id"] != "job-1" || got["file_id"] != "drive-job-1" {
		t.Errorf("ids = %v / %v", got["job_id"], got["file_id"])
	}
	if got["local_path"] != "/outputs/job-1.txt" {
		t.Errorf("local_path = %v", got["local_path"])
	}
	if got["segment_count"] != 4 || got["placeholder_count"] != 1 {
		t.Errorf("counts = %v / %v", got["segment_count"], got["placeholder_count"])
	}
	if got["balance"] != "9.75" {
		t.Errorf("balance = %v", got["balance"])
	}
	if got["email_sent"] != true {
		t.Errorf("email_sent = %v", got["email_sent"])
	}
}

func TestGetTranscriptMissing(t *testing.T) {
	mdb := newTestDB(t)
	if _, err := mdb.GetTranscript("nope"); err == nil {
		t.Fatal("want error for unknown job id")
	}
}

func TestSaveResultDuplicateJobID(t *testing.T) {
	mdb := newTestDB(t)
	r := sampleResult("job-1", time.Now().UTC())
	if err := mdb.SaveResult(r); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if err := mdb.SaveResult(r); err == nil {
		t.Fatal("want unique constraint violation")
	}
}

func TestListTranscriptsNewestFirst(t *testing.T) {
	mdb := newTestDB(t)

	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := mdb.SaveResult(sampleResult(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveResult %s: %v", id, err)
		}
	}

	rows, err := mdb.ListTranscripts(2)
	if err != nil {
		t.Fatalf("ListTranscripts: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["job_id"] != "new" || rows[1]["job_id"] != "mid" {
		t.Errorf("order = %v, %v, want new, mid", rows[0]["job_id"], rows[1]["job_id"])
	}
}
