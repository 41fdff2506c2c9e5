package transcriber

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFileOfSize(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestSplitAndTranscribeBisectsOnce(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "seg000.mp3")
	writeFileOfSize(t, src, 200)

	model := &fakeModel{respond: func(_ int, path string) ([]string, error) {
		if strings.HasSuffix(path, "_partL.mp3") {
			return []string{"first"}, nil
		}
		return []string{"second"}, nil
	}}
	var encoded []string
	media := &fakeMedia{
		probe: func(string) (float64, error) { return 100, nil },
		encode: func(src, dst string, start, dur float64) error {
			encoded = append(encoded, fmt.Sprintf("%s %.0f+%.0f", filepath.Base(dst), start, dur))
			return os.WriteFile(dst, make([]byte, 50), 0644)
		},
	}
	tr := newTestTranscriber(model, media, Options{
		MaxConcurrency: 1,
		MaxPayloadSize: 100,
		MaxSplitDepth:  4,
	})

	leaves := tr.splitAndTranscribe(context.Background(), Job{Path: src, Start: 0, End: 100, Index: 0})
	if len(leaves) != 2 {
		t.Fatalf("leaves = %d, want 2", len(leaves))
	}
	if leaves[0].Text != "first" || leaves[1].Text != "second" {
		t.Errorf("leaf texts = %q, %q, want chronological halves", leaves[0].Text, leaves[1].Text)
	}
	if leaves[0].Start != 0 || leaves[0].End != 50 || leaves[1].Start != 50 || leaves[1].End != 100 {
		t.Errorf("leaf ranges = [%v-%v] [%v-%v], want [0-50] [50-100]",
			leaves[0].Start, leaves[0].End, leaves[1].Start, leaves[1].End)
	}
	wantEncodes := []string{"seg000.mp3_partL.mp3 0+50", "seg000.mp3_partR.mp3 50+50"}
	if len(encoded) != 2 || encoded[0] != wantEncodes[0] || encoded[1] != wantEncodes[1] {
		t.Errorf("encodes = %v, want %v", encoded, wantEncodes)
	}
}

func TestSplitAndTranscribeDepthLimit(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "seg000.mp3")
	writeFileOfSize(t, src, 200)

	model := &fakeModel{respond: func(int, string) ([]string, error) {
		return []string{"should not run"}, nil
	}}
	tr := newTestTranscriber(model, &fakeMedia{}, Options{
		MaxConcurrency: 1,
		MaxPayloadSize: 100,
		MaxSplitDepth:  2,
	})

	leaves := tr.splitAndTranscribe(context.Background(), Job{Path: src, Start: 0, End: 60, Depth: 2})
	if len(leaves) != 1 {
		t.Fatalf("leaves = %d, want 1", len(leaves))
	}
	if !strings.Contains(leaves[0].Text, "Reason: payload-too-large-after-splits]") {
		t.Errorf("Text = %q, want depth-limit placeholder", leaves[0].Text)
	}
	if model.callCount() != 0 {
		t.Errorf("model calls = %d, want 0 for a known-oversized branch", model.callCount())
	}
}

func TestSplitAndTranscribePersistentPayloadError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "seg000.mp3")
	writeFileOfSize(t, src, 50)

	// Under the local size cap yet still rejected remotely: terminal, not
	// another split round.
	model := &fakeModel{respond: func(int, string) ([]string, error) {
		return nil, fmt.Errorf("Payload length is 80, exceeding max payload length of 40")
	}}
	tr := newTestTranscriber(model, &fakeMedia{}, Options{
		MaxConcurrency: 1,
		MaxPayloadSize: 100,
		MaxSplitDepth:  4,
	})

	leaves := tr.splitAndTranscribe(context.Background(), Job{Path: src, Start: 10, End: 20})
	if len(leaves) != 1 {
		t.Fatalf("leaves = %d, want 1", len(leaves))
	}
	if !strings.Contains(leaves[0].Text, "Reason: payload-error-persistent]") {
		t.Errorf("Text = %q, want persistent-payload placeholder", leaves[0].Text)
	}
	if model.callCount() != 1 {
		t.Errorf("model calls = %d, want 1", model.callCount())
	}
}

func TestSplitAndTranscribeEncoderFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "seg000.mp3")
	writeFileOfSize(t, src, 200)

	model := &fakeModel{respond: func(int, string) ([]string, error) {
		return []string{"should not run"}, nil
	}}
	media := &fakeMedia{
		probe: func(string) (float64, error) { return 60, nil },
		encode: func(src, dst string, start, dur float64) error {
			return fmt.Errorf("ffmpeg exited with status 1")
		},
	}
	tr := newTestTranscriber(model, media, Options{
		MaxConcurrency: 1,
		MaxPayloadSize: 100,
		MaxSplitDepth:  4,
	})

	leaves := tr.splitAndTranscribe(context.Background(), Job{Path: src, Start: 0, End: 60})
	if len(leaves) != 1 {
		t.Fatalf("leaves = %d, want 1", len(leaves))
	}
	if !strings.Contains(leaves[0].Text, "Reason: ffmpeg exited with status 1]") {
		t.Errorf("Text = %q, want encoder-failure placeholder", leaves[0].Text)
	}
	if leaves[0].Start != 0 || leaves[0].End != 60 {
		t.Errorf("placeholder range = [%v-%v], want the whole branch", leaves[0].Start, leaves[0].End)
	}
	if model.callCount() != 0 {
		t.Errorf("model calls = %d, want 0", model.callCount())
	}
}

func TestSplitAndTranscribeHaltsAtDepthBound(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "seg000.mp3")
	writeFileOfSize(t, src, 400)

	model := &fakeModel{respond: func(int, string) ([]string, error) {
		return nil, fmt.Errorf("Payload length is 400, exceeding max payload length of 100")
	}}
	media := &fakeMedia{
		probe: func(string) (float64, error) { return 60, nil },
		// halves stay over the cap, so recursion must stop at the bound
		encode: func(src, dst string, start, dur float64) error {
			return os.WriteFile(dst, make([]byte, 300), 0644)
		},
	}
	tr := newTestTranscriber(model, media, Options{
		MaxConcurrency: 1,
		MaxPayloadSize: 100,
		MaxSplitDepth:  1,
	})

	leaves := tr.splitAndTranscribe(context.Background(), Job{Path: src, Start: 0, End: 60})
	if len(leaves) != 2 {
		t.Fatalf("leaves = %d, want 2", len(leaves))
	}
	for i, leaf := range leaves {
		if !strings.Contains(leaf.Text, "Reason: payload-too-large-after-splits]") {
			t.Errorf("leaf %d = %q, want depth-limit placeholder", i, leaf.Text)
		}
	}
	if model.callCount() != 0 {
		t.Errorf("model calls = %d, want 0", model.callCount())
	}
}

func TestSplitAndTranscribeRecursesToQuarters(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "seg000.mp3")
	writeFileOfSize(t, src, 400)

	model := &fakeModel{respond: func(_ int, path string) ([]string, error) {
		return []string{filepath.Base(path)}, nil
	}}
	media := &fakeMedia{
		probe: func(path string) (float64, error) {
			info, err := os.Stat(path)
			if err != nil {
				return 0, err
			}
			// keep duration proportional to size so halves probe correctly
			return float64(info.Size()), nil
		},
		encode: func(src, dst string, start, dur float64) error {
			info, err := os.Stat(src)
			if err != nil {
				return err
			}
			return os.WriteFile(dst, make([]byte, int(info.Size())/2), 0644)
		},
	}
	tr := newTestTranscriber(model, media, Options{
		MaxConcurrency: 1,
		MaxPayloadSize: 100,
		MaxSplitDepth:  4,
	})

	leaves := tr.splitAndTranscribe(context.Background(), Job{Path: src, Start: 0, End: 400})
	if len(leaves) != 4 {
		t.Fatalf("leaves = %d, want 4 quarters", len(leaves))
	}
	for i := 1; i < len(leaves); i++ {
		if leaves[i].Start < leaves[i-1].Start {
			t.Errorf("leaf %d starts at %v before leaf %d at %v", i, leaves[i].Start, i-1, leaves[i-1].Start)
		}
	}
	if model.callCount() != 4 {
		t.Errorf("model calls = %d, want 4", model.callCount())
	}
}
