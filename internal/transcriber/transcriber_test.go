package transcriber

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yoyole123/gdrive-transcriber/internal/metrics"
)

// fakeStream serves pre-scripted chunks, then err (or io.EOF when err is nil)
type fakeStream struct {
	chunks []string
	err    error
	pos    int
}

func (s *fakeStream) Next() (string, error) {
	if s.pos < len(s.chunks) {
		chunk := s.chunks[s.pos]
		s.pos++
		return chunk, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

// fakeModel scripts remote behavior per call and records call paths
type fakeModel struct {
	mu    sync.Mutex
	calls []string
	// respond receives the 1-based call number and the submitted path
	respond func(call int, path string) ([]string, error)
}

func (m *fakeModel) Transcribe(ctx context.Context, path string, diarize bool) (Stream, error) {
	m.mu.Lock()
	m.calls = append(m.calls, path)
	call := len(m.calls)
	m.mu.Unlock()

	chunks, err := m.respond(call, path)
	if err != nil {
		return nil, err
	}
	return &fakeStream{chunks: chunks}, nil
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// fakeMedia scripts the splitter's probe/encode collaborators
type fakeMedia struct {
	probe  func(path string) (float64, error)
	encode func(src, dst string, start, dur float64) error
}

func (f *fakeMedia) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if f.probe == nil {
		return 0, fmt.Errorf("probe unavailable")
	}
	return f.probe(path)
}

func (f *fakeMedia) EncodeSlice(ctx context.Context, src, dst string, start, dur float64) error {
	if f.encode == nil {
		return fmt.Errorf("encoder unavailable")
	}
	return f.encode(src, dst, start, dur)
}

func newTestTranscriber(model Model, mediaTools MediaTools, opts Options) *Transcriber {
	if opts.SegmentSeconds == 0 {
		opts.SegmentSeconds = 30
	}
	tr := New(model, mediaTools, metrics.New(prometheus.NewRegistry()), opts)
	tr.backoffUnit = time.Millisecond
	return tr
}

func writeSegments(t *testing.T, dir string, sizes ...int) {
	t.Helper()
	for i, size := range sizes {
		path := filepath.Join(dir, fmt.Sprintf("seg%03d.mp3", i))
		if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
			t.Fatalf("write segment: %v", err)
		}
	}
}
