package runpod

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/yoyole123/gdrive-transcriber/internal/transcriber"
)

func newTestClient(serverURL string) *Client {
	c := New("test-key", "ep-123", "ivrit-ai/whisper-large-v3")
	c.baseURL = serverURL
	c.graphqlURL = serverURL + "/graphql"
	return c
}

func writeAudio(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seg000.mp3")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func drain(t *testing.T, s transcriber.Stream) []string {
	t.Helper()
	var chunks []string
	for {
		chunk, err := s.Next()
		if errors.Is(err, io.EOF) {
			return chunks
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		chunks = append(chunks, chunk)
	}
}

func TestTranscribeStreamsChunks(t *testing.T) {
	var gotRun runRequest
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		switch r.URL.Path {
		case "/ep-123/run":
			if err := json.NewDecoder(r.Body).Decode(&gotRun); err != nil {
				t.Errorf("decode run request: %v", err)
			}
			fmt.Fprint(w, `{"id": "job-1", "status": "IN_QUEUE"}`)
		case "/ep-123/stream/job-1":
			polls++
			if polls == 1 {
				fmt.Fprint(w, `{"status": "IN_PROGRESS", "stream": [{"output": {"text": "hello"}}]}`)
			} else {
				fmt.Fprint(w, `{"status": "COMPLETED", "stream": [{"output": {"text": "world"}}]}`)
			}
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	stream, err := client.Transcribe(context.Background(), writeAudio(t, "fake mp3 bytes"), true)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	chunks := drain(t, stream)
	if len(chunks) != 2 || chunks[0] != "hello" || chunks[1] != "world" {
		t.Errorf("chunks = %v, want [hello world]", chunks)
	}

	if gotRun.Input.Type != "blob" || gotRun.Input.Engine != "stable-whisper" {
		t.Errorf("run input = %+v, want blob/stable-whisper", gotRun.Input)
	}
	if gotRun.Input.Model != "ivrit-ai/whisper-large-v3" {
		t.Errorf("model = %q", gotRun.Input.Model)
	}
	if !gotRun.Input.Diarize || !gotRun.Input.Streaming {
		t.Error("diarize and streaming flags must be set")
	}
	if decoded, _ := base64.StdEncoding.DecodeString(gotRun.Input.Audio); string(decoded) != "fake mp3 bytes" {
		t.Errorf("audio payload decoded to %q", decoded)
	}
}

func TestTranscribeSurfacesErrorBodyVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "Payload length is 12000000, exceeding max payload length of 10485760")
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Transcribe(context.Background(), writeAudio(t, "big"), false)
	if err == nil {
		t.Fatal("want error")
	}
	if !transcriber.IsPayloadSizeError(err) {
		t.Errorf("error %v should match the payload-size pattern", err)
	}
}

func TestTranscribeRejectedRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": "endpoint is paused"}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if _, err := client.Transcribe(context.Background(), writeAudio(t, "x"), false); err == nil {
		t.Fatal("want error for rejected run")
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	client := newTestClient("http://unused")
	if _, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"), false); err == nil {
		t.Fatal("want error for missing audio file")
	}
}

func TestStreamFailedJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ep-123/run":
			fmt.Fprint(w, `{"id": "job-2"}`)
		default:
			fmt.Fprint(w, `{"status": "FAILED", "error": "worker crashed"}`)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	stream, err := client.Transcribe(context.Background(), writeAudio(t, "x"), false)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if _, err := stream.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("Next = %v, want job failure", err)
	}
}

func TestFetchBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graphql" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode query: %v", err)
		}
		fmt.Fprint(w, `{"data": {"myself": {"clientBalance": 12.5, "currentSpendPerHr": 0.4, "spendLimit": 100}}}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	bal, err := client.FetchBalance(context.Background())
	if err != nil {
		t.Fatalf("FetchBalance: %v", err)
	}
	if bal.ClientBalance != 12.5 || bal.CurrentSpendPerHr != 0.4 || bal.SpendLimit != 100 {
		t.Errorf("balance = %+v", bal)
	}
}

func TestFetchBalanceGraphQLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors": [{"message": "unauthorized"}]}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if _, err := client.FetchBalance(context.Background()); err == nil {
		t.Fatal("want graphql error")
	}
}
