package runpod

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/yoyole123/gdrive-transcriber/internal/transcriber"
)

const (
	defaultBaseURL = "https://api.runpod.ai/v2"
	graphqlURL     = "https://api.runpod.io/graphql"

	pollInterval   = time.Second
	requestTimeout = 30 * time.Minute
	balanceTimeout = 15 * time.Second
)

// Client submits transcription jobs to a RunPod serverless endpoint and
// streams back the produced text chunks. It implements transcriber.Model.
type Client struct {
	apiKey     string
	endpointID string
	model      string
	baseURL    string
	graphqlURL string
	httpClient *http.Client
}

// New creates a RunPod client for the given endpoint and model
func New(apiKey, endpointID, model string) *Client {
	return &Client{
		apiKey:     apiKey,
		endpointID: endpointID,
		model:      model,
		baseURL:    defaultBaseURL,
		graphqlURL: graphqlURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type runRequest struct {
	Input runInput `json:"input"`
}

type runInput struct {
	Type      string `json:"type"`
	Model     string `json:"model"`
	Engine    string `json:"engine"`
	Audio     string `json:"audio"`
	Diarize   bool   `json:"diarize"`
	Streaming bool   `json:"streaming"`
}

type runResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Transcribe submits the audio file as a job and returns a lazy stream over
// the job's output chunks. Remote error messages are surfaced verbatim so the
// caller can pattern-match the service's payload-size rejection.
func (c *Client) Transcribe(ctx context.Context, path string, diarize bool) (transcriber.Stream, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file %s: %w", path, err)
	}

	body, err := json.Marshal(runRequest{Input: runInput{
		Type:      "blob",
		Model:     c.model,
		Engine:    "stable-whisper",
		Audio:     base64.StdEncoding.EncodeToString(audio),
		Diarize:   diarize,
		Streaming: true,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode run request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/run", c.baseURL, c.endpointID)
	var run runResponse
	if err := c.postJSON(ctx, url, body, &run); err != nil {
		return nil, err
	}
	if run.Error != "" {
		return nil, fmt.Errorf("runpod run rejected: %s", run.Error)
	}
	if run.ID == "" {
		return nil, fmt.Errorf("runpod run response missing job id")
	}

	return &jobStream{client: c, ctx: ctx, jobID: run.ID}, nil
}

// postJSON posts body to url with auth headers and decodes the response into out
func (c *Client) postJSON(ctx context.Context, url string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		// The body carries the service's message; keep it intact for
		// pattern matching upstream.
		return fmt.Errorf("runpod http %d: %s", resp.StatusCode, string(raw))
	}
	return json.Unmarshal(raw, out)
}

type streamResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Stream []struct {
		Output struct {
			Text string `json:"text"`
		} `json:"output"`
	} `json:"stream"`
}

// jobStream polls the endpoint's stream route, buffering chunk texts as the
// job produces them.
type jobStream struct {
	client *Client
	ctx    context.Context
	jobID  string
	buf    []string
	done   bool
}

// Next returns the next chunk of transcript text, io.EOF once the job has
// completed and the buffer is drained, or the job's error.
func (s *jobStream) Next() (string, error) {
	for len(s.buf) == 0 && !s.done {
		if err := s.poll(); err != nil {
			return "", err
		}
	}
	if len(s.buf) == 0 {
		return "", io.EOF
	}
	chunk := s.buf[0]
	s.buf = s.buf[1:]
	return chunk, nil
}

func (s *jobStream) poll() error {
	url := fmt.Sprintf("%s/%s/stream/%s", s.client.baseURL, s.client.endpointID, s.jobID)
	var resp streamResponse
	if err := s.client.postJSON(s.ctx, url, []byte("{}"), &resp); err != nil {
		return err
	}

	for _, item := range resp.Stream {
		if item.Output.Text != "" {
			s.buf = append(s.buf, item.Output.Text)
		}
	}

	switch resp.Status {
	case "COMPLETED":
		s.done = true
		return nil
	case "FAILED", "CANCELLED", "TIMED_OUT":
		if resp.Error != "" {
			return fmt.Errorf("runpod job %s: %s", resp.Status, resp.Error)
		}
		return fmt.Errorf("runpod job %s", resp.Status)
	}

	if len(resp.Stream) == 0 {
		timer := time.NewTimer(pollInterval)
		defer timer.Stop()
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
