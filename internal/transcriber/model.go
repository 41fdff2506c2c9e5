package transcriber

import (
	"context"
	"regexp"
)

// Stream yields transcript text chunks as the remote service produces them.
// Next returns io.EOF when the stream is exhausted; any other error terminates
// the stream and carries the remote service's message verbatim.
type Stream interface {
	Next() (string, error)
}

// Model is the remote transcription capability. Implementations submit the
// audio file at path and return a lazy stream of text chunks.
type Model interface {
	Transcribe(ctx context.Context, path string, diarize bool) (Stream, error)
}

// MediaTools covers the audio operations the splitter needs: probing a file's
// play duration and encoding a time slice of it into a new file.
type MediaTools interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	EncodeSlice(ctx context.Context, srcPath, dstPath string, start, duration float64) error
}

// payloadSizePattern matches the remote service's rejection of oversized
// uploads. A match is a routing signal, not a failure.
var payloadSizePattern = regexp.MustCompile(`Payload length is (\d+), exceeding max payload length of (\d+)`)

// IsPayloadSizeError reports whether err is the remote service's
// payload-too-large rejection.
func IsPayloadSizeError(err error) bool {
	return err != nil && payloadSizePattern.MatchString(err.Error())
}
