package transcriber

import (
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/yoyole123/gdrive-transcriber/internal/metrics"
)

// Options configures a Transcriber
type Options struct {
	// MaxConcurrency is the hard ceiling on simultaneously in-flight remote
	// calls, shared by top-level segments and splitting sub-trees.
	MaxConcurrency int

	// MaxRetries is the number of extra attempts after the first failed one
	MaxRetries int

	// MaxPayloadSize is the remote service's upload size cap in bytes
	MaxPayloadSize int64

	// MaxSplitDepth bounds the recursive bisection of oversized segments
	MaxSplitDepth int

	// SegmentSeconds is the nominal segment duration, used as the fallback
	// when a segment's duration cannot be probed.
	SegmentSeconds int

	// RequestsPerMinute paces remote calls; 0 disables pacing
	RequestsPerMinute int
}

// Transcriber schedules segment transcriptions against a remote model,
// recursively splitting segments the service rejects as too large, and
// assembles the leaf results into one time-ordered transcript.
type Transcriber struct {
	model   Model
	media   MediaTools
	metrics *metrics.Metrics
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	opts    Options

	// backoffUnit scales the linear retry backoff (attempt * backoffUnit)
	backoffUnit time.Duration
}

// New creates a Transcriber
func New(model Model, media MediaTools, m *metrics.Metrics, opts Options) *Transcriber {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(opts.RequestsPerMinute) / 60.0)
	}
	return &Transcriber{
		model:       model,
		media:       media,
		metrics:     m,
		sem:         semaphore.NewWeighted(int64(opts.MaxConcurrency)),
		limiter:     rate.NewLimiter(limit, 1),
		opts:        opts,
		backoffUnit: time.Second,
	}
}
