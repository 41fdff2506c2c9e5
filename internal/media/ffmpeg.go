package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Tools wraps the ffmpeg and ffprobe binaries for conversion, probing and slicing.
// Binary paths can be overridden through FFMPEG_PATH / FFPROBE_PATH.
type Tools struct {
	ffmpegBin  string
	ffprobeBin string
}

// NewTools creates a Tools instance using the configured or default binaries
func NewTools() *Tools {
	ffmpeg := os.Getenv("FFMPEG_PATH")
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	ffprobe := os.Getenv("FFPROBE_PATH")
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	return &Tools{ffmpegBin: ffmpeg, ffprobeBin: ffprobe}
}

// ProbeDuration returns the play duration of an audio file in seconds.
// Returns 0 when the duration cannot be determined.
func (t *Tools) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.ffprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe produced unparsable duration for %s: %w", path, err)
	}
	return dur, nil
}

// ProbeBitrate returns the overall bitrate of an audio file in bits per second.
// Returns 0 when the bitrate cannot be determined.
func (t *Tools) ProbeBitrate(ctx context.Context, path string) (int64, error) {
	cmd := exec.CommandContext(ctx, t.ffprobeBin,
		"-v", "error",
		"-show_entries", "format=bit_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	bits, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe produced unparsable bitrate for %s: %w", path, err)
	}
	return bits, nil
}

// ConvertToMP3 transcodes any supported audio file to mp3
func (t *Tools) ConvertToMP3(ctx context.Context, srcPath, dstPath string) error {
	cmd := exec.CommandContext(ctx, t.ffmpegBin,
		"-y",
		"-i", srcPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		dstPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg conversion failed: %w\nOutput: %s", err, string(out))
	}
	return nil
}

// EncodeSlice writes a new audio file covering [start, start+duration) of srcPath
func (t *Tools) EncodeSlice(ctx context.Context, srcPath, dstPath string, start, duration float64) error {
	cmd := exec.CommandContext(ctx, t.ffmpegBin,
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", srcPath,
		"-vn",
		"-acodec", "copy",
		dstPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg slice failed: %w\nOutput: %s", err, string(out))
	}
	return nil
}

// SegmentByDuration splits an audio file into fixed-duration segments using the
// ffmpeg segment muxer. outPattern must contain a %03d placeholder.
func (t *Tools) SegmentByDuration(ctx context.Context, srcPath, outPattern string, segSeconds int) error {
	cmd := exec.CommandContext(ctx, t.ffmpegBin,
		"-y",
		"-i", srcPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(segSeconds),
		"-c", "copy",
		outPattern,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg segmentation failed: %w\nOutput: %s", err, string(out))
	}
	return nil
}

// SegmentBySize splits an audio file into segments whose encoded size stays under
// maxSegmentSize. The segment duration is derived from the file's bitrate with a
// 10% safety margin; when the bitrate is unknown the fallback duration is used.
// A file already at or under the cap is copied verbatim as the first segment.
func (t *Tools) SegmentBySize(ctx context.Context, srcPath, outPattern string, maxSegmentSize int64, fallbackSegSeconds int) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", srcPath, err)
	}

	if info.Size() <= maxSegmentSize {
		return copyFile(srcPath, fmt.Sprintf(outPattern, 0))
	}

	bitrate, err := t.ProbeBitrate(ctx, srcPath)
	if err != nil {
		bitrate = 0
	}
	segSeconds := SegmentTimeForSize(maxSegmentSize, bitrate, fallbackSegSeconds)
	return t.SegmentByDuration(ctx, srcPath, outPattern, segSeconds)
}

// SegmentTimeForSize derives a segment duration in seconds that keeps each
// segment under sizeCap bytes at the given bitrate (bits/second), clamped to
// [30, fallbackSegSeconds]. An unknown bitrate yields the fallback.
func SegmentTimeForSize(sizeCap, bitrateBits int64, fallbackSegSeconds int) int {
	if bitrateBits <= 0 {
		return fallbackSegSeconds
	}
	bytesPerSecond := float64(bitrateBits) / 8.0
	seconds := int(float64(sizeCap) * 0.9 / bytesPerSecond)
	if seconds < 30 {
		seconds = 30
	}
	if seconds > fallbackSegSeconds {
		seconds = fallbackSegSeconds
	}
	return seconds
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return nil
}
