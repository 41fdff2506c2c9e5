package media

import "testing"

func TestSegmentTimeForSize(t *testing.T) {
	const mib = 1024 * 1024

	cases := []struct {
		name     string
		sizeCap  int64
		bitrate  int64
		fallback int
		want     int
	}{
		// 8 MiB at 128 kbps: 8388608 * 0.9 / 16000 B/s = 471s
		{"typical speech bitrate", 8 * mib, 128000, 600, 471},
		{"zero bitrate falls back", 8 * mib, 0, 600, 600},
		{"negative bitrate falls back", 8 * mib, -5, 600, 600},
		// very high bitrate would give 29s, clamped up to the floor
		{"clamped to minimum", 8 * mib, 2048000, 600, 30},
		// very low bitrate would give 943s, capped at the configured length
		{"capped at fallback", 8 * mib, 64000, 600, 600},
		{"small cap small fallback", 1 * mib, 128000, 45, 45},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := SegmentTimeForSize(c.sizeCap, c.bitrate, c.fallback); got != c.want {
				t.Errorf("SegmentTimeForSize(%d, %d, %d) = %d, want %d",
					c.sizeCap, c.bitrate, c.fallback, got, c.want)
			}
		})
	}
}
