package transcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameProgress(t *testing.T) {
	fp := frameProgress{total: 3}

	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"frame=1", 33.33, true},
		{"frame= 2", 66.67, true},
		{"frame=3", 100, true},
		{"frame=9", 100, true},
		{"progress=end", 100, true},
		{"progress=continue", 0, false},
		{"fps=12.5", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := fp.parse(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestTimeProgress(t *testing.T) {
	tp := timeProgress{duration: 200, ceiling: taggingHeadroom}

	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"out_time=00:00:10.000000", 5, true},
		{"out_time=00:01:40.500000", 50.25, true},
		{"out_time=00:03:19.000000", 98, true},
		{"out_time=00:05:00.000000", 98, true},
		{"out_time=N/A", 0, false},
		{"out_time_ms=1000000", 0, false},
		{"progress=end", 98, true},
	}

	for _, tt := range tests {
		got, ok := tp.parse(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestTimeProgressUnknownDuration(t *testing.T) {
	_, ok := timeProgress{ceiling: 98}.parse("out_time=00:00:01.000000")
	assert.False(t, ok)
}

func TestProgressLineDropsRepeats(t *testing.T) {
	var got []float64
	handle := progressLine(frameProgress{total: 2}.parse, func(p float64) { got = append(got, p) })

	for _, line := range []string{"frame=1", "fps=3", "frame=1", "frame=2", "progress=end"} {
		handle(line)
	}

	assert.Equal(t, []float64{50, 100}, got)
	assert.NotPanics(t, func() { progressLine(frameProgress{total: 2}.parse, nil)("frame=1") })
}
