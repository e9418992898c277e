package transcode

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ProgressFunc receives completion percentages between 0 and 100.
type ProgressFunc func(percent float64)

const (
	progressEnd = "progress=end"
	// taggingHeadroom is the ceiling reported while the tagger has yet to run.
	taggingHeadroom = 98.0
)

var (
	frameRegex   = regexp.MustCompile(`^frame=\s*(\d+)`)
	outTimeRegex = regexp.MustCompile(`^out_time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

// frameProgress maps frame=N lines to N/total.
type frameProgress struct {
	total int
}

func (fp frameProgress) parse(line string) (float64, bool) {
	line = strings.TrimSpace(line)
	if line == progressEnd {
		return 100, true
	}
	matches := frameRegex.FindStringSubmatch(line)
	if len(matches) < 2 || fp.total <= 0 {
		return 0, false
	}
	frame, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return round2(math.Min(100, float64(frame)/float64(fp.total)*100)), true
}

// timeProgress maps out_time=HH:MM:SS.micro lines to elapsed/duration,
// never exceeding ceiling.
type timeProgress struct {
	duration float64
	ceiling  float64
}

func (tp timeProgress) parse(line string) (float64, bool) {
	line = strings.TrimSpace(line)
	if line == progressEnd {
		return tp.ceiling, true
	}
	matches := outTimeRegex.FindStringSubmatch(line)
	if len(matches) < 4 || tp.duration <= 0 {
		// out_time=N/A shows up before the first packet is muxed
		return 0, false
	}
	elapsed := timestampSeconds(matches[1], matches[2], matches[3])
	return math.Min(tp.ceiling, round2(elapsed/tp.duration*100)), true
}

// progressLine turns a parser into a process.LineHandler that reports to fn.
func progressLine(parse func(string) (float64, bool), fn ProgressFunc) func(string) {
	last := -1.0
	return func(line string) {
		if fn == nil {
			return
		}
		if pct, ok := parse(line); ok && pct != last {
			last = pct
			fn(pct)
		}
	}
}

func timestampSeconds(h, m, s string) float64 {
	hours, _ := strconv.ParseFloat(h, 64)
	minutes, _ := strconv.ParseFloat(m, 64)
	seconds, _ := strconv.ParseFloat(s, 64)
	return hours*3600 + minutes*60 + seconds
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatSeconds renders seconds as an ffmpeg time argument.
func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
