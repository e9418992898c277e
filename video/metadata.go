package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/equirender/media"
	"github.com/lepinkainen/equirender/process"
)

// Stream is the subset of an ffprobe stream the converter inspects.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// Format is the ffprobe container section.
type Format struct {
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	Tags       map[string]string `json:"tags"`
}

// ProbeResult is the decoded ffprobe JSON document.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// VideoStreams returns the video streams in file order.
func (pr *ProbeResult) VideoStreams() []Stream {
	var streams []Stream
	for _, s := range pr.Streams {
		if s.CodecType == "video" {
			streams = append(streams, s)
		}
	}
	return streams
}

// Prober runs ffprobe through a launcher and describes input files.
type Prober struct {
	launcher process.Launcher
	tool     process.Tool
}

// NewProber returns a prober using the ffprobe binary at path.
func NewProber(l process.Launcher, path string) *Prober {
	if path == "" {
		path = "ffprobe"
	}
	return &Prober{launcher: l, tool: process.Tool{Name: "ffprobe", Path: path}}
}

// Probe describes filename. Problems with the file are reported through
// InputVideoInfo.Issues; an error is returned only if ctx ends first.
func (p *Prober) Probe(ctx context.Context, filename string) (media.InputVideoInfo, error) {
	fi, err := os.Stat(filename)
	if err != nil {
		return media.InputVideoInfo{
			Filename: filename,
			Issues:   []string{fmt.Sprintf("file not accessible: %v", err)},
		}, nil
	}
	if fi.IsDir() {
		return media.InputVideoInfo{Filename: filename, Issues: []string{"is a directory"}}, nil
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		"--", filename,
	}
	out, err := process.Output(ctx, p.launcher, p.tool, args)
	if err != nil {
		if process.IsCanceled(err) {
			return media.InputVideoInfo{}, err
		}
		return probeFailure(filename, fi, err), nil
	}

	info, err := ParseProbeOutput(filename, out, fi.Size(), fi.ModTime())
	if err != nil {
		return probeFailure(filename, fi, err), nil
	}
	return info, nil
}

// ProbeAll probes files with at most limit concurrent ffprobe runs. The
// result order matches files.
func (p *Prober) ProbeAll(ctx context.Context, files []string, limit int) ([]media.InputVideoInfo, error) {
	infos := make([]media.InputVideoInfo, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			info, err := p.Probe(ctx, f)
			if err != nil {
				return err
			}
			infos[i] = info
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infos, nil
}

// ParseProbeOutput builds an InputVideoInfo from ffprobe's JSON output. size
// and modTime are used when the container does not report them.
func ParseProbeOutput(filename string, data []byte, size int64, modTime time.Time) (media.InputVideoInfo, error) {
	var pr ProbeResult
	if err := json.Unmarshal(data, &pr); err != nil {
		return media.InputVideoInfo{}, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}

	info := media.InputVideoInfo{
		Filename:  filename,
		Size:      size,
		CreatedAt: modTime,
	}

	if d, err := strconv.ParseFloat(pr.Format.Duration, 64); err == nil && d > 0 {
		info.Duration = d
	} else {
		info.Issues = append(info.Issues, "duration not available in format metadata")
	}
	if s, err := strconv.ParseInt(pr.Format.Size, 10, 64); err == nil && s > 0 {
		info.Size = s
	}
	if ct, ok := pr.Format.Tags["creation_time"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, ct); err == nil {
			info.CreatedAt = t
		}
	}

	streams := pr.VideoStreams()
	formatIssues := eacLayoutIssues(streams)
	info.Issues = append(info.Issues, formatIssues...)

	info.IsValid = info.Duration > 0 && len(streams) > 0
	info.MatchesFormat = info.IsValid && len(formatIssues) == 0
	return info, nil
}

// eacLayoutIssues checks for the two equal, roughly 3:1 video tracks that
// make up an equi-angular cubemap capture.
func eacLayoutIssues(streams []Stream) []string {
	switch {
	case len(streams) == 0:
		return []string{"no video streams found"}
	case len(streams) < 2:
		return []string{fmt.Sprintf("expected two video streams, found %d", len(streams))}
	}

	var issues []string
	top, bottom := streams[0], streams[1]
	if top.Width != bottom.Width || top.Height != bottom.Height {
		issues = append(issues, fmt.Sprintf("video streams differ in size: %dx%d and %dx%d",
			top.Width, top.Height, bottom.Width, bottom.Height))
	}
	if top.Height == 0 || top.Width < 2*top.Height {
		issues = append(issues, fmt.Sprintf("unexpected cubemap strip geometry %dx%d", top.Width, top.Height))
	}
	return issues
}

func probeFailure(filename string, fi os.FileInfo, err error) media.InputVideoInfo {
	info := media.InputVideoInfo{
		Filename:  filename,
		Size:      fi.Size(),
		CreatedAt: fi.ModTime(),
	}

	var exitErr *process.ExitError
	switch {
	case errors.As(err, &exitErr):
		info.Issues = []string{classifyProbeFailure(exitErr.Output)}
	default:
		info.Issues = []string{err.Error()}
	}
	return info
}
