// Package codecs parses ffmpeg's codec and container listings.
package codecs

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lepinkainen/equirender/process"
)

// Entry is one codec or container supported by the installed ffmpeg.
type Entry struct {
	Name        string
	Description string
	IsVideo     bool
	IsAudio     bool
	IsSubtitle  bool
	IsContainer bool
	CanDecode   bool
	CanEncode   bool
	IsIntraOnly bool
	IsLossy     bool
	IsLossless  bool
}

// Kind is a short label for the entry's media type.
func (e Entry) Kind() string {
	switch {
	case e.IsContainer:
		return "container"
	case e.IsVideo:
		return "video"
	case e.IsAudio:
		return "audio"
	case e.IsSubtitle:
		return "subtitle"
	default:
		return "data"
	}
}

// ParseCodecs parses the output of `ffmpeg -codecs`.
func ParseCodecs(output string) []Entry {
	var entries []Entry
	forEachRow(output, func(flags, name, desc string) {
		flag := func(i int, want byte) bool { return i < len(flags) && flags[i] == want }
		entries = append(entries, Entry{
			Name:        name,
			Description: desc,
			CanDecode:   flag(0, 'D'),
			CanEncode:   flag(1, 'E'),
			IsVideo:     flag(2, 'V'),
			IsAudio:     flag(2, 'A'),
			IsSubtitle:  flag(2, 'S'),
			IsIntraOnly: flag(3, 'I'),
			IsLossy:     flag(4, 'L'),
			IsLossless:  flag(5, 'S'),
		})
	})
	return entries
}

// ParseFormats parses the output of `ffmpeg -formats`.
func ParseFormats(output string) []Entry {
	var entries []Entry
	forEachRow(output, func(flags, name, desc string) {
		entries = append(entries, Entry{
			Name:        name,
			Description: desc,
			IsContainer: true,
			CanDecode:   strings.Contains(flags, "D"),
			CanEncode:   strings.Contains(flags, "E"),
		})
	})
	return entries
}

// forEachRow walks the rows below the legend separator. The flag column
// width is taken from the legend lines ("D. = Demuxing supported").
func forEachRow(output string, fn func(flags, name, desc string)) {
	width := 0
	inRows := false

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r ")
		trimmed := strings.TrimSpace(line)

		if !inRows {
			if trimmed != "" && strings.Trim(trimmed, "-") == "" {
				inRows = true
				continue
			}
			if idx := strings.Index(trimmed, " = "); idx > 0 && width == 0 {
				width = idx
			}
			continue
		}

		row := strings.TrimPrefix(line, " ")
		if width == 0 || len(row) <= width {
			continue
		}
		fields := strings.Fields(row[width:])
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		desc := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(row[width:]), name))
		fn(row[:width], name, desc)
	}
}

// Catalog is the merged codec and container listing.
type Catalog struct {
	Entries []Entry
}

// Load queries ffmpeg for its codecs and formats.
func Load(ctx context.Context, l process.Launcher, ffmpegPath string) (*Catalog, error) {
	tool := process.Tool{Name: "ffmpeg", Path: ffmpegPath}

	codecOut, err := process.Output(ctx, l, tool, []string{"-hide_banner", "-codecs"})
	if err != nil {
		return nil, fmt.Errorf("failed to list codecs: %w", err)
	}
	formatOut, err := process.Output(ctx, l, tool, []string{"-hide_banner", "-formats"})
	if err != nil {
		return nil, fmt.Errorf("failed to list formats: %w", err)
	}

	entries := append(ParseCodecs(string(codecOut)), ParseFormats(string(formatOut))...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Kind() != entries[j].Kind() {
			return entries[i].Kind() < entries[j].Kind()
		}
		return entries[i].Name < entries[j].Name
	})
	return &Catalog{Entries: entries}, nil
}

// Filter returns the entries for which keep returns true.
func (c *Catalog) Filter(keep func(Entry) bool) []Entry {
	var out []Entry
	for _, e := range c.Entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Find looks an entry up by name and kind.
func (c *Catalog) Find(name, kind string) (Entry, bool) {
	for _, e := range c.Entries {
		if e.Name == name && (kind == "" || e.Kind() == kind) {
			return e, true
		}
	}
	return Entry{}, false
}

// CanEncodeVideo reports whether ffmpeg can encode video with codec or encoder name.
func (c *Catalog) CanEncodeVideo(name string) bool {
	for _, e := range c.Entries {
		if !e.IsVideo || !e.CanEncode {
			continue
		}
		if e.Name == name || strings.Contains(e.Description, "encoders: ") && containsWord(e.Description, name) {
			return true
		}
	}
	return false
}

func containsWord(s, word string) bool {
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '(' || r == ')' }) {
		if f == word {
			return true
		}
	}
	return false
}
