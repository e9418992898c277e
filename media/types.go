// Package media holds the immutable value types shared by the pool, queue and
// transcoding packages.
package media

import (
	"path/filepath"
	"strings"
	"time"
)

// PlaceholderFilename is the sentinel filename used when no video is selected.
const PlaceholderFilename = "::placeholder::"

// InputVideoInfo describes a probed source video. Values are never mutated
// after the prober returns them.
type InputVideoInfo struct {
	Filename      string
	IsValid       bool
	MatchesFormat bool
	Duration      float64 // seconds
	CreatedAt     time.Time
	Size          int64
	Issues        []string
}

// IsPlaceholder reports whether info carries the placeholder sentinel filename.
func (i InputVideoInfo) IsPlaceholder() bool {
	return i.Filename == PlaceholderFilename
}

// BaseName returns the filename without directory and extension.
func (i InputVideoInfo) BaseName() string {
	base := filepath.Base(i.Filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FrameRotation is a three-axis rotation in degrees. The zero value is the identity.
type FrameRotation struct {
	Yaw   int
	Pitch int
	Roll  int
}

// IsZero reports whether the rotation is the identity.
func (r FrameRotation) IsZero() bool {
	return r == FrameRotation{}
}

// TimelineCrop limits conversion to part of the timeline. A nil Start means
// from the beginning and a nil End means to the natural duration.
type TimelineCrop struct {
	Start *float64
	End   *float64
}

// Seconds returns a pointer to s, for building crops inline.
func Seconds(s float64) *float64 {
	return &s
}

// NewCrop builds a crop with both bounds set.
func NewCrop(start, end float64) TimelineCrop {
	return TimelineCrop{Start: Seconds(start), End: Seconds(end)}
}

// Equal compares two crops by value.
func (c TimelineCrop) Equal(o TimelineCrop) bool {
	return equalBound(c.Start, o.Start) && equalBound(c.End, o.End)
}

// Bounds resolves the crop against a natural duration.
func (c TimelineCrop) Bounds(duration float64) (start, end float64) {
	end = duration
	if c.Start != nil {
		start = *c.Start
	}
	if c.End != nil {
		end = *c.End
	}
	return start, end
}

// Length is the cropped duration in seconds, never negative.
func (c TimelineCrop) Length(duration float64) float64 {
	start, end := c.Bounds(duration)
	if end < start {
		return 0
	}
	return end - start
}

// Normalize clamps both bounds into [0, duration] and swaps them if they are
// out of order. A zero or negative duration disables the upper clamp.
func (c TimelineCrop) Normalize(duration float64) TimelineCrop {
	clamp := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		x := *v
		if x < 0 {
			x = 0
		}
		if duration > 0 && x > duration {
			x = duration
		}
		return &x
	}

	out := TimelineCrop{Start: clamp(c.Start), End: clamp(c.End)}
	if out.Start != nil && out.End != nil && *out.Start > *out.End {
		out.Start, out.End = out.End, out.Start
	}
	return out
}

// Clone returns a crop that shares no pointers with c.
func (c TimelineCrop) Clone() TimelineCrop {
	var out TimelineCrop
	if c.Start != nil {
		out.Start = Seconds(*c.Start)
	}
	if c.End != nil {
		out.End = Seconds(*c.End)
	}
	return out
}

func equalBound(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
