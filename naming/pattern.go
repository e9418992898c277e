// Package naming expands output filename patterns.
//
// Supported tokens:
//
//	%o  original base name (no directory, no extension)
//	%e  original extension without the dot
//	%c  crop span, start and end (e.g. 00-00-12_00-00-30)
//	%s  crop start
//	%f  crop end
//	%d  creation date (2006-01-02)
//	%t  creation time (15-04-05)
//	%y  yaw, %p pitch, %r roll
//	%%  a literal percent sign
//
// Unknown tokens are kept verbatim.
package naming

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lepinkainen/equirender/pool"
)

// DefaultPattern is used when no pattern is configured.
const DefaultPattern = "%o"

const invalidChars = `<>:"/\|?*`

// GetFilenameFromPattern expands pattern for s. The result has no extension
// and contains no path separators.
func GetFilenameFromPattern(pattern string, s pool.Settings) string {
	if pattern == "" {
		pattern = DefaultPattern
	}

	start, end := s.Crop.Bounds(s.Info.Duration)

	var sb strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' || i == len(pattern)-1 {
			sb.WriteByte(c)
			continue
		}

		i++
		switch pattern[i] {
		case 'o':
			sb.WriteString(s.Info.BaseName())
		case 'e':
			sb.WriteString(strings.TrimPrefix(filepath.Ext(s.Info.Filename), "."))
		case 'c':
			sb.WriteString(FormatTimestamp(start))
			sb.WriteByte('_')
			sb.WriteString(FormatTimestamp(end))
		case 's':
			sb.WriteString(FormatTimestamp(start))
		case 'f':
			sb.WriteString(FormatTimestamp(end))
		case 'd':
			sb.WriteString(s.Info.CreatedAt.Format("2006-01-02"))
		case 't':
			sb.WriteString(s.Info.CreatedAt.Format("15-04-05"))
		case 'y':
			sb.WriteString(strconv.Itoa(s.Rotation.Yaw))
		case 'p':
			sb.WriteString(strconv.Itoa(s.Rotation.Pitch))
		case 'r':
			sb.WriteString(strconv.Itoa(s.Rotation.Roll))
		case '%':
			sb.WriteByte('%')
		default:
			sb.WriteByte('%')
			sb.WriteByte(pattern[i])
		}
	}

	return Sanitize(sb.String())
}

// Preview expands pattern against the dummy video.
func Preview(pattern string) string {
	return GetFilenameFromPattern(pattern, pool.Dummy().Settings())
}

// FormatTimestamp renders seconds as HH-MM-SS, truncated to whole seconds.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%02d-%02d-%02d", total/3600, (total/60)%60, total%60)
}

// Sanitize replaces characters that are not valid in filenames.
func Sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(invalidChars, r) {
			return '_'
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}
