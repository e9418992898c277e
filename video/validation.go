package video

import (
	"path/filepath"
	"regexp"
	"strings"
)

// intermediateRegex matches files this program writes while working: partial
// conversions and temporary key-frame or thumbnail renders.
var intermediateRegex = regexp.MustCompile(`(\.[0-9a-f-]{36}\.partial\.mp4|^equirender-(keyframes|thumb|snapshot)-.*)$`)

var inputExtensions = []string{".360", ".mp4", ".mov"}

// IsInputFile checks if the file extension is one the converter accepts
func IsInputFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path)) // handle cases where extension is upper case

	for _, v := range inputExtensions {
		if v == ext {
			return true
		}
	}
	return false
}

// IsNativeCapture reports whether path has the camera's native .360 extension.
func IsNativeCapture(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".360")
}

// IsIntermediate checks if a file was produced by an unfinished or temporary render
func IsIntermediate(path string) bool {
	return intermediateRegex.MatchString(filepath.Base(path))
}

// classifyProbeFailure turns ffprobe diagnostics into a readable issue.
func classifyProbeFailure(output string) string {
	if strings.Contains(output, "moov atom not found") {
		return "video file is corrupted (missing metadata): " + extractFirstLine(output)
	}
	if strings.Contains(output, "Invalid data found") ||
		strings.Contains(output, "corrupt") ||
		strings.Contains(output, "truncated") ||
		strings.Contains(output, "Invalid argument") {
		return "video file is corrupted or invalid: " + extractFirstLine(output)
	}

	return "ffprobe error: " + extractFirstLine(output)
}

// extractFirstLine extracts just the first line from a multi-line string
func extractFirstLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		return strings.TrimSpace(lines[0])
	}
	return "no additional information available"
}
