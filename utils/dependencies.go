package utils

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ToolPaths names the external binaries a command needs. Empty fields are
// not checked.
type ToolPaths struct {
	FFmpeg  string
	FFprobe string
	Tagger  string
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// ValidateToolDependencies checks that every configured tool can be found,
// reporting all missing ones at once
func ValidateToolDependencies(tools ToolPaths) error {
	var missing []string

	for _, tool := range []struct {
		name, path, install string
	}{
		{"ffprobe", tools.FFprobe, getInstallationInstructions()},
		{"ffmpeg", tools.FFmpeg, getInstallationInstructions()},
		{"exiftool", tools.Tagger, getTaggerInstructions()},
	} {
		if tool.path == "" {
			continue
		}
		if _, err := lookPath(tool.path); err != nil {
			missing = append(missing, fmt.Sprintf("%s not found (%s). %s", tool.name, tool.path, tool.install))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing dependencies:\n  - %s", strings.Join(missing, "\n  - "))
	}
	return nil
}

// getInstallationInstructions returns platform-specific installation instructions
func getInstallationInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "Install with: brew install ffmpeg"
	case "linux":
		return "Install with: apt-get install ffmpeg (Ubuntu/Debian) or yum install ffmpeg (CentOS/RHEL)"
	case "windows":
		return "Download from https://ffmpeg.org/download.html and add to PATH"
	default:
		return "Download from https://ffmpeg.org/download.html"
	}
}

func getTaggerInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "Install with: brew install exiftool"
	case "linux":
		return "Install with: apt-get install libimage-exiftool-perl (Ubuntu/Debian) or yum install perl-Image-ExifTool (CentOS/RHEL)"
	default:
		return "Download from https://exiftool.org"
	}
}
