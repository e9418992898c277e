package utils

import (
	"errors"
	"runtime"
	"strings"
	"testing"
)

func stubLookPath(t *testing.T, available ...string) {
	t.Helper()
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	lookPath = func(file string) (string, error) {
		for _, a := range available {
			if a == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func TestValidateToolDependencies(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		tools     ToolPaths
		missing   []string
	}{
		{
			name:      "All available",
			available: []string{"ffmpeg", "ffprobe", "exiftool"},
			tools:     ToolPaths{FFmpeg: "ffmpeg", FFprobe: "ffprobe", Tagger: "exiftool"},
		},
		{
			name:      "Missing tagger",
			available: []string{"ffmpeg", "ffprobe"},
			tools:     ToolPaths{FFmpeg: "ffmpeg", FFprobe: "ffprobe", Tagger: "exiftool"},
			missing:   []string{"exiftool not found"},
		},
		{
			name:      "Missing everything",
			available: nil,
			tools:     ToolPaths{FFmpeg: "ffmpeg", FFprobe: "ffprobe", Tagger: "exiftool"},
			missing:   []string{"ffmpeg not found", "ffprobe not found", "exiftool not found"},
		},
		{
			name:      "Unchecked tools are skipped",
			available: []string{"ffprobe"},
			tools:     ToolPaths{FFprobe: "ffprobe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubLookPath(t, tt.available...)
			err := ValidateToolDependencies(tt.tools)

			if len(tt.missing) == 0 {
				if err != nil {
					t.Errorf("Expected validation to pass, got error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatal("Expected validation to fail")
			}
			for _, m := range tt.missing {
				if !strings.Contains(err.Error(), m) {
					t.Errorf("Expected error to mention %q, got: %v", m, err)
				}
			}
			if !strings.Contains(err.Error(), "Install with:") && !strings.Contains(err.Error(), "Download from") {
				t.Errorf("Expected error message to contain installation instructions, got: %v", err)
			}
		})
	}
}

func TestGetInstallationInstructions(t *testing.T) {
	instructions := getInstallationInstructions()

	// Test that instructions are not empty
	if instructions == "" {
		t.Error("Installation instructions should not be empty")
	}

	// Test platform-specific instructions
	switch runtime.GOOS {
	case "darwin":
		if !strings.Contains(instructions, "brew install ffmpeg") {
			t.Errorf("Expected macOS instructions to mention brew, got: %s", instructions)
		}
	case "linux":
		if !strings.Contains(instructions, "apt-get install ffmpeg") && !strings.Contains(instructions, "yum install ffmpeg") {
			t.Errorf("Expected Linux instructions to mention package managers, got: %s", instructions)
		}
	default:
		if !strings.Contains(instructions, "ffmpeg.org") {
			t.Errorf("Expected default instructions to mention ffmpeg.org, got: %s", instructions)
		}
	}

	if getTaggerInstructions() == "" {
		t.Error("Tagger installation instructions should not be empty")
	}
}
