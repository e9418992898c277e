package config

import (
	"fmt"
	"strings"

	"github.com/lepinkainen/equirender/logging"
)

var presets = []string{"ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow", "placebo"}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errors []string

	if c.Tools.FFmpeg == "" {
		errors = append(errors, "tools.ffmpeg is required")
	}
	if c.Tools.FFprobe == "" {
		errors = append(errors, "tools.ffprobe is required")
	}
	if c.Tools.Tagger == "" {
		errors = append(errors, "tools.tagger is required")
	}

	// 0 means auto-detect
	if c.Thumbnails.MaxWorkers < 0 {
		errors = append(errors, "thumbnails.max_workers cannot be negative (use 0 for auto-detect)")
	}
	if c.Thumbnails.PositionPercent < 0 || c.Thumbnails.PositionPercent > 100 {
		errors = append(errors, "thumbnails.position_percent must be between 0 and 100")
	}
	if c.Thumbnails.Width < 16 {
		errors = append(errors, "thumbnails.width must be at least 16")
	}

	if c.Snapshots.FrameCount < 2 {
		errors = append(errors, "snapshots.frame_count must be at least 2")
	}
	if c.Snapshots.Width < 16 || c.Snapshots.Width%2 != 0 {
		errors = append(errors, "snapshots.width must be an even number of at least 16")
	}

	if c.Output.CRF < 0 || c.Output.CRF > 51 {
		errors = append(errors, "output.crf must be between 0 and 51")
	}
	if c.Output.VideoCodec == "" {
		errors = append(errors, "output.video_codec is required")
	}
	if !isPreset(c.Output.Preset) {
		errors = append(errors, fmt.Sprintf("invalid output.preset '%s', must be one of: %s",
			c.Output.Preset, strings.Join(presets, ", ")))
	}

	if c.History.Enabled && c.History.Database == "" {
		errors = append(errors, "history.database is required when history is enabled")
	}

	if !logging.ValidLevel(c.Log.Level) {
		errors = append(errors, fmt.Sprintf("invalid log.level '%s', must be one of: error, warning, info, verbose", c.Log.Level))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func isPreset(p string) bool {
	for _, candidate := range presets {
		if p == candidate {
			return true
		}
	}
	return false
}
