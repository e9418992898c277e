// Package config holds the tool paths and tunables read by the rest of the
// application.
package config

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
)

// Config is the complete application configuration.
type Config struct {
	Tools      ToolsConfig     `yaml:"tools"`
	Thumbnails ThumbnailConfig `yaml:"thumbnails"`
	Snapshots  SnapshotConfig  `yaml:"snapshots"`
	Output     OutputConfig    `yaml:"output"`
	History    HistoryConfig   `yaml:"history"`
	Log        LogConfig       `yaml:"log"`
}

// ToolsConfig locates the external binaries.
type ToolsConfig struct {
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
	Tagger  string `yaml:"tagger"`
	TempDir string `yaml:"temp_dir"`
}

// ThumbnailConfig tunes the thumbnail workers.
type ThumbnailConfig struct {
	// MaxWorkers of 0 means one per physical core.
	MaxWorkers      int     `yaml:"max_workers"`
	PositionPercent float64 `yaml:"position_percent"`
	Width           int     `yaml:"width"`
}

// SnapshotConfig tunes multi-frame previews.
type SnapshotConfig struct {
	FrameCount int `yaml:"frame_count"`
	Width      int `yaml:"width"`
}

// OutputConfig controls full conversions.
type OutputConfig struct {
	Directory       string `yaml:"directory"`
	FilenamePattern string `yaml:"filename_pattern"`
	VideoCodec      string `yaml:"video_codec"`
	CRF             int    `yaml:"crf"`
	Preset          string `yaml:"preset"`
}

// HistoryConfig locates the conversion history database.
type HistoryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Database string `yaml:"database"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Tools: ToolsConfig{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			Tagger:  "exiftool",
		},
		Thumbnails: ThumbnailConfig{
			MaxWorkers:      0,
			PositionPercent: 10,
			Width:           320,
		},
		Snapshots: SnapshotConfig{
			FrameCount: 8,
			Width:      1920,
		},
		Output: OutputConfig{
			FilenamePattern: "%o",
			VideoCodec:      "libx264",
			CRF:             20,
			Preset:          "medium",
		},
		History: HistoryConfig{
			Enabled:  true,
			Database: DefaultHistoryPath(),
		},
		Log: LogConfig{
			Level: "warning",
		},
	}
}

// EffectiveThumbnailWorkers resolves MaxWorkers, detecting the physical core
// count when it is 0.
func (c *Config) EffectiveThumbnailWorkers() int {
	if c.Thumbnails.MaxWorkers > 0 {
		return c.Thumbnails.MaxWorkers
	}
	return DetectWorkers()
}

// DetectWorkers returns the number of physical cores, falling back to
// logical CPUs.
func DetectWorkers() int {
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
