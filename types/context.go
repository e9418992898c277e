package types

import (
	"github.com/lepinkainen/equirender/config"
	"github.com/lepinkainen/equirender/logging"
	"github.com/lepinkainen/equirender/process"
)

// DefaultVersion is the fallback version when AppContext is nil
const DefaultVersion = "dev"

// AppContext holds application-wide context information passed to commands
type AppContext struct {
	Version    string
	Config     *config.Config
	ConfigPath string
	Logger     logging.Logger
	// Launcher starts ffmpeg, ffprobe and exiftool.
	Launcher process.Launcher
}

// VersionOrDefault returns the version, tolerating a nil context.
func (c *AppContext) VersionOrDefault() string {
	if c == nil || c.Version == "" {
		return DefaultVersion
	}
	return c.Version
}
