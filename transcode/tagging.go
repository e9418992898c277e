package transcode

import (
	"context"

	"github.com/lepinkainen/equirender/process"
)

// sphericalTagArgs marks a file as stitched equirectangular 360 video
// using Google's spherical video XMP namespace.
func sphericalTagArgs(file string) []string {
	return []string{
		"-overwrite_original",
		"-api", "LargeFileSupport=1",
		"-XMP-GSpherical:Spherical=true",
		"-XMP-GSpherical:Stitched=true",
		"-XMP-GSpherical:StitchingSoftware=equirender",
		"-XMP-GSpherical:ProjectionType=equirectangular",
		file,
	}
}

func (o *Orchestrator) tagSpherical(ctx context.Context, file string) error {
	o.log.Verbose("tagging spherical metadata", "file", file)
	return process.Run(ctx, o.opts.Launcher, o.tagger, sphericalTagArgs(file), nil)
}
