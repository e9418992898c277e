package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/lepinkainen/equirender/codecs"
	"github.com/lepinkainen/equirender/types"
	"github.com/lepinkainen/equirender/ui"
	"github.com/lepinkainen/equirender/utils"
)

// CodecsCmd lists the codecs and containers of the installed ffmpeg.
type CodecsCmd struct {
	Kind   string `help:"Only show entries of this kind" enum:"all,container,video,audio,subtitle,data" default:"all"`
	Encode bool   `help:"Only show entries ffmpeg can encode"`
	Search string `arg:"" optional:"" help:"Only show entries whose name or description contains this text"`
}

// Matches reports whether e passes the command's filters.
func (cmd *CodecsCmd) Matches(e codecs.Entry) bool {
	if cmd.Kind != "" && cmd.Kind != "all" && e.Kind() != cmd.Kind {
		return false
	}
	if cmd.Encode && !e.CanEncode {
		return false
	}
	if cmd.Search != "" {
		needle := strings.ToLower(cmd.Search)
		if !strings.Contains(strings.ToLower(e.Name), needle) && !strings.Contains(strings.ToLower(e.Description), needle) {
			return false
		}
	}
	return true
}

func (cmd *CodecsCmd) Run(app *types.AppContext) error {
	cfg := appConfig(app)
	if err := checkTools(app, utils.ToolPaths{FFmpeg: cfg.Tools.FFmpeg}); err != nil {
		return err
	}

	catalog, err := codecs.Load(context.Background(), appLauncher(app), cfg.Tools.FFmpeg)
	if err != nil {
		return err
	}

	entries := catalog.Filter(cmd.Matches)
	if len(entries) == 0 {
		fmt.Println("No matching codecs or containers.")
		return nil
	}

	kind := ""
	for _, e := range entries {
		if e.Kind() != kind {
			kind = e.Kind()
			fmt.Printf("\n%s\n", ui.HeaderStyle.Render(strings.ToUpper(kind)))
		}
		fmt.Printf("  %s %-20s %s\n", codecFlags(e), e.Name, e.Description)
	}

	if !catalog.CanEncodeVideo(cfg.Output.VideoCodec) {
		fmt.Printf("\n%s\n", ui.ErrorStyle.Render(fmt.Sprintf("⚠️  Configured codec %s cannot be encoded by this ffmpeg", cfg.Output.VideoCodec)))
	}
	return nil
}

func codecFlags(e codecs.Entry) string {
	flag := func(set bool, c byte) byte {
		if set {
			return c
		}
		return '.'
	}
	return string([]byte{
		flag(e.CanDecode, 'D'),
		flag(e.CanEncode, 'E'),
		flag(e.IsIntraOnly, 'I'),
		flag(e.IsLossy, 'L'),
		flag(e.IsLossless, 'S'),
	})
}
