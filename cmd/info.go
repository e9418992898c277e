package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/lepinkainen/equirender/media"
	"github.com/lepinkainen/equirender/types"
	"github.com/lepinkainen/equirender/ui"
	"github.com/lepinkainen/equirender/utils"
)

// InfoCmd probes input videos and reports whether they can be converted.
type InfoCmd struct {
	Files []string `arg:"" name:"files" help:"Input videos or directories" type:"path"`
}

// Run prints the probe result of every input and a summary line.
func (cmd *InfoCmd) Run(app *types.AppContext) error {
	cfg := appConfig(app)
	if err := checkTools(app, utils.ToolPaths{FFprobe: cfg.Tools.FFprobe}); err != nil {
		return err
	}

	infos, err := probeInputs(context.Background(), app, cmd.Files)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("🎯 No input videos found.")
		return nil
	}

	fmt.Printf("%s\n", ui.InfoStyle.Render(fmt.Sprintf("Probing %d files...", len(infos))))

	var ready, unusable int
	for _, info := range infos {
		fmt.Print(formatInfo(info))
		if info.MatchesFormat {
			ready++
		} else {
			unusable++
		}
	}

	fmt.Printf("\n%s\n", ui.InfoStyle.Render(fmt.Sprintf("✅ Ready: %d, ⚠️  Not convertible: %d", ready, unusable)))
	return nil
}

func formatInfo(info media.InputVideoInfo) string {
	var status string
	switch {
	case info.MatchesFormat:
		status = ui.SuccessStyle.Render("✅ " + info.Filename)
	case info.IsValid:
		status = ui.WarningStyle.Render("⚠️  " + info.Filename)
	default:
		status = ui.ErrorStyle.Render("❌ " + info.Filename)
	}

	s := status + "\n"
	if info.IsValid {
		s += fmt.Sprintf("   ⏱  Duration: %s\n", (time.Duration(info.Duration * float64(time.Second))).Round(time.Millisecond))
		s += fmt.Sprintf("   📏 Size: %.1f MB\n", float64(info.Size)/(1024*1024))
		if !info.CreatedAt.IsZero() {
			s += fmt.Sprintf("   📅 Created: %s\n", info.CreatedAt.Format(time.RFC3339))
		}
	}
	for _, issue := range info.Issues {
		s += fmt.Sprintf("   ⚠️  %s\n", issue)
	}
	return s
}
