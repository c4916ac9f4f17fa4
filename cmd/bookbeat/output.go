package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jmagar/bookbeat-cli/internal/download"
	"github.com/jmagar/bookbeat-cli/internal/model"
	"github.com/jmagar/bookbeat-cli/internal/store"
	"github.com/jmagar/bookbeat-cli/internal/ui"
)

func printEnvironment(configPath string, cfg *model.Config) {
	ui.PrintHeader("BookBeat")
	ui.PrintKeyValue("Config File", configPath, ui.ColorCyan)
	ui.PrintKeyValue("Auth", ui.DescribeAuthStatus(cfg), ui.ColorYellow)
	ui.PrintKeyValue("Market", cfg.Market, ui.ColorYellow)
	ui.PrintKeyValue("Languages", strings.Join(cfg.Search.Languages, ", "), ui.ColorYellow)
	ui.PrintKeyValue("Formats", ui.DescribeFormats(cfg.Formats()), ui.ColorYellow)
	ui.PrintKeyValue("Output", cfg.Download.OutPath, ui.ColorGreen)
	ui.PrintKeyValue("Workers", fmt.Sprint(cfg.Download.Workers), ui.ColorYellow)
	fmt.Println()
}

func printResult(r download.Result) {
	name := r.Job.Label() + " " + ui.FormatIndicator(r.Job.Format)
	switch {
	case r.Err != nil:
		ui.PrintError(fmt.Sprintf("%s: %v", name, r.Err))
	case r.Skipped:
		ui.PrintSkip(name + " already downloaded")
	default:
		ui.PrintSuccess(fmt.Sprintf("%s %s %s (%s)", name, ui.SymbolArrow, r.Path, humanize.Bytes(uint64(r.Bytes))))
		if r.Warning != "" {
			ui.PrintWarning(r.Warning)
		}
	}
}

func printSummary(s download.Summary) {
	ui.PrintSection("Summary")
	ui.PrintKeyValue("Downloaded", fmt.Sprintf("%d (%s)", s.Completed, humanize.Bytes(uint64(s.Bytes))), ui.ColorGreen)
	ui.PrintKeyValue("Skipped", fmt.Sprint(s.Skipped), ui.ColorPurple)
	color := ui.ColorGreen
	if s.Failed > 0 {
		color = ui.ColorRed
	}
	ui.PrintKeyValue("Failed", fmt.Sprint(s.Failed), color)
}

func printHistory(h *store.History) error {
	entries, err := h.Entries()
	if err != nil {
		return fmt.Errorf("read download history: %w", err)
	}
	if len(entries) == 0 {
		ui.PrintInfo("No downloads recorded yet.")
		return nil
	}
	table := ui.NewTable([]ui.TableColumn{
		{Header: "Title", Width: 40},
		{Header: "ISBN", Width: 15},
		{Header: "Size", Width: 10, Align: ui.AlignRight},
		{Header: "Downloaded", Width: 16},
		{Header: "Path", Width: 40},
	})
	for _, e := range entries {
		table.AddRow(e.Title, e.ContentID, humanize.Bytes(uint64(e.Bytes)),
			e.Downloaded.Local().Format("2006-01-02 15:04"), e.Path)
	}
	table.Print()
	return nil
}
