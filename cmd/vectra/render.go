package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"vectra/internal/job"
)

// renderSnapshot prints one job in a key-value layout.
func renderSnapshot(cmd *cobra.Command, snap job.Snapshot) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:      %s\n", snap.JobID)
	fmt.Fprintf(out, "State:    %s\n", snap.State)
	fmt.Fprintf(out, "Progress: %d%%\n", snap.Progress)
	if snap.Stage != "" {
		fmt.Fprintf(out, "Stage:    %s\n", snap.Stage)
	}
	if snap.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", snap.Error)
	}
	if snap.Layers > 0 {
		fmt.Fprintf(out, "Layers:   %d\n", snap.Layers)
		fmt.Fprintf(out, "Colors:   %s\n", strings.Join(snap.Colors, " "))
	}
	if snap.SVGURL != "" {
		fmt.Fprintf(out, "SVG:      %s\n", snap.SVGURL)
	}
}

// renderJobTable prints jobs as a table on terminals and as plain columns
// when output is redirected.
func renderJobTable(cmd *cobra.Command, snaps []job.Snapshot) {
	out := cmd.OutOrStdout()
	if len(snaps) == 0 {
		fmt.Fprintln(out, "No jobs.")
		return
	}

	if !stdoutIsTerminal() {
		for _, snap := range snaps {
			fmt.Fprintf(out, "%s\t%s\t%d%%\t%s\n", snap.JobID, snap.State, snap.Progress, snap.Filename)
		}
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Job", "State", "Progress", "Layers", "File"})
	for _, snap := range snaps {
		layers := ""
		if snap.Layers > 0 {
			layers = strconv.Itoa(snap.Layers)
		}
		tw.AppendRow(table.Row{snap.JobID, string(snap.State),
			strconv.Itoa(snap.Progress) + "%", layers, snap.Filename})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	fmt.Fprintln(out, tw.Render())
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
