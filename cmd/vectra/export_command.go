package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format string
	var resolution int
	var quality int
	var output string

	cmd := &cobra.Command{
		Use:   "export <job-id>",
		Short: "Download a finished job in the chosen format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			jobID := args[0]
			target := output
			if target == "" {
				target = jobID + "." + format
			}
			file, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer file.Close()

			if err := client.export(cmd.Context(), jobID, format, resolution, quality, file); err != nil {
				os.Remove(target)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "svg", "Export format: svg, png, jpg, gif, bmp, tiff")
	cmd.Flags().IntVar(&resolution, "resolution", 0, "PNG scale multiplier 1-4")
	cmd.Flags().IntVar(&quality, "quality", 0, "JPEG quality 60-100")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (defaults to <job-id>.<format>)")
	return cmd
}
