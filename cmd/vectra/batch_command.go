package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Convert many images under one handle",
	}
	batchCmd.AddCommand(newBatchSubmitCommand(ctx))
	batchCmd.AddCommand(newBatchStatusCommand(ctx))
	batchCmd.AddCommand(newBatchDownloadCommand(ctx))
	return batchCmd
}

func newBatchSubmitCommand(ctx *commandContext) *cobra.Command {
	var flags optionFlags

	cmd := &cobra.Command{
		Use:   "submit <image>...",
		Short: "Submit multiple images as one batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			summary, err := client.batchSubmit(cmd.Context(), args, flags.values())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Batch %s\n", summary.BatchID)
			for _, item := range summary.Items {
				if item.Error != "" {
					fmt.Fprintf(out, "  %s: rejected (%s)\n", item.Filename, item.Error)
					continue
				}
				fmt.Fprintf(out, "  %s: job %s\n", item.Filename, item.JobID)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newBatchStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <batch-id>",
		Short: "Show aggregate batch progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.batchStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Batch %s: %d%% (%d done, %d failed, %d cancelled, %d pending of %d)\n",
				status.BatchID, status.Progress, status.Completed, status.Failed,
				status.Cancelled, status.Pending, status.Total)
			renderJobTable(cmd, status.Jobs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON")
	return cmd
}

func newBatchDownloadCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <batch-id>",
		Short: "Download the finished results as a ZIP archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			target := output
			if target == "" {
				target = "batch-" + args[0] + ".zip"
			}
			file, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("create archive file: %w", err)
			}
			defer file.Close()
			if err := client.batchDownload(cmd.Context(), args[0], file); err != nil {
				os.Remove(target)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive path (defaults to batch-<id>.zip)")
	return cmd
}
