package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newSegmentCommand(ctx *commandContext) *cobra.Command {
	segmentCmd := &cobra.Command{
		Use:   "segment",
		Short: "Edit the layers of a finished job",
	}
	segmentCmd.AddCommand(newRecolorCommand(ctx))
	segmentCmd.AddCommand(newMergeCommand(ctx))
	segmentCmd.AddCommand(newSplitCommand(ctx))
	segmentCmd.AddCommand(newDeleteCommand(ctx))
	return segmentCmd
}

func newRecolorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recolor <job-id> <layer-index> <color>",
		Short: "Change a layer's fill color",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			snap, err := client.recolor(cmd.Context(), args[0], index, args[2])
			if err != nil {
				return err
			}
			renderSnapshot(cmd, snap)
			return nil
		},
	}
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <job-id> <first-index> <second-index>",
		Short: "Merge two layers; the lower index keeps its color",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			first, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			second, err := strconv.Atoi(args[2])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			snap, err := client.merge(cmd.Context(), args[0], first, second)
			if err != nil {
				return err
			}
			renderSnapshot(cmd, snap)
			return nil
		},
	}
}

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var parts int
	cmd := &cobra.Command{
		Use:   "split <job-id> <layer-index>",
		Short: "Split a layer into spatial parts that keep its color",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			snap, err := client.split(cmd.Context(), args[0], index, parts)
			if err != nil {
				return err
			}
			renderSnapshot(cmd, snap)
			return nil
		},
	}
	cmd.Flags().IntVar(&parts, "parts", 2, "number of parts to split the layer into")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id> <layer-index>",
		Short: "Remove a layer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			snap, err := client.deleteLayer(cmd.Context(), args[0], index)
			if err != nil {
				return err
			}
			renderSnapshot(cmd, snap)
			return nil
		},
	}
}
