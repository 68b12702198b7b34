package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// optionFlags are the conversion settings shared by submit and batch.
type optionFlags struct {
	mode             string
	colors           int
	detail           int
	smoothing        int
	despeckle        int
	cornerThreshold  int
	removeBackground bool
}

func (f *optionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", "", "Conversion mode: auto, photo, logo, line-art, pixel-art")
	cmd.Flags().IntVar(&f.colors, "colors", -1, "Palette size (0 = auto)")
	cmd.Flags().IntVar(&f.detail, "detail", 0, "Path detail 1-5")
	cmd.Flags().IntVar(&f.smoothing, "smoothing", -1, "Curve smoothing 0-100")
	cmd.Flags().IntVar(&f.despeckle, "despeckle", -1, "Minimum speckle size in pixels")
	cmd.Flags().IntVar(&f.cornerThreshold, "corner-threshold", -1, "Corner preservation angle in degrees")
	cmd.Flags().BoolVar(&f.removeBackground, "remove-background", false, "Strip the dominant border color")
}

// values renders only the flags the user actually set, so server-side
// defaults stay in charge of the rest.
func (f *optionFlags) values() map[string]string {
	opts := make(map[string]string)
	if f.mode != "" {
		opts["mode"] = f.mode
	}
	if f.colors >= 0 {
		opts["colors"] = strconv.Itoa(f.colors)
	}
	if f.detail > 0 {
		opts["detail"] = strconv.Itoa(f.detail)
	}
	if f.smoothing >= 0 {
		opts["smoothing"] = strconv.Itoa(f.smoothing)
	}
	if f.despeckle >= 0 {
		opts["despeckle"] = strconv.Itoa(f.despeckle)
	}
	if f.cornerThreshold >= 0 {
		opts["corner_threshold"] = strconv.Itoa(f.cornerThreshold)
	}
	if f.removeBackground {
		opts["remove_background"] = "true"
	}
	return opts
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var flags optionFlags
	var watch bool

	cmd := &cobra.Command{
		Use:   "submit <image>",
		Short: "Submit an image for vectorization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			jobID, err := client.submit(cmd.Context(), args[0], flags.values())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s\n", jobID)
			if !watch {
				return nil
			}
			return watchJob(cmd, client, jobID)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until the job reaches a terminal state")
	return cmd
}

func watchJob(cmd *cobra.Command, client *apiClient, jobID string) error {
	out := cmd.OutOrStdout()
	lastProgress := -1
	for {
		snap, err := client.status(cmd.Context(), jobID)
		if err != nil {
			return err
		}
		if snap.Progress != lastProgress {
			lastProgress = snap.Progress
			stage := snap.Stage
			if stage == "" {
				stage = string(snap.State)
			}
			fmt.Fprintf(out, "%3d%%  %s\n", snap.Progress, stage)
		}
		if snap.State.IsTerminal() {
			renderSnapshot(cmd, snap)
			if snap.Error != "" {
				return fmt.Errorf("job failed: %s", snap.Error)
			}
			return nil
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}
