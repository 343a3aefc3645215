package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/imageproxy/internal/ratio"
)

var planCmd = &cobra.Command{
	Use:   "plan [target-ratio]",
	Short: "Show the generation strategy for a target aspect ratio",
	Long: `Plan resolves how a target ratio like "2:7" would be produced:
either generated directly when the backends support it natively, or
generated at the closest containing supported ratio and cropped.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().Int("width", 0, "Preview the crop box for a source image of this width")
	planCmd.Flags().Int("height", 0, "Preview the crop box for a source image of this height")
	planCmd.Flags().String("anchor", "center", "Crop anchor: center, top, bottom, left, right, smart")
}

func runPlan(cmd *cobra.Command, args []string) error {
	logf := func(format string, a ...any) {
		fmt.Printf("note: "+format+"\n", a...)
	}

	plan, err := ratio.Plan(args[0], logf)
	if err != nil {
		return err
	}

	fmt.Printf("Target ratio:  %s\n", plan.TargetRatio)
	fmt.Printf("Source ratio:  %s\n", plan.SourceRatio)
	fmt.Printf("Requires crop: %v\n", plan.RequiresCrop)
	fmt.Printf("Strategy:      %s\n", plan.Strategy)

	width := mustGetInt(cmd, "width")
	height := mustGetInt(cmd, "height")
	if width > 0 && height > 0 {
		anchor := ratio.Anchor(mustGetString(cmd, "anchor"))
		box, err := ratio.ComputeCropBox(width, height, plan.TargetRatio, anchor)
		if err != nil {
			return err
		}
		fmt.Printf("Crop box for %dx%d source (%s anchor): left=%d top=%d right=%d bottom=%d (%dx%d)\n",
			width, height, anchor, box.Left, box.Top, box.Right, box.Bottom, box.Width(), box.Height())
	}

	return nil
}
