package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/imageproxy/internal/config"
	"github.com/kozaktomas/imageproxy/internal/pipeline"
	"github.com/kozaktomas/imageproxy/internal/ratio"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate an image at an arbitrary aspect ratio",
	Long: `Generate produces an image for the prompt at the requested target
ratio. Unsupported ratios are generated at the closest containing
supported ratio and cropped. Transient backend failures are retried
and escalated along the fallback chain; when every backend fails, a
semantically similar cached image is served instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("ratio", "16:9", "Target aspect ratio, e.g. 16:9, 2:7")
	generateCmd.Flags().String("negative", "", "Negative prompt (things to avoid)")
	generateCmd.Flags().StringSlice("topics", nil, "Topic keywords for cache matching")
	generateCmd.Flags().String("style", "", "Style label for cache matching")
	generateCmd.Flags().String("anchor", "center", "Crop anchor: center, top, bottom, left, right, smart")
	generateCmd.Flags().Bool("remove-background", false, "Strip near-white background to transparency")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	logf := func(format string, a ...any) {
		fmt.Printf(format+"\n", a...)
	}

	p, cleanup, err := buildPipeline(ctx, cfg, logf)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := p.Run(ctx, pipeline.Request{
		Prompt:           args[0],
		TargetRatio:      mustGetString(cmd, "ratio"),
		NegativePrompt:   mustGetString(cmd, "negative"),
		Topics:           mustGetStringSlice(cmd, "topics"),
		Style:            mustGetString(cmd, "style"),
		Anchor:           ratio.Anchor(mustGetString(cmd, "anchor")),
		RemoveBackground: mustGetBool(cmd, "remove-background"),
	})
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

func printResult(result *pipeline.Result) {
	switch {
	case result.CacheHit:
		fmt.Printf("Cache hit (similarity %.2f): %s\n", result.Similarity, result.FinalPath())
	case result.CacheFallback:
		fmt.Printf("All backends failed, served cached image (similarity %.2f): %s\n",
			result.Similarity, result.FinalPath())
	default:
		fmt.Printf("Generated by %s", result.GeneratorName)
		if result.UsedFallback {
			fmt.Printf(" (fallback)")
		}
		fmt.Printf(" in %s\n", result.Elapsed.Round(time.Millisecond))
		fmt.Printf("Image: %s\n", result.FinalPath())
		if result.ThumbnailPath != "" {
			fmt.Printf("Thumbnail: %s\n", result.ThumbnailPath)
		}
	}
}
