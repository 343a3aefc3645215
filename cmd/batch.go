package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/imageproxy/internal/config"
	"github.com/kozaktomas/imageproxy/internal/pipeline"
	"github.com/kozaktomas/imageproxy/internal/ratio"
)

var batchCmd = &cobra.Command{
	Use:   "batch [requests.json]",
	Short: "Generate a batch of images from a JSON request file",
	Long: `Batch reads a JSON array of generation requests and runs them
concurrently under a bounded limit. Items fail independently; the
command reports per-item outcomes and an overall summary.

Request file format:
  [
    {"prompt": "a lighthouse", "ratio": "16:9", "topics": ["coast"]},
    {"prompt": "a tall banner", "ratio": "2:7", "style": "flat"}
  ]`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("max-concurrent", 2, "Maximum number of generations in flight")
	batchCmd.Flags().Bool("remove-background", false, "Strip near-white background on every item")
}

// batchItem is one entry of the request file.
type batchItem struct {
	Prompt         string   `json:"prompt"`
	Ratio          string   `json:"ratio"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	Topics         []string `json:"topics,omitempty"`
	Style          string   `json:"style,omitempty"`
	Anchor         string   `json:"anchor,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read request file: %w", err)
	}

	var items []batchItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to parse request file: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("request file contains no items")
	}

	removeBackground := mustGetBool(cmd, "remove-background")
	requests := make([]pipeline.Request, len(items))
	for i, item := range items {
		requests[i] = pipeline.Request{
			Prompt:           item.Prompt,
			TargetRatio:      item.Ratio,
			NegativePrompt:   item.NegativePrompt,
			Topics:           item.Topics,
			Style:            item.Style,
			Anchor:           ratio.Anchor(item.Anchor),
			RemoveBackground: removeBackground,
		}
	}

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

	p, cleanup, err := buildPipeline(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	bar := progressbar.NewOptions(len(items),
		progressbar.OptionSetDescription("Generating"),
		progressbar.OptionShowCount(),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	result := p.RunBatch(ctx, requests, mustGetInt(cmd, "max-concurrent"), func(_, _ int) {
		bar.Add(1)
	})
	fmt.Println()

	for i, item := range result.Items {
		if item.Err != nil {
			fmt.Printf("  [%d] FAILED %q: %v\n", i, items[i].Prompt, item.Err)
			continue
		}
		r := item.Result
		switch {
		case r.CacheHit:
			fmt.Printf("  [%d] cache hit: %s\n", i, r.FinalPath())
		case r.CacheFallback:
			fmt.Printf("  [%d] cache fallback: %s\n", i, r.FinalPath())
		default:
			fmt.Printf("  [%d] %s: %s\n", i, r.GeneratorName, r.FinalPath())
		}
	}

	fmt.Printf("\nDone: %d/%d succeeded, %d failed\n",
		result.SuccessCount, result.TotalRequested, result.FailureCount)

	if !result.Succeeded() {
		return fmt.Errorf("%d of %d items failed", result.FailureCount, result.TotalRequested)
	}
	return nil
}
