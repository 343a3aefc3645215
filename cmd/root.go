package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "imageproxy",
	Short: "A proxy for text-to-image generation with ratio mapping and fallbacks",
	Long: `Imageproxy generates images at arbitrary aspect ratios on top of
backends that only support a fixed ratio set. It maps the requested
ratio onto the closest containing supported ratio, crops the result
back to the exact target, retries transient backend failures across
a fallback chain, and serves semantically similar cached images when
every backend fails.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
