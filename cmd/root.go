package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "modelrelay",
	Short: "OpenAI-compatible translating proxy",
	Long:  "OpenAI-compatible reverse proxy that rewrites model names and relays chat, image, and model-listing requests to a single upstream.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	rootCmd.SilenceUsage = true
}
