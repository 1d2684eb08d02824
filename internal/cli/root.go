package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"sfmconv/internal/config"
)

// cfg supplies flag defaults from the environment and .env.
var cfg, cfgErr = loadConfig()

func loadConfig() (*config.Config, error) {
	c, err := config.Load()
	if err != nil {
		return &config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return c, nil
}

var rootCmd = &cobra.Command{
	Use:   "sfmconv",
	Short: "Video and image set to structure-from-motion converter",
	Long: `sfmconv turns a video or a folder of images into a sparse structure-from-motion
reconstruction (colmap database.db + sparse/0) using either colmap (SIFT) or
hloc (learned features such as SuperPoint + SuperGlue).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cfgErr
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
