package main

import (
	"context"
	"os"

	"github.com/desertthunder/g2commons/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	shared.LoadDotenv()

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	runner := NewRunner(RunnerConfig{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "g2commons",
		Usage:    "Transfer images from Google Drive & Photos to Wikimedia Commons",
		Version:  "1.0.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
