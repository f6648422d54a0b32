package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-aggr/config"
	"go-aggr/util/logger"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	root := &cobra.Command{
		Use:           "aggr",
		Short:         "Mergeable MAX, MIN and variance aggregation over number streams",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.AddCommand(newRunCmd(), newMergeCmd(), newDropCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fatal(err)
	}
}

func loadConfig() (*config.AppConfig, error) {
	cfg := config.New()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fatal(val interface{}) {
	fmt.Fprintln(os.Stderr, "error:", val)
	os.Exit(1)
}
