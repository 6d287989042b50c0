package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"levelsense/internal/config"
	"levelsense/internal/web"
)

var (
	flagConfig      string
	flagDemo        bool
	flagRecord      string
	flagPrintAngles bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "levelsense",
		Short: "Spirit level daemon for headless Linux boards",
		Long: `levelsense reads tilt from an accelerometer (or a built-in demo source),
keeps a filtered pitch/roll estimate with persisted calibration, and
serves the result over HTTP, WebSocket, MQTT and a BLE advertisement.
Audible and haptic feedback guide levelling without a screen.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().StringVar(&flagConfig, "config", "levelsense.yaml", "Path to YAML config")
	rootCmd.Flags().BoolVar(&flagDemo, "demo", false, "Use the built-in demo source (no hardware required)")
	rootCmd.Flags().StringVar(&flagRecord, "record", "", "Record raw samples to the given NDJSON file")
	rootCmd.Flags().BoolVar(&flagPrintAngles, "print-angles", false, "Log the filtered angles once per second")

	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Everything logged from here on is also kept for the logs endpoint.
	logbuf := web.NewLogBuffer(cfg.Log.BufferLines)
	log.SetOutput(io.MultiWriter(os.Stderr, logbuf))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("levelsense starting")
	rt, err := newRuntime(ctx, cancel, cfg, options{
		demo:        flagDemo,
		recordPath:  flagRecord,
		printAngles: flagPrintAngles,
	}, logbuf)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Printf("levelsense stopping")
	rt.Close()
	return nil
}

// loadConfig reads the config file. The default path may be absent (the
// daemon runs fine on defaults), but a path given explicitly must
// exist.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err == nil {
		return cfg, nil
	}
	if os.IsNotExist(err) && !cmd.Flags().Changed("config") {
		log.Printf("config: %s not found, using defaults", flagConfig)
		cfg = config.Default()
		if err := config.DefaultAndValidate(&cfg); err != nil {
			return config.Config{}, err
		}
		return cfg, nil
	}
	return config.Config{}, fmt.Errorf("config load failed: %w", err)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			info := web.BuildInfo()
			version := info.Version
			if version == "" {
				version = "devel"
			}
			fmt.Printf("levelsense %s\n", version)
			fmt.Printf("  go:     %s\n", info.GoVersion)
			if info.Commit != "" {
				dirty := ""
				if info.Dirty {
					dirty = " (dirty)"
				}
				fmt.Printf("  commit: %s%s\n", info.Commit, dirty)
			}
			if info.BuildTime != "" {
				fmt.Printf("  built:  %s\n", info.BuildTime)
			}
		},
	}
}
