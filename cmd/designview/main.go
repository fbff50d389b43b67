// Command designview browses a design catalog and shows its 3D design
// files in the terminal.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/taigrr/designview/internal/config"
	"github.com/taigrr/designview/internal/logger"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "designview"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state every subcommand shares once flags are parsed.
type app struct {
	flags config.Flags
	cfg   *config.Config
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Design catalog and terminal 3D viewer",
		Long: `designview keeps a catalog of materials, requirements and design files,
serves it over HTTP, and renders design files (glTF/GLB, STL, STEP) in the
terminal with orbit controls.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(&a.flags)
			if err != nil {
				return err
			}
			a.cfg = cfg

			// The terminal viewer owns the screen; keep console logs off it.
			console := cmd.Name() != "view"
			return logger.Init(cfg.Logging.Level, cfg.Logging.LogFile, console)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	a.flags.Register(cmd.PersistentFlags())

	cmd.AddCommand(
		a.viewCmd(),
		a.snapshotCmd(),
		a.serveCmd(),
		a.catalogCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}
