// Package cli wires the command surface: run a configuration file, the
// quick-start mode, config validation and the stop command.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vitaliisemenov/gatehouse/internal/config"
	"github.com/vitaliisemenov/gatehouse/internal/process"
	"github.com/vitaliisemenov/gatehouse/internal/server"
	"github.com/vitaliisemenov/gatehouse/pkg/logger"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	var (
		configFile string
		testOnly   bool
		logLevel   string
		logFormat  string
	)

	root := &cobra.Command{
		Use:           config.ServerName,
		Short:         "Multi-site HTTP front-end server",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFile
			if path == "" {
				path = config.DefaultConfigPath()
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if testOnly {
				fmt.Printf("There are no errors in the configuration file '%s'\n", path)
				return nil
			}
			return run(cfg, logLevel, logFormat)
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "diagnostic log level")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "diagnostic log format (text or json)")
	root.Flags().BoolVarP(&testOnly, "test", "t", false, "validate the configuration and exit")

	root.AddCommand(newStartCommand(&logLevel, &logFormat))
	root.AddCommand(newStopCommand())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", config.ServerName, config.Version)
		},
	})

	return root
}

func newStartCommand(logLevel, logFormat *string) *cobra.Command {
	var (
		bind string
		dir  string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve a directory with an ephemeral single-site configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := config.ResolveListen(bind)
			if err != nil {
				return err
			}

			root := dir
			if root == "" {
				root, err = os.Getwd()
				if err != nil {
					return err
				}
			}
			root, err = filepath.Abs(root)
			if err != nil {
				return err
			}

			fmt.Printf("Serving path   : %s\n", root)
			fmt.Printf("Serving address: http://%s\n", addr)

			cfg := &config.Config{Servers: []*config.ServerConfig{config.QuickStart(root, addr)}}
			return run(cfg, *logLevel, *logFormat)
		},
	}

	cmd.Flags().StringVarP(&bind, "bind", "b", config.DefaultStartAddr, "bind address")
	cmd.Flags().StringVarP(&dir, "path", "p", "", "directory to serve (default: working directory)")

	return cmd
}

func newStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return process.Stop(config.PidPath())
		},
	}
}

// run starts the listeners and blocks until a termination signal.
func run(cfg *config.Config, logLevel, logFormat string) error {
	log := logger.New(logger.Config{Level: logLevel, Format: logFormat})

	if err := process.WritePid(config.PidPath()); err != nil {
		log.Warn("cannot write pid file", "error", err)
	} else {
		defer process.RemovePid(config.PidPath())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, log).Run(ctx)
}
