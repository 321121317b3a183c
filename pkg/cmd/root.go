package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/agentpkg/srcdeps/pkg/config"
)

var (
	flagOffline     bool
	flagStoreDir    string
	flagConcurrency int
	flagLogLevel    string

	// DevCfg holds the resolved developer configuration, available to all
	// subcommands after PersistentPreRunE completes.
	DevCfg *config.DevConfig
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "srcdeps",
		Short: "Source dependency resolver",
		Long:  "srcdeps resolves module dependencies to working directories checked out from version control.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDevConfig(overrides(cmd))
			if err != nil {
				return err
			}
			level, err := cfg.SlogLevel()
			if err != nil {
				return err
			}
			DevCfg = cfg

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			cmd.SetContext(slogcontext.NewCtx(cmd.Context(), logger))
			return nil
		},
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&flagOffline, "offline", false, "resolve only from selections recorded by earlier builds")
	flags.StringVar(&flagStoreDir, "store-dir", "", "directory holding checkouts and the metadata cache")
	flags.IntVar(&flagConcurrency, "concurrency", config.DefaultConcurrency, "number of dependencies resolved at once")
	flags.StringVar(&flagLogLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(newInitCmd())
	root.AddCommand(newResolveCmd())
	root.AddCommand(newVersionsCmd())

	return root
}

// overrides returns the flags the user actually set.
func overrides(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	flags := cmd.Flags()
	if flags.Changed("offline") {
		o.Offline = &flagOffline
	}
	if flags.Changed("store-dir") {
		o.StoreDir = &flagStoreDir
	}
	if flags.Changed("concurrency") {
		o.Concurrency = &flagConcurrency
	}
	if flags.Changed("log-level") {
		o.LogLevel = &flagLogLevel
	}
	return o
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
