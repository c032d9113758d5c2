package main

import (
	"fmt"

	"sitterfeed/internal/config"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("sitterfeed")

var (
	configPath string
	verbosity  int
	logFile    string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sitterfeed",
	Short: "Feed source text to tree-sitter without loading whole files",
	Long: `sitterfeed parses source files through pull-based input providers.
Files are read one line at a time, callback producers lend chunks that are
released before the next request, and remote producers are reached over a
websocket.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")

	// Add subcommands
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and configures logging for every command.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Default()
	}

	if verbosity > 0 {
		cfg.Verbosity = verbosity
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}

	var path *string
	if cfg.LogFile != "" {
		path = &cfg.LogFile
	}
	commonlog.Configure(cfg.Verbosity, path)
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
