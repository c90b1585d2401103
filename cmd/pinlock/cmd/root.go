package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/pinlock/internal/config"
	"github.com/jmcleod/pinlock/internal/logger"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pinlock",
	Short: "pinlock is a PIN-locked local session service",
	Long: `pinlock keeps locally persisted application state encrypted under a key
derived from a short PIN, and gates access to the remote business tables
behind an unlocked PIN plus two-factor sign-in.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Path to config file (default ./pinlock.yaml or /etc/pinlock/pinlock.yaml)")
	pf.String("store.driver", "bbolt", "Local store driver: bbolt, sqlite or memory")
	pf.String("store.path", "./data/pinlock.db", "Local store file")
	pf.Bool("kdf.fixed_salt", false, "Derive keys with the application-wide salt instead of a per-install salt")
	pf.String("log.level", "info", "Log level: debug, info, warn or error")
	pf.String("log.format", "json", "Log format: json or text")
}

// loadConfig merges file, environment and the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}
