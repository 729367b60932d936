package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"asthma_shield/internal/config"
	"asthma_shield/internal/logger"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	v          *viper.Viper
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	root := &cobra.Command{
		Use:   "asthma-shield",
		Short: "Indoor air control loop for an asthma-sensitive home.",
		Long: `asthma-shield reads purifier and thermostat telemetry, decides purifier speed,
thermostat fan mode and dehumidifier relay state, and runs the circulation and
dust kicker sequences. The serve command runs the control loop and the HTTP API.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to config.yml (default configs/config.yml)")
	flags.String("port", "", "HTTP port")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	mustBind(opts.v, "port", flags.Lookup("port"))
	mustBind(opts.v, "log.level", flags.Lookup("log-level"))
	mustBind(opts.v, "log.format", flags.Lookup("log-format"))

	root.AddCommand(newServeCmd(opts), newEvaluateCmd(opts), newDustKickerCmd(opts))
	return root
}

// load reads the configuration and applies the configured log level.
func (o *rootOptions) load() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(o.v, o.configPath)
	if err != nil {
		return nil, nil, err
	}
	log := logger.Get(cfg.Log.Level, cfg.Log.Format)
	logger.SetLevel(cfg.Log.Level)
	return cfg, log, nil
}

func mustBind(v *viper.Viper, key string, f *pflag.Flag) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}
