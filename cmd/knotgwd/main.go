// knotgwd is the gateway daemon: it accepts connections from local things
// over a Unix stream socket, speaks the binary PDU protocol described in
// pkg/wire, and bridges each session to a cloud backend through
// pkg/cloud.Client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prga/knotgw/pkg/gwconfig"
	"github.com/prga/knotgw/pkg/gwlog"
)

// App holds daemon state shared across cobra commands.
type App struct {
	configPath string
	cfg        *gwconfig.Config
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "knotgwd",
	Short:         "KNoT gateway daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		cfg, err := gwconfig.Load(app.configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		app.cfg = cfg

		if err := gwlog.SetLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("invalid log_level: %w", err)
		}
		if cfg.LogFormat == "json" {
			gwlog.SetJSONFormat()
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&app.configPath, "config", "c", gwconfig.DefaultConfigPath, "Path to knotgw.yaml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
