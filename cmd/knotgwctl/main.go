// knotgwctl is a small admin CLI for inspecting a running knotgwd's live
// sessions, following the teacher's noun-group cobra convention at a
// much smaller scale (this daemon has one noun: sessions).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prga/knotgw/pkg/gwconfig"
)

var ctlSocket string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "knotgwctl",
	Short:         "Inspect a running knotgwd",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&ctlSocket, "socket", gwconfig.DefaultSocketPath+".ctl", "Path to knotgwd's control socket")

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(versionCmd)
}
