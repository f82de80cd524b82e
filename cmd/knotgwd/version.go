package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prga/knotgw/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("knotgwd dev build (set version info via -ldflags -X, see pkg/version)")
			return
		}
		fmt.Printf("knotgwd %s (%s)\n", version.Version, version.GitCommit)
	},
}
