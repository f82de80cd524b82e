package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/prga/knotgw/pkg/cli"
	"github.com/prga/knotgw/pkg/gwserver"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions currently live on the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := gwserver.QuerySessions(ctlSocket)
		if err != nil {
			return fmt.Errorf("querying %s: %w", ctlSocket, err)
		}

		table := cli.NewTable("HANDLE", "DEVICE_ID", "UUID", "ROLLBACK", "SCHEMAS", "CONFIGS")
		for _, s := range snap {
			table.Row(
				strconv.Itoa(int(s.Handle)),
				strconv.FormatUint(s.DeviceID, 10),
				dash(s.UUID),
				formatBool(s.Rollback),
				strconv.Itoa(s.Schemas),
				strconv.Itoa(s.Configs),
			)
		}
		table.Flush()
		if len(snap) == 0 {
			fmt.Println("no live sessions")
		}
		return nil
	},
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatBool(b bool) string {
	if b {
		return cli.Yellow("true")
	}
	return "false"
}
