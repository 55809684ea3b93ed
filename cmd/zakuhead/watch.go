package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-zakuhead/pkg/web"
)

var watchAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live telemetry from a running dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := watchAddr
		if addr == "" {
			addr = "localhost:" + cfg.Web.Port
		}
		url := "ws://" + addr + "/ws/status"

		return web.Watch(cmd.Context(), url, func(ev web.WatchEvent) {
			fmt.Printf("%s %-6s %s\n", ev.Time.Format("15:04:05.000"), ev.Type, ev.Payload)
		})
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "addr", "", "dashboard host:port (default: localhost:<web.port>)")
	rootCmd.AddCommand(watchCmd)
}
