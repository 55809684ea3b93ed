package main

import (
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-zakuhead/pkg/zakuhead"
)

var (
	runPaused bool
	runNoWeb  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Track faces with the turret until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runNoWeb {
			cfg.Web.Enabled = false
		}

		app, err := zakuhead.New(cfg, zakuhead.WithAutoStart(!runPaused))
		if err != nil {
			return err
		}
		defer app.Shutdown()

		if err := app.Init(); err != nil {
			return err
		}
		return app.Run(cmd.Context())
	},
}

func init() {
	runCmd.Flags().BoolVar(&runPaused, "paused", false, "start with tracking paused (resume from the dashboard)")
	runCmd.Flags().BoolVar(&runNoWeb, "no-web", false, "disable the dashboard API")
	rootCmd.AddCommand(runCmd)
}
