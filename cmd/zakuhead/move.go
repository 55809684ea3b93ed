package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-zakuhead/pkg/device"
)

var moveStep uint

var moveCmd = &cobra.Command{
	Use:       "move <left|right>",
	Short:     "Step the pan servo once",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"left", "right"},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := device.ParseDirection(args[0])
		if err != nil {
			return err
		}

		client, stop, err := newClient()
		if err != nil {
			return err
		}
		defer stop()

		reply, err := client.Call(cmd.Context(), device.Move{Direction: dir, Degrees: moveStep})
		printReply(reply)
		if errors.Is(err, device.ErrMalformedTelemetry) {
			return nil
		}
		return err
	},
}

func init() {
	moveCmd.Flags().UintVarP(&moveStep, "step", "s", 15, "degrees to move")
	rootCmd.AddCommand(moveCmd)
}
