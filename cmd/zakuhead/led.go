package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-zakuhead/pkg/device"
)

var ledCmd = &cobra.Command{
	Use:   "led <level|on|off>",
	Short: "Set the LED brightness (0 is off)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLevel(args[0])
		if err != nil {
			return err
		}

		client, stop, err := newClient()
		if err != nil {
			return err
		}
		defer stop()

		reply, err := client.Call(cmd.Context(), device.SetIllumination{Level: level})
		printReply(reply)
		if errors.Is(err, device.ErrMalformedTelemetry) {
			return nil
		}
		return err
	},
}

// parseLevel accepts a number or on/off. "on" uses the tracking brightness.
func parseLevel(s string) (uint, error) {
	switch s {
	case "off":
		return 0, nil
	case "on":
		tc, err := cfg.Tracking.Build()
		if err != nil {
			return 0, err
		}
		return tc.Brightness, nil
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid level %q: want 0-255, on or off", s)
	}
	return uint(n), nil
}

func init() {
	rootCmd.AddCommand(ledCmd)
}
