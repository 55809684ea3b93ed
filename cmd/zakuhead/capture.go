package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-zakuhead/pkg/detection"
)

var (
	captureOut    string
	captureDetect bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Save one upright camera frame",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, stop, err := newClient()
		if err != nil {
			return err
		}
		defer stop()

		frame, err := client.Capture(cmd.Context())
		if err != nil {
			return err
		}
		if err := detection.WriteImage(captureOut, frame.Image); err != nil {
			return err
		}
		b := frame.Image.Bounds()
		fmt.Printf("saved %s (%dx%d, %d bytes from device)\n", captureOut, b.Dx(), b.Dy(), frame.Bytes)

		if !captureDetect {
			return nil
		}
		det, err := detection.NewYuNet(cfg.Detector.Build())
		if err != nil {
			return err
		}
		defer det.Close()

		faces, err := det.Detect(frame.Image)
		if err != nil {
			return err
		}
		primary, ok := detection.SelectPrimary(faces)
		fmt.Printf("faces: %d\n", len(faces))
		if ok {
			fmt.Printf("primary: center=%.2f width=%.2f confidence=%.2f\n",
				primary.Center(), primary.Width, primary.Confidence)
		}
		return nil
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureOut, "output", "o", "frame.jpg", "output file (format from extension)")
	captureCmd.Flags().BoolVar(&captureDetect, "detect", false, "also run face detection on the frame")
	rootCmd.AddCommand(captureCmd)
}
