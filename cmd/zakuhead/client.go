package main

import (
	"fmt"

	"github.com/teslashibe/go-zakuhead/pkg/channel"
	"github.com/teslashibe/go-zakuhead/pkg/detection"
	"github.com/teslashibe/go-zakuhead/pkg/device"
)

// newClient builds a device client for one-shot commands.
// Call the returned func to drain and stop its command channel.
func newClient() (*device.Client, func(), error) {
	ch := channel.New("cli")
	client, err := device.New(cfg.Device.Client(), ch, detection.NewDecoder())
	if err != nil {
		ch.Shutdown()
		return nil, nil, err
	}
	return client, func() {
		ch.Shutdown()
		<-ch.Done()
	}, nil
}

func printReply(r device.Reply) {
	angle := "-"
	if r.Angle != nil {
		angle = fmt.Sprint(*r.Angle)
	}
	fmt.Printf("%s status=%d angle=%s took=%s\n", r.Path, r.Status, angle, r.Duration)
}
