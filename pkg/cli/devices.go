package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/jyn/pkg/device"
)

// listDevices is replaced in tests.
var listDevices = device.ListDevices

var devicesCommand = &cli.Command{
	Name:  "devices",
	Usage: "List devices known to adb",
	Action: func(c *cli.Context) error {
		devices, err := listDevices()
		if err != nil {
			return err
		}

		w := outWriter(c)
		if len(devices) == 0 {
			fmt.Fprintln(w, "No devices attached")
			return nil
		}
		for _, d := range devices {
			fmt.Fprintf(w, "%s%s%s\t%s%s%s\n",
				color(colorBold), d.Serial, color(colorReset),
				color(colorGray), d.State, color(colorReset))
		}
		return nil
	},
}
