package main

import (
	"fmt"
	"text/tabwriter"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/spf13/cobra"
)

var listDevicesCmd = &cobra.Command{
	Use:   "list-devices",
	Short: "Enumerate kernel input devices and the dispatch kind each would be classified as",
	RunE:  runListDevices,
}

// runListDevices scans input nodes without opening or grabbing them,
// reporting the classify() kind each node would get from
// Manager.AddDevice.
func runListDevices(cmd *cobra.Command, args []string) error {
	devices, err := evdev.ListInputDevices()
	if err != nil {
		return fmt.Errorf("list input devices: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "PATH\tNAME\tKIND")
	for _, dev := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\n", dev.Fn, dev.Name, classify(dev))
	}
	return nil
}
