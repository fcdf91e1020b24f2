// Package cmd holds the camcore subcommands that run without starting the
// capture service.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/smazurov/camcore/internal/devices"
	"github.com/spf13/cobra"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	return newDevicesCmd(devices.NewDetector())
}

// CreateFormatsCmd creates the formats command.
func CreateFormatsCmd() *cobra.Command {
	return newFormatsCmd(devices.NewDetector())
}

func newDevicesCmd(detector devices.Detector) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List V4L2 capture devices",
		Long:  `Lists every video node that can capture, with its stable identifier and whether it supports the multi-planar API the capture service needs.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			found, err := detector.FindDevices()
			if err != nil {
				return fmt.Errorf("enumerate devices: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), found)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tNAME\tID\tMPLANE")
			for _, dev := range found {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", dev.DevicePath, dev.DeviceName, dev.DeviceID, yesNo(dev.Mplane))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

// formatEntry is one line of formats output.
type formatEntry struct {
	FourCC      string   `json:"fourcc"`
	Name        string   `json:"name"`
	Emulated    bool     `json:"emulated"`
	Resolutions []string `json:"resolutions"`
}

func newFormatsCmd(detector devices.Detector) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "formats <device>",
		Short: "List pixel formats and frame sizes of a device",
		Long:  `Lists the pixel formats a device advertises together with the frame sizes of each. The device may be a path or a /dev/v4l/by-id or by-path name.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := devices.ResolveDevicePath(args[0])
			if err != nil {
				return err
			}

			formats, err := detector.GetDeviceFormats(path)
			if err != nil {
				return fmt.Errorf("query formats of %s: %w", path, err)
			}

			entries := make([]formatEntry, len(formats))
			for i, f := range formats {
				entries[i] = formatEntry{FourCC: f.FourCC, Name: f.FormatName, Emulated: f.Emulated}
				resolutions, err := detector.GetDeviceResolutions(path, f.PixelFormat)
				if err != nil {
					continue
				}
				for _, r := range resolutions {
					entries[i].Resolutions = append(entries[i].Resolutions, fmt.Sprintf("%dx%d", r.Width, r.Height))
				}
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FOURCC\tNAME\tEMULATED\tSIZES")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.FourCC, e.Name, yesNo(e.Emulated), strings.Join(e.Resolutions, " "))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
