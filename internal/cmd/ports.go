package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serial-tools/espbridge/internal/ports"
	"github.com/serial-tools/espbridge/internal/tui/picker"
	"github.com/serial-tools/espbridge/internal/tui/styles"
	"github.com/serial-tools/espbridge/internal/util"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available serial ports",
	Long: `List the serial ports on this machine. USB serial adapters are listed
first, with their USB identifiers.

With --pick, opens the interactive picker and prints the chosen device
path, which makes it easy to compose:

  esptool --port "$(espbridge ports --pick)" flash_id`,
	RunE: runPorts,
}

var portsPick bool

func init() {
	rootCmd.AddCommand(portsCmd)
	portsCmd.Flags().BoolVarP(&portsPick, "pick", "p", false, "Pick a port interactively and print its path")
}

func runPorts(cmd *cobra.Command, args []string) error {
	devices, err := ports.List()
	if err != nil {
		return err
	}

	if portsPick {
		chosen, err := picker.Run(devices)
		if err != nil {
			return err
		}
		if chosen == nil {
			// Cancelled; print nothing so command substitution stays empty
			return nil
		}
		fmt.Println(chosen.Path)
		return nil
	}

	if len(devices) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	fmt.Println(styles.ListHeader.Render(fmt.Sprintf("Serial ports (%d):", len(devices))))
	for _, d := range devices {
		fmt.Printf("  %s", styles.ListPath.Render(d.Path))
		if detail := deviceDetail(d); detail != "" {
			fmt.Printf("  %s", styles.ListDetail.Render(detail))
		}
		fmt.Println()
	}
	return nil
}

// deviceDetail renders the descriptive columns after the device path.
// Descriptions are clamped so one verbose adapter cannot wreck the
// listing.
func deviceDetail(d ports.Device) string {
	detail := util.TruncateString(d.Description, 48)
	if d.IsUSB {
		ids := fmt.Sprintf("[%s:%s]", d.VID, d.PID)
		if detail != "" {
			detail += "  " + ids
		} else {
			detail = ids
		}
		if d.Serial != "" {
			detail += "  serial " + d.Serial
		}
	}
	return detail
}
