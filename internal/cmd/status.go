package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/serial-tools/espbridge/internal/config"
	"github.com/serial-tools/espbridge/internal/launcher"
	"github.com/serial-tools/espbridge/internal/portlock"
	"github.com/serial-tools/espbridge/internal/tui/styles"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show running bridges",
	Long: `Show every bridge registered in the lock directory, with its owning
supervisor and whether that supervisor is still alive. Stale entries are
left over from supervisors that died without cleaning up; remove them
with 'espbridge clean'.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	locks, err := portlock.List(cfg.Paths.ResolveLockDir())
	if err != nil {
		return err
	}
	if len(locks) == 0 {
		fmt.Println("No bridges are running.")
		return nil
	}

	fmt.Println(styles.ListHeader.Render(fmt.Sprintf("Bridges (%d):", len(locks))))
	for _, lk := range locks {
		state := lockState(lk)
		line := fmt.Sprintf("  %s TCP %-6d %-8s %s", styles.SessionIcon(state), lk.Port, state, lockDetail(lk))
		fmt.Println(lipgloss.NewStyle().Foreground(styles.SessionColor(state)).Render(line))

		if state == "running" {
			fmt.Println(styles.ListDetail.Render("      output: " + launcher.SessionLogPath(cfg.Paths.ResolveStateDir(), lk.Port)))
		}
	}
	return nil
}

// lockState classifies a lock entry for display.
func lockState(lk portlock.Status) string {
	switch {
	case lk.Record == nil:
		return "corrupt"
	case lk.Alive:
		return "running"
	default:
		return "stale"
	}
}

// lockDetail renders the owner column for a lock entry.
func lockDetail(lk portlock.Status) string {
	if lk.Record == nil {
		return "unreadable lock file"
	}
	if lk.Alive {
		return fmt.Sprintf("pid %d, up %s", lk.Record.PID, formatUptime(time.Since(lk.Record.CreatedAt)))
	}
	return fmt.Sprintf("pid %d is gone", lk.Record.PID)
}

// formatUptime renders a duration without sub-minute noise once it is
// long enough for that noise to stop mattering.
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
