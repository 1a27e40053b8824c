package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/serial-tools/espbridge/internal/config"
	"github.com/serial-tools/espbridge/internal/launcher"
	"github.com/serial-tools/espbridge/internal/portlock"
)

// CleanResult holds the leftover state found in the lock and state dirs
type CleanResult struct {
	StaleLocks   []StaleLock
	OrphanedLogs []string
	ActivePorts  map[int]bool // Ports with a live supervisor
}

// StaleLock represents a lock file whose owner is no longer running
type StaleLock struct {
	Port     int
	PID      int
	Hostname string
	Age      time.Duration
	Corrupt  bool
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up stale locks and old session logs",
	Long: `Clean removes leftover state that accumulates when supervisors die
without cleaning up:

- Lock files whose owning process is gone (or that cannot be parsed)
- With --logs, session output logs of bridges that are no longer running

Locks held by live supervisors are never touched.

Use --dry-run to see what would be removed without making changes.`,
	RunE: runClean,
}

var (
	cleanDryRun bool
	cleanForce  bool
	cleanLogs   bool
)

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Show what would be removed without making changes")
	cleanCmd.Flags().BoolVarP(&cleanForce, "force", "f", false, "Skip confirmation prompt")
	cleanCmd.Flags().BoolVar(&cleanLogs, "logs", false, "Also remove session logs of stopped bridges")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	lockDir := cfg.Paths.ResolveLockDir()
	stateDir := cfg.Paths.ResolveStateDir()

	result, err := discoverLeftoverState(lockDir, stateDir)
	if err != nil {
		return err
	}

	hasWork := len(result.StaleLocks) > 0
	if cleanLogs && len(result.OrphanedLogs) > 0 {
		hasWork = true
	}
	if !hasWork {
		fmt.Println("Nothing to clean up.")
		return nil
	}

	printCleanSummary(result)

	if cleanDryRun {
		fmt.Println("\nDry run mode - no changes made.")
		return nil
	}

	// Confirm unless forced
	if !cleanForce {
		fmt.Print("\nProceed with cleanup? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Cleanup cancelled.")
			return nil
		}
	}

	return performClean(lockDir, result)
}

// discoverLeftoverState scans the lock and state directories without
// modifying anything.
func discoverLeftoverState(lockDir, stateDir string) (*CleanResult, error) {
	result := &CleanResult{
		ActivePorts: make(map[int]bool),
	}

	locks, err := portlock.List(lockDir)
	if err != nil {
		return nil, err
	}

	for _, lk := range locks {
		if lk.Alive {
			result.ActivePorts[lk.Port] = true
			continue
		}
		sl := StaleLock{Port: lk.Port, Corrupt: lk.Record == nil}
		if lk.Record != nil {
			sl.PID = lk.Record.PID
			sl.Hostname = lk.Record.Hostname
			sl.Age = time.Since(lk.Record.CreatedAt)
		}
		result.StaleLocks = append(result.StaleLocks, sl)
	}

	if cleanLogs {
		result.OrphanedLogs = findOrphanedLogs(stateDir, result.ActivePorts)
	}

	return result, nil
}

// findOrphanedLogs returns session logs whose port has no live
// supervisor. The debug log is espbridge's own and is never offered.
func findOrphanedLogs(stateDir string, activePorts map[int]bool) []string {
	var orphaned []string

	matches, err := filepath.Glob(filepath.Join(stateDir, "espbridge-*.log"))
	if err != nil {
		return orphaned
	}

	for _, match := range matches {
		port, ok := portFromLogPath(match)
		if !ok {
			continue
		}
		if activePorts[port] {
			continue
		}
		orphaned = append(orphaned, match)
		// Rotated backups (.1, .2, ...) of the same log go with it
		if backups, err := filepath.Glob(match + ".*"); err == nil {
			orphaned = append(orphaned, backups...)
		}
	}

	return orphaned
}

// portFromLogPath extracts the TCP port from a session log path.
func portFromLogPath(path string) (int, bool) {
	name := filepath.Base(path)
	var port int
	if _, err := fmt.Sscanf(name, "espbridge-%d.log", &port); err != nil {
		return 0, false
	}
	if launcher.SessionLogPath(filepath.Dir(path), port) != path {
		return 0, false
	}
	return port, true
}

func printCleanSummary(result *CleanResult) {
	fmt.Println(strings.Repeat("─", 60))
	fmt.Println("Leftover State Found")
	fmt.Println(strings.Repeat("─", 60))

	if len(result.StaleLocks) > 0 {
		fmt.Printf("\nStale locks (%d):\n", len(result.StaleLocks))
		for _, sl := range result.StaleLocks {
			if sl.Corrupt {
				fmt.Printf("  - TCP %d [unreadable lock file]\n", sl.Port)
				continue
			}
			fmt.Printf("  - TCP %d (pid %d died, locked %s ago)\n", sl.Port, sl.PID, formatUptime(sl.Age))
		}
	}

	if cleanLogs && len(result.OrphanedLogs) > 0 {
		fmt.Printf("\nSession logs of stopped bridges (%d):\n", len(result.OrphanedLogs))
		for _, path := range result.OrphanedLogs {
			fmt.Printf("  - %s\n", filepath.Base(path))
		}
	}
}

func performClean(lockDir string, result *CleanResult) error {
	fmt.Println()

	var totalRemoved int

	for _, sl := range result.StaleLocks {
		removed, err := portlock.CleanStale(lockDir, sl.Port, nil)
		if err != nil {
			fmt.Printf("Warning: failed to remove lock for TCP %d: %v\n", sl.Port, err)
			continue
		}
		if !removed {
			// The owner came back between discovery and removal
			fmt.Printf("Skipping TCP %d (a live supervisor holds it now)\n", sl.Port)
			continue
		}
		fmt.Printf("Removed stale lock: TCP %d\n", sl.Port)
		totalRemoved++
	}

	if cleanLogs {
		for _, path := range result.OrphanedLogs {
			if err := os.Remove(path); err != nil {
				fmt.Printf("Warning: failed to remove %s: %v\n", filepath.Base(path), err)
				continue
			}
			fmt.Printf("Removed session log: %s\n", filepath.Base(path))
			totalRemoved++
		}
	}

	fmt.Printf("\nCleanup complete. Removed %d items.\n", totalRemoved)
	return nil
}
