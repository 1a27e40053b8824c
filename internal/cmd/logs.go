package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/serial-tools/espbridge/internal/config"
	"github.com/serial-tools/espbridge/internal/launcher"
	"github.com/serial-tools/espbridge/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View bridge output",
	Long: `View the output of a bridge session.

By default, shows the bridge server's output for the configured TCP
port, including the exit marker of a finished session. With --debug,
shows espbridge's own structured log instead.

Examples:
  # Show the last 50 lines of bridge output
  espbridge logs

  # Follow the output in real time
  espbridge logs -f

  # A bridge on a different port
  espbridge logs -t 4000

  # The supervisor's structured log, warnings and up
  espbridge logs --debug --level warn

  # Search the output
  espbridge logs --grep "Bootloader|error"

  # Export the structured log for a bug report
  espbridge logs --export report.csv --format csv`,
	RunE: runLogs,
}

var (
	logsTCPPort int
	logsTail    int
	logsFollow  bool
	logsDebug   bool
	logsLevel   string
	logsSince   string
	logsGrep    string
	logsExport  string
	logsFormat  string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTCPPort, "tcp-port", "t", 0, "TCP port of the bridge (default: the configured port)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().BoolVar(&logsDebug, "debug", false, "Show espbridge's structured log instead of bridge output")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Minimum level to show (debug/info/warn/error), implies --debug")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since duration ago (e.g., 1h, 30m), implies --debug")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter lines matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsExport, "export", "", "Export structured entries to a file, implies --debug")
	logsCmd.Flags().StringVar(&logsFormat, "format", "json", "Export format: json, text, or csv")
}

// logEntry represents a parsed JSON log line
type logEntry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Msg       string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	TCPPort   int            `json:"tcp_port,omitempty"`
	Device    string         `json:"device,omitempty"`
	Extra     map[string]any `json:"-"` // Captures additional fields
}

// UnmarshalJSON implements custom unmarshaling to capture extra fields
func (e *logEntry) UnmarshalJSON(data []byte) error {
	// First, unmarshal known fields using a type alias to avoid recursion
	type Alias logEntry
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	// Then unmarshal all fields to capture extras
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	// Remove known fields, keep the rest as extra
	delete(all, "time")
	delete(all, "level")
	delete(all, "msg")
	delete(all, "component")
	delete(all, "tcp_port")
	delete(all, "device")

	if len(all) > 0 {
		e.Extra = all
	}

	return nil
}

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

// levelColor returns the ANSI color code for a log level
func levelColor(level string) string {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return colorGray
	case logging.LevelInfo:
		return colorBlue
	case logging.LevelWarn:
		return colorYellow
	case logging.LevelError:
		return colorRed
	default:
		return colorReset
	}
}

// levelPriority returns the priority of a log level for filtering
func levelPriority(level string) int {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return 0
	case logging.LevelInfo:
		return 1
	case logging.LevelWarn:
		return 2
	case logging.LevelError:
		return 3
	default:
		return -1
	}
}

// formatLogEntry formats a structured log entry for terminal output
func formatLogEntry(entry *logEntry) string {
	var sb strings.Builder

	// Timestamp
	sb.WriteString(colorGray)
	sb.WriteString("[")
	sb.WriteString(entry.Time.Format("15:04:05.000"))
	sb.WriteString("]")
	sb.WriteString(colorReset)

	// Level with color
	sb.WriteString(" ")
	sb.WriteString(levelColor(entry.Level))
	sb.WriteString("[")
	sb.WriteString(strings.ToUpper(entry.Level))
	sb.WriteString("]")
	sb.WriteString(colorReset)

	// Message
	sb.WriteString(" ")
	sb.WriteString(entry.Msg)

	// Context fields (component, tcp_port, device)
	if entry.Component != "" {
		sb.WriteString(" ")
		sb.WriteString(colorCyan)
		sb.WriteString("component=")
		sb.WriteString(entry.Component)
		sb.WriteString(colorReset)
	}
	if entry.TCPPort != 0 {
		sb.WriteString(" ")
		sb.WriteString(colorCyan)
		sb.WriteString(fmt.Sprintf("tcp_port=%d", entry.TCPPort))
		sb.WriteString(colorReset)
	}
	if entry.Device != "" {
		sb.WriteString(" ")
		sb.WriteString(colorCyan)
		sb.WriteString("device=")
		sb.WriteString(entry.Device)
		sb.WriteString(colorReset)
	}

	// Extra fields
	for key, value := range entry.Extra {
		sb.WriteString(" ")
		sb.WriteString(colorCyan)
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(colorReset)
		sb.WriteString(fmt.Sprintf("%v", value))
	}

	return sb.String()
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	stateDir := cfg.Paths.ResolveStateDir()
	port := resolveTCPPort(cfg, cmd.Flags().Changed("tcp-port"), logsTCPPort)

	// Level, since, and export only make sense on the structured log
	if logsLevel != "" || logsSince != "" || logsExport != "" {
		logsDebug = true
	}

	logPath := launcher.SessionLogPath(stateDir, port)
	if logsDebug {
		logPath = logging.DebugLogPath(stateDir)
	}

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		if logsDebug {
			fmt.Println("No debug log found.")
		} else {
			fmt.Printf("No bridge output found for TCP port %d.\n", port)
		}
		fmt.Println("Logs are stored at:", logPath)
		return nil
	}

	// Parse filter options
	var minLevel = -1
	if logsLevel != "" {
		minLevel = levelPriority(logging.ParseLevel(logsLevel))
	}

	var sinceTime time.Time
	if logsSince != "" {
		duration, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		sinceTime = time.Now().Add(-duration)
	}

	var grepRegex *regexp.Regexp
	if logsGrep != "" {
		var err error
		grepRegex, err = regexp.Compile(logsGrep)
		if err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	if logsExport != "" {
		filter := logging.LogFilter{
			Level:     logsLevel,
			StartTime: sinceTime,
		}
		if cmd.Flags().Changed("tcp-port") {
			filter.Port = port
		}
		return exportDebugLog(stateDir, filter, grepRegex, logsExport, logsFormat)
	}

	if logsFollow {
		return followLogs(logPath, logsDebug, minLevel, sinceTime, grepRegex)
	}

	return displayLogs(logPath, logsDebug, logsTail, minLevel, sinceTime, grepRegex)
}

// exportDebugLog writes filtered structured entries to a file for sharing
// or offline analysis.
func exportDebugLog(stateDir string, filter logging.LogFilter, grepRegex *regexp.Regexp, outputPath, format string) error {
	entries, err := logging.AggregateLogs(stateDir)
	if err != nil {
		return err
	}
	entries = logging.FilterLogs(entries, filter)

	if grepRegex != nil {
		var matched []logging.LogEntry
		for _, entry := range entries {
			if grepRegex.MatchString(entry.Message) {
				matched = append(matched, entry)
			}
		}
		entries = matched
	}

	if err := logging.ExportLogEntries(entries, outputPath, format); err != nil {
		return err
	}

	fmt.Printf("Exported %d entries to %s\n", len(entries), outputPath)
	return nil
}

// displayLogs reads the log file and displays filtered lines
func displayLogs(logPath string, structured bool, tail int, minLevel int, sinceTime time.Time, grepRegex *regexp.Regexp) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)

	// Increase buffer size for potentially long log lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rendered, ok := renderLine(line, structured, minLevel, sinceTime, grepRegex)
		if !ok {
			continue
		}
		lines = append(lines, rendered)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	// Apply tail limit
	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}

	for _, line := range lines {
		fmt.Println(line)
	}

	if len(lines) == 0 {
		fmt.Println("No matching log entries found.")
	}

	return nil
}

// followLogs implements tail -f behavior for the log file
func followLogs(logPath string, structured bool, minLevel int, sinceTime time.Time, grepRegex *regexp.Regexp) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	// Seek to end of file
	_, err = file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Printf("Following logs... (Ctrl+C to stop)\n\n")

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// No new data, wait briefly and try again
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return fmt.Errorf("error reading log file: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if rendered, ok := renderLine(line, structured, minLevel, sinceTime, grepRegex); ok {
			fmt.Println(rendered)
		}
	}
}

// renderLine filters and formats one log line. Raw bridge output passes
// through untouched apart from the grep filter; structured entries are
// parsed, filtered, and colorized.
func renderLine(line string, structured bool, minLevel int, sinceTime time.Time, grepRegex *regexp.Regexp) (string, bool) {
	if !structured {
		if grepRegex != nil && !grepRegex.MatchString(line) {
			return "", false
		}
		return line, true
	}

	var entry logEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		// Not JSON, display the raw line
		return line, true
	}

	if !passesFilters(&entry, minLevel, sinceTime, grepRegex) {
		return "", false
	}

	return formatLogEntry(&entry), true
}

// passesFilters checks if a log entry passes all filter criteria
func passesFilters(entry *logEntry, minLevel int, sinceTime time.Time, grepRegex *regexp.Regexp) bool {
	// Level filter
	if minLevel >= 0 && levelPriority(entry.Level) < minLevel {
		return false
	}

	// Time filter
	if !sinceTime.IsZero() && entry.Time.Before(sinceTime) {
		return false
	}

	// Grep filter - search in message and extra fields
	if grepRegex != nil {
		searchText := entry.Msg
		for _, v := range entry.Extra {
			searchText += " " + fmt.Sprintf("%v", v)
		}
		if !grepRegex.MatchString(searchText) {
			return false
		}
	}

	return true
}
