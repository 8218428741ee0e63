// loksync batch-translates nested JSON locale files.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/minios-linux/loksync/config"
	"github.com/minios-linux/loksync/i18n"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitChanged = 2
)

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

var (
	colorInfo  = color.New(color.FgBlue)
	colorOK    = color.New(color.FgGreen)
	colorWarn  = color.New(color.FgYellow, color.Bold)
	colorError = color.New(color.FgRed)

	logMu   sync.Mutex
	logOut  io.Writer = color.Error
	logFile io.WriteCloser
)

func logLine(c *color.Color, tag, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	logMu.Lock()
	defer logMu.Unlock()
	fmt.Fprintf(logOut, "%s %s\n", c.Sprint(tag), msg)
	if logFile != nil {
		fmt.Fprintf(logFile, "%s %s %s\n", time.Now().Format(time.RFC3339), tag, msg)
	}
}

func logInfo(format string, args ...any) {
	logLine(colorInfo, "[INFO]", format, args...)
}

func logSuccess(format string, args ...any) {
	logLine(colorOK, "[OK]", format, args...)
}

func logWarning(format string, args ...any) {
	logLine(colorWarn, "[WARN]", format, args...)
}

func logError(format string, args ...any) {
	logLine(colorError, "[ERROR]", format, args...)
}

// openLogFile tees every log line into a rotating file.
func openLogFile(path string) {
	logMu.Lock()
	defer logMu.Unlock()
	logFile = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
}

func closeLogFile() {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// ---------------------------------------------------------------------------
// Exit status
// ---------------------------------------------------------------------------

// exitError carries a process exit code out of a command. A nil err means
// the reason has already been logged.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	configPath string
	logPath    string
	noColor    bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "loksync",
		Short: "Machine-translate nested JSON locale files",
		Long: `loksync: batch machine translation of nested JSON locale files.

Reads every .json document under a source directory, sends each distinct
string once per target language to a LibreTranslate-compatible endpoint, and
writes <output>/<lang>/<document> with the same key structure. Strings the
backend fails to translate keep their source text.

Commands:
  sync        Translate all documents into every target language
  status      Show which outputs exist and which keys they are missing
  auth        Manage backend tokens
  version     Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
			if logPath != "" {
				openLogFile(logPath)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeLogFile()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", config.FileName, "Config file")
	root.PersistentFlags().StringVar(&logPath, "log-file", "", "Also write log lines to this file (rotated)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newSyncCmd(),
		newStatusCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	err := newRootCmd().Execute()
	closeLogFile()
	if err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || ee.err != nil {
			logError("%v", err)
		}
	}
	os.Exit(exitCode(err))
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "loksync version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}

	return cmd
}
