// Package log is the leveled, colored operator log used across the report pipeline.
// Everything goes to stderr so stdout stays free for command output.
package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

var (
	debugMode           = false
	output    io.Writer = os.Stderr
)

// SetDebugMode enables or disables debug output.
func SetDebugMode(enabled bool) {
	debugMode = enabled
}

// IsDebugMode returns whether debug output is enabled.
func IsDebugMode() bool {
	return debugMode
}

// SetOutput sets the writer for all log messages.
func SetOutput(w io.Writer) {
	output = w
}

// Debug prints a message only when debug mode is on.
func Debug(format string, args ...interface{}) {
	if debugMode {
		gray := color.New(color.FgHiBlack)
		gray.Fprintf(output, "[DEBUG] "+format+"\n", args...)
	}
}

// DebugCommand logs an external command line in debug mode.
func DebugCommand(dir, name string, args []string) {
	if debugMode {
		cyan := color.New(color.FgCyan)
		cyan.Fprintf(output, "[DEBUG] exec (%s): %s %q\n", dir, name, args)
	}
}

// DebugDuration logs how long an operation took in debug mode.
func DebugDuration(operation string, duration time.Duration) {
	if debugMode {
		blue := color.New(color.FgBlue)
		blue.Fprintf(output, "[DEBUG] %s took %v\n", operation, duration)
	}
}

// Info prints informational messages.
func Info(format string, args ...interface{}) {
	fmt.Fprintf(output, format+"\n", args...)
}

// Success prints a completion message in green.
func Success(format string, args ...interface{}) {
	green := color.New(color.FgGreen)
	green.Fprintf(output, format+"\n", args...)
}

// Warn prints warning messages.
func Warn(format string, args ...interface{}) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(output, "Warning: "+format+"\n", args...)
}

// Error prints error messages.
func Error(format string, args ...interface{}) {
	red := color.New(color.FgRed)
	red.Fprintf(output, "Error: "+format+"\n", args...)
}

// Truncate shortens s to at most maxLen characters, marking the cut with "...".
// The cut never splits a multi-byte character.
func Truncate(s string, maxLen int) string {
	count := 0
	for i := range s {
		if count == maxLen {
			return s[:i] + "..."
		}
		count++
	}
	return s
}
