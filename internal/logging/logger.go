package logging

import (
	"log"
	"os"
	"strings"
)

var debugEnabled = func() bool {
	v := os.Getenv("RIVER_DEBUG")
	return v == "true" || v == "1"
}()

// Info logs an informational message (always shown)
func Info(subsystem, format string, args ...any) {
	log.Printf("[%s] "+format, append([]any{subsystem}, args...)...)
}

// Debug logs a debug message (only shown if RIVER_DEBUG is set)
func Debug(subsystem, format string, args ...any) {
	if debugEnabled {
		log.Printf("[%s] "+format, append([]any{subsystem}, args...)...)
	}
}

// Preview flattens a fragment to a single line and truncates it for logs
func Preview(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
