package ui

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/ameistad/carenote/internal/helpers"
	"github.com/ameistad/carenote/internal/logging"
)

// DisplayJobLogEntry prints one entry of an upload or evaluation job stream.
func DisplayJobLogEntry(entry logging.LogEntry) {
	message := entry.Message

	if errorStr := extractErrorField(entry); errorStr != "" {
		if strings.Contains(errorStr, "\n") {
			displayMultiLineError(entry.Level, message, errorStr)
			return
		}
		message = fmt.Sprintf("%s (error: %s)", message, errorStr)
	}

	if entry.IsJobComplete {
		Success("%s", message)
		return
	}
	displayMessage(withFields(message, entry.Fields), entry.Level)
}

// DisplayGeneralLogEntry prints an entry of the server log stream, prefixed with its job id.
func DisplayGeneralLogEntry(entry logging.LogEntry) {
	message := entry.Message
	if entry.JobID != "" {
		message = fmt.Sprintf("[%s] %s", helpers.ShortJobID(entry.JobID), message)
	}

	if errorStr := extractErrorField(entry); errorStr != "" {
		if strings.Contains(errorStr, "\n") {
			displayMultiLineError(entry.Level, message, errorStr)
			return
		}
		message = fmt.Sprintf("%s (error=%s)", message, errorStr)
	}

	displayMessage(withFields(message, entry.Fields), entry.Level)
}

func extractErrorField(entry logging.LogEntry) string {
	if errorValue, hasError := entry.Fields["error"]; hasError {
		return fmt.Sprintf("%v", errorValue)
	}
	return ""
}

// withFields appends the remaining fields as key=value pairs in a stable order.
func withFields(message string, fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "error" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return message
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, fields[k])
	}
	return fmt.Sprintf("%s %s", message, debugStyle.Render(strings.Join(parts, " ")))
}

func displayMultiLineError(level, message, errorStr string) {
	printLine := Info
	switch strings.ToUpper(level) {
	case "ERROR":
		printLine = Error
	case "WARN":
		printLine = Warn
	}
	printLine("%s", message)
	scanner := bufio.NewScanner(strings.NewReader(errorStr))
	for scanner.Scan() {
		if line := scanner.Text(); strings.TrimSpace(line) != "" {
			printLine("    %s", line)
		}
	}
}

func displayMessage(message, level string) {
	switch strings.ToUpper(level) {
	case "ERROR":
		Error("%s", message)
	case "WARN":
		Warn("%s", message)
	case "INFO":
		Info("%s", message)
	case "DEBUG":
		Debug("%s", message)
	default:
		Basic("%s", message)
	}
}
