package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

var logFile *os.File

/*
Init points the default logger at a file, so full-screen terminal programs
can log without corrupting the display.
*/
func Init(logFilePath string) error {
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)

	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}

	logFile = file
	Redirect(file)
	log.Info("logging initialized", "file", logFilePath)

	return nil
}

// Redirect sends the default logger to w with timestamps and caller info.
func Redirect(w io.Writer) {
	log.SetOutput(w)
	log.SetReportTimestamp(true)
	log.SetReportCaller(true)
}

/*
SetLevel applies a level name from config. Unknown names leave the level
unchanged and are reported.
*/
func SetLevel(name string) {
	if name == "" {
		return
	}

	level, err := log.ParseLevel(name)

	if err != nil {
		log.Warn("unknown log level", "level", name)
		return
	}

	log.SetLevel(level)
}

// Close restores stderr output and closes the log file.
func Close() {
	if logFile == nil {
		return
	}

	log.Info("closing log file")
	log.SetOutput(os.Stderr)
	logFile.Close()
	logFile = nil
}
