package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/kuldeep456789/VisionIQ/internal/logger"
)

var logFiles = map[string]string{
	"info":    logger.InfoFile,
	"warning": logger.WarningFile,
	"error":   logger.ErrorFile,
}

// ShowLogsHandler serves the log file of {level} as text/plain.
func ShowLogsHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFiles[r.PathValue("level")]
		if !ok {
			writeError(w, http.StatusNotFound, "Unknown log level")
			return
		}
		serveLogFile(w, r, log.Directory(), filename)
	}
}

// serveLogFile sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates the log file of {level}.
func ClearLogsHandler(log *logger.Logger) http.HandlerFunc {
	return MakeHandler(log, func(w http.ResponseWriter, r *http.Request) error {
		filename, ok := logFiles[r.PathValue("level")]
		if !ok {
			return NewStatusError(http.StatusNotFound, "Unknown log level")
		}
		if err := log.CleanLogs(filename); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}
