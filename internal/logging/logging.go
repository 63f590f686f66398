package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath names the session log, e.g. spacecenter.20261016_093000.log.
func LogFilePath(logsDir, service string, sessionStart time.Time) string {
	name := fmt.Sprintf("%s.%s.log", service, sessionStart.Format("20060102_150405"))
	return filepath.Join(logsDir, name)
}
