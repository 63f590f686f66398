package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		service string
		want    string
	}{
		{"relative", "logs", ServiceName, filepath.Join("logs", "spacecenter.20261016_093000.log")},
		{"dotted", "./logs", "flightlog", filepath.Join("logs", "flightlog.20261016_093000.log")},
		{"absolute", filepath.Join("/var", "log", "krpc"), ServiceName, filepath.Join("/var", "log", "krpc", "spacecenter.20261016_093000.log")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, tt.service, start))
		})
	}
}
