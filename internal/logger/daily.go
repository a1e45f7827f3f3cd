package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

const day = 24 * time.Hour

// keepForever stands in for "no retention"; rotatelogs treats a zero max age
// as a week.
const keepForever = 100 * 365 * day

// DailyWriter writes to <dir>/<name>-YYYY-MM-DD.log, switching files at UTC
// midnight and removing files whose last write is older than the retention.
type DailyWriter struct {
	rl *rotatelogs.RotateLogs
}

// OpenDaily prepares the writer. The first file is created on the first
// write. retentionDays <= 0 keeps every file.
func OpenDaily(dir, name string, retentionDays int) (*DailyWriter, error) {
	return openDaily(dir, name, retentionDays, rotatelogs.UTC)
}

func openDaily(dir, name string, retentionDays int, clock rotatelogs.Clock) (*DailyWriter, error) {
	if strings.TrimSpace(name) == "" {
		name = "spectra"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	maxAge := keepForever
	if retentionDays > 0 {
		maxAge = time.Duration(retentionDays) * day
	}
	rl, err := rotatelogs.New(
		filepath.Join(dir, name+"-%Y-%m-%d.log"),
		rotatelogs.WithClock(clock),
		rotatelogs.WithRotationTime(day),
		rotatelogs.WithMaxAge(maxAge),
	)
	if err != nil {
		return nil, fmt.Errorf("open daily log: %w", err)
	}
	return &DailyWriter{rl: rl}, nil
}

func (w *DailyWriter) Write(p []byte) (int, error) { return w.rl.Write(p) }

// Path returns the file currently written to, empty before the first write.
func (w *DailyWriter) Path() string { return w.rl.CurrentFileName() }

func (w *DailyWriter) Close() error { return w.rl.Close() }
