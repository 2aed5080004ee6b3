package logs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"postgate/internal/logging"
)

// CurrentLogName is the pointer the daemon maintains to its active run log.
const CurrentLogName = "postgate.log"

// ErrNoRunLog is returned when logDir holds no daemon run log.
var ErrNoRunLog = errors.New("no daemon run log found")

// CurrentPath resolves the run log of the most recent daemon start. The
// pointer is preferred; without it the newest run log by name is used.
func CurrentPath(logDir string) (string, error) {
	pointer := filepath.Join(logDir, CurrentLogName)
	if resolved, err := filepath.EvalSymlinks(pointer); err == nil {
		return resolved, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("resolve %s: %w", pointer, err)
	}

	matches, err := filepath.Glob(filepath.Join(logDir, logging.RunLogPattern))
	if err != nil {
		return "", fmt.Errorf("list run logs: %w", err)
	}
	if len(matches) == 0 {
		return "", ErrNoRunLog
	}
	// Run log names embed a UTC timestamp, so lexical order is start order.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
