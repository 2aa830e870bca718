// Package runlog manages run_*.log files: creation, the plain-text wire
// format, latest-log selection, and tail output.
package runlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Pattern is the glob all run logs match. It is load-bearing: the latest-log
// selector and external tooling both key off it.
const Pattern = "run_*.log"

// stampLayout yields names that sort in creation order.
const stampLayout = "20060102_150405"

// ErrNoRunLog is returned when a directory contains no run logs.
var ErrNoRunLog = errors.New("no run log found")

// Log is one open run log file.
type Log struct {
	Path string
	file *os.File
}

// Create opens a fresh run_<ts>.log in dir. When a log for the same second
// already exists a numeric suffix is appended so names keep sorting after
// all prior logs.
func Create(dir string) (*Log, error) {
	if dir == "" {
		return nil, errors.New("run log dir is empty")
	}
	stamp := time.Now().Format(stampLayout)
	base := filepath.Join(dir, fmt.Sprintf("run_%s.log", stamp))

	path := base
	for i := 1; ; i++ {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return &Log{Path: path, file: file}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create run log: %w", err)
		}
		path = filepath.Join(dir, fmt.Sprintf("run_%s_%d.log", stamp, i))
	}
}

// Writer returns a Writer that appends events to the log file in the
// plain-text wire format.
func (l *Log) Writer() Writer {
	return &fileWriter{file: l.file}
}

// Close closes the underlying file.
func (l *Log) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// RemoveIfEmpty deletes the log file when nothing was written to it, so a
// failed run never leaves a misleadingly-named empty log behind. Partial
// logs with content are kept on purpose.
func (l *Log) RemoveIfEmpty() error {
	if l == nil {
		return nil
	}
	info, err := os.Stat(l.Path)
	if err != nil {
		return err
	}
	if info.Size() > 0 {
		return nil
	}
	return os.Remove(l.Path)
}

// FindLatest returns the run log in dir with the most recent modification
// time; names tie-break lexicographically since they are timestamp-ordered.
// Returns ErrNoRunLog when no file matches Pattern.
func FindLatest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, Pattern))
	if err != nil {
		return "", fmt.Errorf("glob run logs: %w", err)
	}
	type candidate struct {
		path    string
		modTime time.Time
	}
	var candidates []candidate
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		candidates = append(candidates, candidate{path: path, modTime: info.ModTime()})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoRunLog, dir)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].modTime.Before(candidates[j].modTime)
		}
		return candidates[i].path < candidates[j].path
	})
	return candidates[len(candidates)-1].path, nil
}
