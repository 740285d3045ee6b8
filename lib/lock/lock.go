// Package lock provides a cross-process lock backed by lock files.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrTimeout is returned by Acquire when the lock stays held past the timeout.
var ErrTimeout = errors.New("timed out waiting for lock")

const pollInterval = 100 * time.Millisecond

// FileLock serializes work across processes sharing a directory.
type FileLock struct {
	dir    string
	logger *slog.Logger
}

// DefaultDir is where lock files live when no directory is given.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "mango-locks")
}

// NewFileLock returns a FileLock keeping its files in dir, or DefaultDir when
// dir is empty.
func NewFileLock(dir string, logger *slog.Logger) *FileLock {
	if dir == "" {
		dir = DefaultDir()
	}
	return &FileLock{dir: dir, logger: logger}
}

// TryLock attempts to acquire the lock for key until timeout elapses. It
// reports false without error on timeout. Lock files older than twice the
// timeout are treated as abandoned and removed.
func (fl *FileLock) TryLock(ctx context.Context, key string, timeout time.Duration) (bool, error) {
	lockFile, err := fl.path(key)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(fl.dir, 0750); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		// #nosec G304 - lockFile is built by path from a validated key
		file, err := os.OpenFile(lockFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			if err := fl.stamp(file, key, lockFile); err != nil {
				return false, err
			}
			return true, nil
		}
		if !os.IsExist(err) {
			return false, fmt.Errorf("failed to create lock file: %w", err)
		}

		if isStale(lockFile, timeout*2) {
			fl.logger.WarnContext(ctx, "Removing stale lock file", slog.String("file", lockFile))
			if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
				return false, fmt.Errorf("failed to remove stale lock file: %w", err)
			}
			continue
		}

		if !time.Now().Before(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Acquire is TryLock that turns a timeout into ErrTimeout.
func (fl *FileLock) Acquire(ctx context.Context, key string, timeout time.Duration) error {
	ok, err := fl.TryLock(ctx, key, timeout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrTimeout, key)
	}
	return nil
}

// Unlock releases the lock for key. Releasing a lock that is not held is a
// no-op.
func (fl *FileLock) Unlock(ctx context.Context, key string) error {
	lockFile, err := fl.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	fl.logger.DebugContext(ctx, "Released lock", slog.String("key", key), slog.String("file", lockFile))
	return nil
}

func (fl *FileLock) stamp(file *os.File, key, lockFile string) error {
	_, werr := fmt.Fprintf(file, "%d\n%d\n", time.Now().Unix(), os.Getpid())
	cerr := file.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(lockFile)
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	fl.logger.Debug("Acquired lock", slog.String("key", key), slog.String("file", lockFile))
	return nil
}

func (fl *FileLock) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid lock key %q", key)
	}
	return filepath.Join(fl.dir, key+".lock"), nil
}

func isStale(lockFile string, staleAfter time.Duration) bool {
	info, err := os.Stat(lockFile)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > staleAfter
}
