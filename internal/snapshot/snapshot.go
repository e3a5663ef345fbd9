// Package snapshot periodically renders the current poster to a PNG file so
// the latest state can be served without launching a browser per request.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "postergen/internal/log"
	"postergen/internal/session"
)

// FileName is the preview file written under the data directory.
const FileName = "preview.png"

const defaultTimeout = 2 * time.Minute

// Renderer produces the PNG to store.
type Renderer interface {
	PreviewPNG(ctx context.Context) ([]byte, error)
}

// Scheduler writes preview snapshots on a cron schedule.
type Scheduler struct {
	renderer Renderer
	path     string
	timeout  time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	lastRun time.Time
	lastErr error
}

// New returns a Scheduler writing to dataDir/preview.png.
func New(r Renderer, dataDir string) *Scheduler {
	return &Scheduler{
		renderer: r,
		path:     filepath.Join(dataDir, FileName),
		timeout:  defaultTimeout,
	}
}

// Path is the snapshot file location.
func (s *Scheduler) Path() string { return s.path }

// Status reports the last run time and its error, if any.
func (s *Scheduler) Status() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

// RunOnce renders and writes one snapshot atomically.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	png, err := s.renderer.PreviewPNG(ctx)
	if err == nil {
		err = writeAtomic(s.path, png)
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	appLog.Info("preview snapshot written", "path", s.path, "bytes", len(png))
	return nil
}

// Start schedules RunOnce with a 5-field cron spec in loc. An empty spec
// does nothing. Runs that overlap a still-running one are skipped.
func (s *Scheduler) Start(ctx context.Context, spec string, loc *time.Location) error {
	if spec == "" {
		appLog.Info("preview snapshots disabled")
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("snapshot: invalid cron %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() {
		err := s.RunOnce(ctx)
		switch {
		case errors.Is(err, session.ErrBusy):
			appLog.Debug("snapshot skipped, previous render still running")
		case err != nil:
			appLog.Error("scheduled snapshot failed", err)
		}
	}); err != nil {
		return fmt.Errorf("snapshot: schedule: %w", err)
	}

	s.mu.Lock()
	if s.cron != nil {
		s.mu.Unlock()
		return errors.New("snapshot: scheduler already started")
	}
	s.cron = c
	s.mu.Unlock()

	c.Start()
	appLog.Info("preview snapshots scheduled", "cron", spec, "path", s.path)
	return nil
}

// Stop halts the schedule and waits for a running snapshot to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".preview-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// cronLogger routes cron's own messages into the app log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
