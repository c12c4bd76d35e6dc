package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"meeting_assistant/internal/config"
	"meeting_assistant/internal/formatting"
	"meeting_assistant/internal/pipeline"
	"meeting_assistant/internal/store"
	"meeting_assistant/internal/transcribe"
)

// MeetingStore is what ingestion needs from persistence.
type MeetingStore interface {
	pipeline.Repository
	CreateMeeting(ctx context.Context, in store.NewMeeting, ts time.Time) (*store.Meeting, error)
	FindMeetingByAudioPath(ctx context.Context, path string) (*store.Meeting, error)
}

// Watcher monitors INBOX_DIR for new audio files and turns each one into a
// meeting queued for processing.
type Watcher struct {
	dir        string
	enabled    bool
	store      MeetingStore
	dispatcher pipeline.Dispatcher
	logger     *slog.Logger
	settle     time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func New(cfg config.Config, st MeetingStore, d pipeline.Dispatcher, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:        cfg.InboxDir,
		enabled:    cfg.EnableWatcher,
		store:      st,
		dispatcher: d,
		logger:     logger.With("component", "watch"),
		settle:     2 * time.Second,
		pending:    make(map[string]*time.Timer),
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.enabled || w.dir == "" {
		w.logger.Info("watcher disabled")
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 && transcribe.SupportedExtension(evt.Name) {
					w.schedule(ctx, evt.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watcher error", "error", err)
			}
		}
	}()
	w.logger.Info("watching inbox", "dir", w.dir)
	return nil
}

// schedule ingests path once it has stopped changing for the settle period.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if _, err := w.Ingest(ctx, path); err != nil {
			w.logger.Warn("ingest failed", "path", path, "error", err)
		}
	})
}

// Ingest creates a meeting for path and dispatches processing. A file that
// already belongs to a meeting is skipped and that meeting returned.
func (w *Watcher) Ingest(ctx context.Context, path string) (*store.Meeting, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := transcribe.Validate(abs); err != nil {
		return nil, err
	}
	existing, err := w.store.FindMeetingByAudioPath(ctx, abs)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		w.logger.Debug("audio already ingested", "path", abs, "meeting_id", existing.ID)
		return existing, nil
	}

	in := store.NewMeeting{Title: formatting.TitleFromFilename(abs)}
	if date, ok := formatting.DateFromFilename(abs, time.Local); ok {
		in.Date = &date
	}
	m, err := w.store.CreateMeeting(ctx, in, config.Now())
	if err != nil {
		return nil, err
	}
	job, err := pipeline.StartProcessing(ctx, w.store, w.dispatcher, m.ID, abs)
	if err != nil {
		return nil, err
	}
	w.logger.Info("ingested audio", "path", abs, "meeting_id", m.ID, "job_id", job.ID)
	return w.store.GetMeeting(ctx, m.ID)
}

// Backfill ingests audio files already present in the inbox.
func (w *Watcher) Backfill(ctx context.Context) (int, error) {
	if w.dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !transcribe.SupportedExtension(e.Name()) {
			continue
		}
		if _, err := w.Ingest(ctx, filepath.Join(w.dir, e.Name())); err != nil {
			w.logger.Warn("inbox backfill skipped file", "file", e.Name(), "error", err)
			continue
		}
		n++
	}
	return n, nil
}
