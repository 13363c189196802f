package claudecode

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/agentdeck/agentdeck/pkg/logger"
)

// Watcher observes the external tool's projects tree and reports which
// sessions changed. The external tool may be writing transcripts at any
// time; consumers re-read the transcript on notification rather than
// trusting any cached state.
type Watcher struct {
	dirs     Dirs
	debounce time.Duration
}

// NewWatcher builds a Watcher over the given config tree.
func NewWatcher(dirs Dirs) *Watcher {
	return &Watcher{dirs: dirs, debounce: 200 * time.Millisecond}
}

// Watch emits the session id of each transcript that changes until the
// context is cancelled. Project folders created after the watch starts are
// picked up automatically.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create filesystem watcher")
	}

	projectsDir := w.dirs.ProjectsDir()
	if err := os.MkdirAll(projectsDir, 0o755); err != nil {
		fsw.Close()
		return nil, errors.Wrap(err, "failed to create projects directory")
	}
	if err := fsw.Add(projectsDir); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", projectsDir)
	}

	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "failed to read %s", projectsDir)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := fsw.Add(filepath.Join(projectsDir, entry.Name())); err != nil {
			logger.G(ctx).WithError(err).WithField("dir", entry.Name()).Warn("failed to watch project folder")
		}
	}

	changed := make(chan string, 16)
	go w.run(ctx, fsw, changed)
	return changed, nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, changed chan<- string) {
	defer fsw.Close()
	defer close(changed)

	lastEmit := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.G(ctx).WithError(err).Warn("filesystem watcher error")
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fsw.Add(event.Name); err != nil {
						logger.G(ctx).WithError(err).WithField("dir", event.Name).Warn("failed to watch new project folder")
					}
					continue
				}
			}

			base := filepath.Base(event.Name)
			if !strings.HasSuffix(base, transcriptSuffix) {
				continue
			}
			sessionID := strings.TrimSuffix(base, transcriptSuffix)

			now := time.Now()
			if last, ok := lastEmit[sessionID]; ok && now.Sub(last) < w.debounce {
				continue
			}
			lastEmit[sessionID] = now

			select {
			case changed <- sessionID:
			case <-ctx.Done():
				return
			}
		}
	}
}
