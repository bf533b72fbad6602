package checkpoint

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to the checkpoint's state file on disk so a
// caller can warn about writes made outside the orchestrator's own saves.
// The state file is owned by a single process; a second writer is a
// misconfiguration, not a reason to clobber whatever it wrote. The Watcher
// does not tell this process's own saves apart from other writers; that
// filtering is the caller's.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
}

// ExternalWrite is reported once per detected write, create, or rename of
// the state file, including those caused by this process's own Service.Save.
type ExternalWrite struct {
	Path string
}

// NewWatcher starts watching the directory containing cfg.Path for changes
// to the state file itself.
func NewWatcher(cfg Config) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, newErr(CodeFileError, "failed to start file watcher: %v", err)
	}
	dir := filepath.Dir(cfg.Path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, newErr(CodeFileError, "failed to watch %s: %v", dir, err)
	}
	return &Watcher{watcher: fw, path: filepath.Clean(cfg.Path)}, nil
}

// Run consumes filesystem events until ctx is cancelled, delivering one
// ExternalWrite per write/create/rename event that targets the watched
// state file, and forwarding watcher errors on errs. Both channels are
// unbuffered; callers should read from both concurrently.
func (w *Watcher) Run(ctx context.Context, writes chan<- ExternalWrite, errs chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case writes <- ExternalWrite{Path: ev.Name}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case errs <- err:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
