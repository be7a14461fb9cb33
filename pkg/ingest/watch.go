package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch re-runs ingestion whenever a file under dir changes, waiting for
// debounce of quiet before each run. It blocks until ctx is cancelled.
func (in *Ingester) Watch(ctx context.Context, dir string, debounce time.Duration, onRun func(*Report, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addTree(w, dir); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = time.Second
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				// New directories need their own watch.
				_ = addTree(w, ev.Name)
			}
			in.log.Debug("source changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
			pending = true
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.log.Warn("watch error", zap.Error(err))
		case <-timer.C:
			pending = false
			report, err := in.Run(ctx)
			if onRun != nil {
				onRun(report, err)
			}
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
