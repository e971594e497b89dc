package parity

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// debounceInterval collapses the burst of events editors emit on save.
const debounceInterval = 200 * time.Millisecond

// Watch runs the fixtures in dir once and again after every change to a
// fixture file, passing each outcome to fn. It blocks until ctx is done.
func Watch(ctx context.Context, dir string, fn func(*Report, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "parity: create watcher")
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(dir); err != nil {
		return eris.Wrapf(err, "parity: watch %s", dir)
	}

	log := zap.L().With(zap.String("dir", dir))
	log.Info("watching parity fixtures")

	fn(RunDir(ctx, dir))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return eris.New("parity: watcher closed")
			}
			if !relevant(ev) {
				continue
			}
			log.Debug("fixture changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(debounceInterval)
			} else {
				timer.Reset(debounceInterval)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			fn(RunDir(ctx, dir))

		case err, ok := <-w.Errors:
			if !ok {
				return eris.New("parity: watcher closed")
			}
			log.Warn("watcher error", zap.Error(err))
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !isFixture(ev.Name) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}
