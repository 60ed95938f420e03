package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 300 * time.Millisecond

// Watch reloads h whenever its file changes on disk and calls onReload with
// the new config. It watches the directory, since SaveAtomic and most editors
// replace the file instead of writing it in place. Watch blocks until ctx is done.
func Watch(ctx context.Context, h *Holder, log *zap.Logger, onReload func(Config)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	target := filepath.Clean(h.Path())
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		return err
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			cfg, v, err := h.Reload()
			switch {
			case err != nil:
				log.Warn("config reload failed", zap.String("path", target), zap.Error(err))
			case !v.OK():
				log.Warn("config reload rejected", zap.String("path", target), zap.Strings("errors", v.Errors))
			default:
				log.Info("config reloaded", zap.String("path", target))
				if onReload != nil {
					onReload(cfg)
				}
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watch error", zap.Error(err))
		}
	}
}
