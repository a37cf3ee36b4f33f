// Package watch implements the blazify driver's -w mode: re-run a build
// whenever the watched source file changes, debounced by spec §4.7/§6's one
// second so a burst of writes from an editor's save doesn't trigger the
// pipeline once per write.
package watch

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = time.Second

// Run watches path and calls rebuild once per coalesced burst of change
// events, until ctx-like stop is closed. A rebuild error is reported through
// onError and does not stop the watch loop, matching spec §4.7's "continues,
// does not exit on error" behavior.
func Run(path string, rebuild func() error, onError func(error), stop <-chan struct{}) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return err
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-stop:
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					<-timerC
				}
				timer.Reset(debounce)
			}
			timerC = timer.C
		case <-timerC:
			timer, timerC = nil, nil
			if err := rebuild(); err != nil {
				onError(err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			onError(err)
		}
	}
}
