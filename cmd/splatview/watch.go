package main

import (
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/fsnotify/fsnotify"
)

// watchFile calls onChange with the new contents of path after every write or create.
// The parent directory is watched so editors that replace the file are followed.
// The returned function stops the watcher and waits for its goroutine.
func watchFile(path string, onChange func(data []byte)) (func() error, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				data, err := os.ReadFile(abs)
				if err != nil {
					common.Logger().Warn("reload failed", "path", abs, "error", err)
					continue
				}
				if len(data) == 0 {
					// truncated by the writer; the following write event carries the contents
					continue
				}
				onChange(data)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				common.Logger().Warn("watch error", "path", abs, "error", err)
			}
		}
	}()

	return func() error {
		err := watcher.Close()
		<-done
		return err
	}, nil
}
