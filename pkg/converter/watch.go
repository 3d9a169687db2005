package converter

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

const (
	// settlePoll is how often a new file's size is re-checked while it
	// is still being copied in.
	settlePoll = time.Second

	// settleTimeout bounds how long we wait for a file to stop growing.
	settleTimeout = 10 * time.Minute
)

// watch keeps converting files dropped into the input directory until
// the context is cancelled. The per-file pipeline is unchanged, so the
// output-exists check keeps duplicate events harmless.
func (c *Converter) watch(ctx context.Context, stats *Stats) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer watcher.Close()

	// Watch the whole existing tree, not just the root; directories
	// created later are added as their events arrive.
	err = filepath.WalkDir(c.opts.InputDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "watch %s", c.opts.InputDir)
	}
	c.log.Info().Str("dir", c.opts.InputDir).Msg("watching for new videos")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				// New subdirectory: bring it under watch too.
				if err := watcher.Add(event.Name); err != nil {
					c.log.Warn().Str("dir", event.Name).Err(err).Msg("cannot watch subdirectory")
				}
				continue
			}
			if !IsVideoFile(event.Name) {
				continue
			}
			if err := waitSettled(ctx, event.Name); err != nil {
				c.log.Warn().Str("file", event.Name).Err(err).Msg("file never settled, skipping")
				continue
			}
			res := c.ProcessFile(ctx, event.Name)
			stats.Total++
			stats.Record(res)
			c.logResult(res, stats.Processed+stats.Skipped+stats.Failed, stats.Total)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// waitSettled blocks until the file size has been stable for one poll
// interval, so a video still being copied in is not encoded half-way.
func waitSettled(ctx context.Context, path string) error {
	deadline := time.Now().Add(settleTimeout)
	var lastSize int64 = -1
	for {
		if time.Now().After(deadline) {
			return errors.New("timed out waiting for file to settle")
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == lastSize {
			return nil
		}
		lastSize = info.Size()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settlePoll):
		}
	}
}
