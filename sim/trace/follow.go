package trace

import (
	"context"
	"fmt"
	"io"

	"github.com/nxadm/tail"
)

// FollowConfig tunes Follow.
type FollowConfig struct {
	// FromEnd starts at the current end of the file instead of its beginning.
	FromEnd bool
	// Poll watches the file by polling rather than through inotify.
	Poll bool
}

// Follow streams samples from the file at path as it grows, calling fn for
// each valid record in order. Lines that do not parse are dropped, as in
// ReadTrace. Follow blocks until ctx is done and then returns nil; it fails
// immediately if the file cannot be opened.
func Follow(ctx context.Context, path string, cfg FollowConfig, fn func(Sample)) error {
	config := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      cfg.Poll,
		Logger:    tail.DiscardingLogger,
	}
	if cfg.FromEnd {
		config.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	tailer, err := tail.TailFile(path, config)
	if err != nil {
		return fmt.Errorf("opening trace: %w", err)
	}
	defer tailer.Cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = tailer.Stop()
			return nil
		case line, ok := <-tailer.Lines:
			if !ok {
				if err := tailer.Err(); err != nil {
					return fmt.Errorf("tailing trace %s: %w", path, err)
				}
				return nil
			}
			if line.Err != nil {
				continue
			}
			if s, ok := ParseLine(line.Text); ok {
				fn(s)
			}
		}
	}
}
