// Package follow streams file appends to a writer, tail style: an initial
// window of trailing lines per file, then whatever the files grow by.
// Wakeups come from filesystem notifications when available and from a
// poll timer always; the poll cycle doubles as the liveness check for an
// optional watched target, so the stream stops shortly after the target
// dies.
package follow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wrenware/vigil/internal/watch"
)

// Options tune a Follower. Out is the payload stream and stays raw; all
// diagnostics go through Logger.
type Options struct {
	Lines    int           // trailing lines printed per file before streaming
	Interval time.Duration // poll cadence, also the liveness-check cadence
	Retry    bool          // keep waiting for files that are missing or vanish
	Source   watch.Source  // optional stop condition, polled once per cycle
	Out      io.Writer
	Logger   *slog.Logger
}

type tracked struct {
	display string // path as the user gave it, for headers
	path    string // absolute path, for matching notifications
	file    *os.File
	offset  int64
}

// Follower tails one or more files.
type Follower struct {
	opts    Options
	files   []*tracked
	byPath  map[string]*tracked
	current *tracked // file owning the last printed header
	printed bool
	log     *slog.Logger
}

// New prepares a follower for paths. Files are not opened until Run.
func New(paths []string, opts Options) (*Follower, error) {
	if len(paths) == 0 {
		return nil, errors.New("follow: no files given")
	}
	if opts.Out == nil {
		return nil, errors.New("follow: no output writer")
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	f := &Follower{
		opts:   opts,
		byPath: make(map[string]*tracked, len(paths)),
		log:    opts.Logger,
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		tr := &tracked{display: p, path: abs}
		f.files = append(f.files, tr)
		f.byPath[abs] = tr
	}
	return f, nil
}

// Run tails the files until the context is cancelled or the watched target
// dies. On target death pending output is drained before returning.
func (f *Follower) Run(ctx context.Context) error {
	defer f.closeAll()

	opened := 0
	for _, tr := range f.files {
		if err := f.open(tr, true); err != nil {
			if !f.opts.Retry {
				f.log.Error("cannot open file", "file", tr.display, "error", err)
				continue
			}
			f.log.Warn("waiting for file to appear", "file", tr.display)
			continue
		}
		opened++
	}
	if opened == 0 && !f.opts.Retry {
		return errors.New("follow: no files could be opened")
	}

	watcher := f.startWatcher()
	if watcher != nil {
		defer watcher.Close()
	}
	var wake <-chan fsnotify.Event
	var wakeErrs <-chan error
	if watcher != nil {
		wake = watcher.Events
		wakeErrs = watcher.Errors
	}

	timer := time.NewTimer(f.opts.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-wake:
			if _, ok := f.byPath[filepath.Clean(ev.Name)]; ok {
				f.drainAll()
			}
		case err := <-wakeErrs:
			f.log.Warn("filesystem notification error", "error", err)
		case <-timer.C:
			f.drainAll()
			if f.opts.Source != nil && f.opts.Source.Dead(ctx) {
				f.drainAll()
				f.log.Info("watched target died, stopping", "target", f.opts.Source.Describe())
				return nil
			}
			timer.Reset(f.opts.Interval)
		}
	}
}

// startWatcher registers the parent directories of all tracked files.
// Watching directories rather than the files themselves survives rotation
// and pre-creation. Any failure degrades to pure polling.
func (f *Follower) startWatcher() *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.log.Warn("filesystem notifications unavailable, polling only", "error", err)
		return nil
	}
	dirs := make(map[string]struct{})
	for _, tr := range f.files {
		dirs[filepath.Dir(tr.path)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			f.log.Warn("cannot watch directory, polling covers it", "dir", dir, "error", err)
		}
	}
	return watcher
}

// open attaches tr to its file. With initial set, the offset is placed so
// the configured number of trailing lines prints on the first drain;
// reopened files print from the beginning.
func (f *Follower) open(tr *tracked, initial bool) error {
	file, err := os.Open(tr.path)
	if err != nil {
		return err
	}
	tr.file = file
	tr.offset = 0

	if initial {
		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("stat %s: %w", tr.display, err)
		}
		off, err := tailOffset(file, info.Size(), f.opts.Lines)
		if err != nil {
			return fmt.Errorf("scan %s: %w", tr.display, err)
		}
		tr.offset = off
	}
	return nil
}

func (f *Follower) drainAll() {
	for _, tr := range f.files {
		f.drain(tr)
	}
}

// drain copies everything tr grew by since the last call to the output,
// handling truncation, replacement and disappearance along the way.
func (f *Follower) drain(tr *tracked) {
	if tr.file == nil {
		if !f.opts.Retry {
			return
		}
		if err := f.open(tr, false); err != nil {
			return
		}
		f.log.Info("file appeared, following from start", "file", tr.display)
	}

	info, err := tr.file.Stat()
	if err != nil {
		f.log.Warn("cannot stat followed file", "file", tr.display, "error", err)
		return
	}

	if f.opts.Retry {
		onDisk, err := os.Stat(tr.path)
		switch {
		case err != nil:
			f.log.Warn("file became inaccessible, waiting for it", "file", tr.display)
			tr.file.Close()
			tr.file = nil
			return
		case !os.SameFile(info, onDisk):
			f.log.Info("file replaced, following new file", "file", tr.display)
			tr.file.Close()
			tr.file = nil
			if err := f.open(tr, false); err != nil {
				return
			}
			var statErr error
			info, statErr = tr.file.Stat()
			if statErr != nil {
				return
			}
		}
	}

	size := info.Size()
	if size < tr.offset {
		f.log.Warn("file truncated, starting over", "file", tr.display)
		tr.offset = 0
	}
	if size == tr.offset {
		return
	}

	f.header(tr)
	n, err := io.Copy(f.opts.Out, io.NewSectionReader(tr.file, tr.offset, size-tr.offset))
	tr.offset += n
	if err != nil {
		f.log.Warn("copy from followed file", "file", tr.display, "error", err)
	}
}

// header prints the tail-style file banner when output switches between
// files. Single-file follows print no banners.
func (f *Follower) header(tr *tracked) {
	if len(f.files) < 2 || f.current == tr {
		f.current = tr
		return
	}
	if f.printed {
		fmt.Fprintln(f.opts.Out)
	}
	fmt.Fprintf(f.opts.Out, "==> %s <==\n", tr.display)
	f.current = tr
	f.printed = true
}

func (f *Follower) closeAll() {
	for _, tr := range f.files {
		if tr.file != nil {
			tr.file.Close()
			tr.file = nil
		}
	}
}
