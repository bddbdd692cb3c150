package follow

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// deadAfterSource reports alive for a fixed number of polls, then dead
// forever. It stands in for the process oracle so tests control exactly
// when the follow loop stops.
type deadAfterSource struct {
	mu    sync.Mutex
	alive int
	calls int
}

func (s *deadAfterSource) Describe() string { return "test-target" }

func (s *deadAfterSource) Dead(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.calls > s.alive
}

func (s *deadAfterSource) Close() error { return nil }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runFollower(t *testing.T, f *Follower) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := f.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("follower did not stop on its own")
	}
}

func TestFollowerPrintsTrailingLines(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.log", "one\ntwo\nthree\nfour\n")

	out := &syncBuffer{}
	f, err := New([]string{path}, Options{
		Lines:    2,
		Interval: 10 * time.Millisecond,
		Source:   &deadAfterSource{alive: 2},
		Out:      out,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	runFollower(t, f)

	if got, want := out.String(), "three\nfour\n"; got != want {
		t.Fatalf("output %q, want %q", got, want)
	}
}

func TestFollowerStreamsAppends(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.log", "start\n")

	out := &syncBuffer{}
	src := &deadAfterSource{alive: 1 << 30}
	f, err := New([]string{path}, Options{
		Lines:    1,
		Interval: 10 * time.Millisecond,
		Source:   src,
		Out:      out,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		defer close(done)
		_ = f.Run(ctx)
	}()

	// Wait for the initial drain, append, then wait for the growth to
	// show up.
	waitFor(t, func() bool { return strings.Contains(out.String(), "start\n") })
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := file.WriteString("grown\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	file.Close()
	waitFor(t, func() bool { return strings.Contains(out.String(), "grown\n") })

	cancel()
	<-done
}

func TestFollowerStopsWhenSourceDies(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.log", "before\n")

	out := &syncBuffer{}
	f, err := New([]string{path}, Options{
		Lines:    10,
		Interval: 10 * time.Millisecond,
		Source:   &deadAfterSource{alive: 0},
		Out:      out,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	runFollower(t, f)

	// Death is checked after draining, so the pending content still
	// made it out.
	if got := out.String(); !strings.Contains(got, "before\n") {
		t.Fatalf("final drain missing, output %q", got)
	}
}

func TestFollowerHeadersBetweenFiles(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.log", "alpha\n")
	second := writeFile(t, dir, "b.log", "beta\n")

	out := &syncBuffer{}
	f, err := New([]string{first, second}, Options{
		Lines:    1,
		Interval: 10 * time.Millisecond,
		Source:   &deadAfterSource{alive: 2},
		Out:      out,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	runFollower(t, f)

	want := "==> " + first + " <==\n" +
		"alpha\n" +
		"\n" +
		"==> " + second + " <==\n" +
		"beta\n"
	if got := out.String(); got != want {
		t.Fatalf("output:\n%s\nwant:\n%s", got, want)
	}
}

func TestFollowerHandlesTruncation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.log", "old-one\nold-two\n")

	out := &syncBuffer{}
	src := &deadAfterSource{alive: 1 << 30}
	f, err := New([]string{path}, Options{
		Lines:    5,
		Interval: 10 * time.Millisecond,
		Source:   src,
		Out:      out,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		defer close(done)
		_ = f.Run(ctx)
	}()

	waitFor(t, func() bool { return strings.Contains(out.String(), "old-two\n") })
	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	waitFor(t, func() bool { return strings.Contains(out.String(), "fresh\n") })

	cancel()
	<-done
}

func TestFollowerRetryWaitsForMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.log")

	out := &syncBuffer{}
	src := &deadAfterSource{alive: 1 << 30}
	f, err := New([]string{path}, Options{
		Lines:    10,
		Interval: 10 * time.Millisecond,
		Retry:    true,
		Source:   src,
		Out:      out,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		defer close(done)
		_ = f.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, dir, "late.log", "appeared\n")
	waitFor(t, func() bool { return strings.Contains(out.String(), "appeared\n") })

	cancel()
	<-done
}

func TestNewRejectsEmptyInput(t *testing.T) {
	if _, err := New(nil, Options{Out: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for empty path list")
	}
	if _, err := New([]string{"x"}, Options{}); err == nil {
		t.Fatal("expected error for missing writer")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
