package cli

import (
	"bytes"
	stdcontext "context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	apihttp "github.com/wrenware/vigil/internal/api/http"
	"github.com/wrenware/vigil/internal/lockfile"
)

func TestServeCommandReportsAPIServerError(t *testing.T) {
	startErr := errors.New("serve failure")
	origNewAPIServer := newAPIServer
	t.Cleanup(func() {
		newAPIServer = origNewAPIServer
	})

	var captured apihttp.Config
	newAPIServer = func(cfg apihttp.Config) (*apihttp.Server, error) {
		captured = cfg
		if cfg.Listener != nil {
			cfg.Listener.Close()
		}
		cfg.Listener = &failingListener{addr: staticAddr("127.0.0.1:0"), err: startErr}
		return apihttp.NewServer(cfg)
	}

	cmd := newServeCmd(&context{})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--listen", "127.0.0.1:0"})

	runCtx, cancel := stdcontext.WithCancel(stdcontext.Background())
	defer cancel()
	cmd.SetContext(runCtx)

	err := cmd.Execute()
	if !errors.Is(err, startErr) {
		t.Fatalf("expected serve error %v, got %v (stderr: %s)", startErr, err, stderr.String())
	}
	if captured.Controller == nil {
		t.Fatal("expected the registry to be wired as controller")
	}
}

func TestServeCommandRefusesHeldLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "vigil.lock")
	held, err := lockfile.Acquire(lockPath)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer held.Release()

	cmd := newServeCmd(&context{})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--listen", "127.0.0.1:0", "--lock", lockPath})

	if err := cmd.Execute(); !errors.Is(err, lockfile.ErrLocked) {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestServeCommandStopsOnContextCancel(t *testing.T) {
	cmd := newServeCmd(&context{})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--listen", "127.0.0.1:0"})

	runCtx, cancel := stdcontext.WithCancel(stdcontext.Background())
	cmd.SetContext(runCtx)

	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected graceful stop, got %v", err)
	}
}

type failingListener struct {
	addr net.Addr
	err  error
}

func (l *failingListener) Accept() (net.Conn, error) {
	return nil, l.err
}

func (l *failingListener) Close() error { return nil }

func (l *failingListener) Addr() net.Addr { return l.addr }

type staticAddr string

func (a staticAddr) Network() string { return "tcp" }

func (a staticAddr) String() string { return string(a) }
