package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrenware/vigil/internal/logging"
	"github.com/wrenware/vigil/internal/metrics"
	"github.com/wrenware/vigil/internal/proc"
	"github.com/wrenware/vigil/internal/signame"
)

// Exit codes mirror timeout(1): 124 when the time limit was hit, 125 for
// internal failures, 126 and 127 for commands that cannot be invoked or
// found, 128+N for a command killed by signal N, 130 after an interrupt.
const (
	exitTimedOut    = 124
	exitInternal    = 125
	exitCannotRun   = 126
	exitNotFound    = 127
	exitInterrupted = 130
)

type runOptions struct {
	timeout        time.Duration
	signal         string
	killAfter      time.Duration
	preserveStatus bool
	foreground     bool
}

func newRunCmd(ctx *context) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [flags] COMMAND [ARG...]",
		Short: "Run a command with a bounded lifetime",
		Long: "Run starts COMMAND and waits for it. When --timeout elapses first, the\n" +
			"configured signal goes to the process group COMMAND shares with vigil\n" +
			"(or to COMMAND alone with --foreground) and the exit status is 124.\n" +
			"--kill-after escalates to an unignorable KILL for commands that trap\n" +
			"the first signal.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBounded(cmd, ctx, opts, args)
		},
	}
	cmd.Flags().SetInterspersed(false)

	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", 0, "Signal the command after this long (0 waits forever)")
	cmd.Flags().StringVarP(&opts.signal, "signal", "s", "TERM", "Signal sent when the timeout elapses")
	cmd.Flags().DurationVarP(&opts.killAfter, "kill-after", "k", 0, "Send KILL this long after the first signal")
	cmd.Flags().BoolVar(&opts.preserveStatus, "preserve-status", false, "Exit with the command's status even after a timeout")
	cmd.Flags().BoolVar(&opts.foreground, "foreground", false, "Signal only the command, never its process group")

	return cmd
}

func runBounded(cmd *cobra.Command, ctx *context, opts runOptions, args []string) error {
	sig, err := signame.Parse(opts.signal)
	if err != nil {
		return exitWith(exitInternal, err)
	}
	if sig == 0 {
		return exitWith(exitInternal, fmt.Errorf("signal 0 cannot terminate the command"))
	}

	child := exec.Command(args[0], args[1:]...)
	child.Stdin = os.Stdin
	child.Stdout = cmd.OutOrStdout()
	child.Stderr = cmd.ErrOrStderr()

	if err := child.Start(); err != nil {
		return exitWith(classifySpawnFailure(err), err)
	}

	run := startBoundedRun(proc.NewChild(child), opts.foreground)
	defer run.stop()

	status, err := run.child.WaitOrTimeout(opts.timeout, &run.canceled)
	if err != nil {
		return exitWith(exitInternal, err)
	}

	timedOut := false
	if status == nil {
		// The bounded wait gave up: the limit elapsed, or a relayed signal
		// already went out and we only need to collect the body.
		timedOut = !run.interrupt.Load()
		if timedOut {
			run.terminate(sig)
		}
		status, err = run.reap(opts.killAfter)
		if err != nil {
			return exitWith(exitInternal, err)
		}
	}

	switch {
	case run.interrupt.Load():
		return exitSilently(exitInterrupted)
	case timedOut && !opts.preserveStatus:
		return exitSilently(exitTimedOut)
	case status.Signaled():
		return exitSilently(128 + status.Signal())
	case status.ExitCode() != 0:
		return exitSilently(status.ExitCode())
	}
	return nil
}

func classifySpawnFailure(err error) int {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return exitNotFound
	}
	return exitCannotRun
}

// boundedRun couples the child with the signal relay that keeps Ctrl-C and
// TERM working while the main flow sits in a wait.
type boundedRun struct {
	child      *proc.Child
	foreground bool
	logger     *slog.Logger

	notify   chan os.Signal
	done     chan struct{}
	stopOnce sync.Once

	signalMu  sync.Mutex
	canceled  atomic.Bool
	interrupt atomic.Bool
}

func startBoundedRun(child *proc.Child, foreground bool) *boundedRun {
	r := &boundedRun{
		child:      child,
		foreground: foreground,
		logger:     logging.ForComponent("run"),
		notify:     make(chan os.Signal, 4),
		done:       make(chan struct{}),
	}
	signal.Notify(r.notify, os.Interrupt, syscall.SIGTERM)
	go r.relaySignals()
	return r
}

// relaySignals forwards received interrupts to the command. Forwarding
// instead of merely cancelling keeps even the indefinite blocking wait
// shutdown-capable: the child dies, so the wait returns.
func (r *boundedRun) relaySignals() {
	for {
		select {
		case s := <-r.notify:
			r.interrupt.Store(true)
			r.canceled.Store(true)
			if sig, ok := s.(syscall.Signal); ok {
				r.terminate(int(sig))
			}
		case <-r.done:
			return
		}
	}
}

func (r *boundedRun) stop() {
	r.stopOnce.Do(func() {
		signal.Stop(r.notify)
		close(r.done)
	})
}

// terminate delivers sig to the command directly and then, unless
// foreground was requested, to the process group it shares with us. The
// broadcast swaps our own signal dispositions around the send, which drops
// the relay's registration, so it is re-armed before returning.
func (r *boundedRun) terminate(sig int) {
	r.signalMu.Lock()
	defer r.signalMu.Unlock()

	if err := r.child.Signal(sig); err != nil {
		r.logger.Debug("signal command", "signal", sig, "error", err)
	}
	if !r.foreground {
		if err := r.child.SignalGroup(sig); err != nil {
			r.logger.Debug("signal group", "signal", sig, "error", err)
		}
		signal.Notify(r.notify, os.Interrupt, syscall.SIGTERM)
	}
	if name, ok := signame.Name(sig); ok {
		metrics.IncrementSignalSent(name)
	}
}

// reap collects the signalled command, escalating to KILL once the grace
// period runs out. A zero grace waits for as long as the command takes to
// honor the first signal. Group broadcasts cannot carry KILL, so the
// escalation always goes directly to the child.
func (r *boundedRun) reap(grace time.Duration) (*proc.ExitStatus, error) {
	r.canceled.Store(false)
	status, err := r.child.WaitOrTimeout(grace, &r.canceled)
	if err != nil || status != nil {
		return status, err
	}

	if err := r.child.Signal(int(syscall.SIGKILL)); err != nil {
		r.logger.Debug("kill command", "error", err)
	}
	metrics.IncrementSignalSent("KILL")
	return r.child.WaitOrTimeout(0, nil)
}
