package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wrenware/vigil/internal/metrics"
	"github.com/wrenware/vigil/internal/proc"
	"github.com/wrenware/vigil/internal/signame"
)

func newSignalCmd(ctx *context) *cobra.Command {
	var (
		sigName string
		list    bool
	)

	cmd := &cobra.Command{
		Use:   "signal [flags] PID...",
		Short: "Send a signal to processes",
		Long: "Signal delivers the given signal to each PID. Pid 0 broadcasts to the\n" +
			"calling process group without taking vigil down with it. Signal 0\n" +
			"probes for existence without delivering anything.\n\n" +
			"Exit status is 1 for usage errors, 2 when a target does not exist and\n" +
			"3 when a target exists but may not be signalled.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return printSignalTable(cmd.OutOrStdout())
			}
			if len(args) == 0 {
				return exitWith(1, errors.New("requires at least one pid"))
			}
			sig, err := signame.Parse(sigName)
			if err != nil {
				return exitWith(1, err)
			}

			exitCode := 0
			for _, arg := range args {
				pid, err := strconv.Atoi(arg)
				if err != nil || pid < 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "invalid pid %q\n", arg)
					if exitCode == 0 {
						exitCode = 1
					}
					continue
				}
				if err := dispatchSignal(pid, sig); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
					if exitCode == 0 {
						exitCode = classifySignalFailure(err)
					}
					continue
				}
				if name, ok := signame.Name(sig); ok {
					metrics.IncrementSignalSent(name)
				}
			}
			if exitCode != 0 {
				return exitSilently(exitCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sigName, "signal", "s", "TERM", "Signal to send, by name or number")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List the signals known on this platform")

	return cmd
}

func dispatchSignal(pid, sig int) error {
	if pid == 0 {
		return proc.SignalGroup(sig)
	}
	return proc.Signal(pid, sig)
}

// classifySignalFailure maps delivery errors onto kill-style exit codes.
func classifySignalFailure(err error) int {
	switch {
	case errors.Is(err, syscall.ESRCH):
		return 2
	case errors.Is(err, syscall.EPERM):
		return 3
	default:
		return 1
	}
}

func printSignalTable(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NUM\tNAME")
	for _, entry := range signame.Table() {
		fmt.Fprintf(w, "%d\t%s\n", entry.Num, entry.Name)
	}
	return w.Flush()
}
