package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrenware/vigil/internal/config"
	"github.com/wrenware/vigil/internal/logging"
	"github.com/wrenware/vigil/internal/watch"
)

func newAwaitCmd(ctx *context) *cobra.Command {
	var (
		timeout  time.Duration
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "await PID",
		Short: "Block until a process dies",
		Long: "Await polls the process until it is observed dead, then exits 0. The\n" +
			"process does not have to be a child of vigil. With --timeout the wait\n" +
			"is bounded: a process still alive when the limit elapses yields exit\n" +
			"status 1.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = ctx.configuration().Watch.Interval.Duration
			}
			pid, err := strconv.Atoi(args[0])
			if err != nil || pid < 1 {
				return fmt.Errorf("invalid pid %q", args[0])
			}

			src, err := watch.Pid(pid)
			if err != nil {
				return err
			}
			defer src.Close()

			logger := logging.ForComponent("await")

			waitCtx := cmd.Context()
			if timeout > 0 {
				var cancel stdcontext.CancelFunc
				waitCtx, cancel = stdcontext.WithTimeout(waitCtx, timeout)
				defer cancel()
			}

			for event := range watch.Run(waitCtx, src, interval) {
				switch event.Status {
				case watch.StatusAlive:
					logger.Debug("target alive", "target", event.Target)
				case watch.StatusDead:
					logger.Info("target dead", "target", event.Target, "detail", event.Detail)
					return nil
				}
			}

			if errors.Is(waitCtx.Err(), stdcontext.DeadlineExceeded) {
				return exitWith(1, fmt.Errorf("%s still alive after %s", src.Describe(), timeout))
			}
			return waitCtx.Err()
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits forever)")
	cmd.Flags().DurationVar(&interval, "interval", config.DefaultWatchInterval, "Poll interval")

	return cmd
}
