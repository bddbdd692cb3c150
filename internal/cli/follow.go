package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrenware/vigil/internal/config"
	"github.com/wrenware/vigil/internal/follow"
	"github.com/wrenware/vigil/internal/logging"
	"github.com/wrenware/vigil/internal/watch"
)

func newFollowCmd(ctx *context) *cobra.Command {
	var (
		lines     int
		pid       int
		container string
		interval  time.Duration
		retry     bool
	)

	cmd := &cobra.Command{
		Use:   "follow [flags] FILE...",
		Short: "Tail files, stopping when a watched process or container dies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configuration()
			if !cmd.Flags().Changed("lines") {
				lines = cfg.FollowLines()
			}
			if !cmd.Flags().Changed("interval") {
				interval = cfg.Watch.Interval.Duration
			}
			if pid != 0 && container != "" {
				return fmt.Errorf("--pid and --container are mutually exclusive")
			}

			logger := logging.ForComponent("follow")

			var src watch.Source
			switch {
			case pid != 0:
				var err error
				src, err = watch.Pid(pid)
				if errors.Is(err, watch.ErrUnsupported) {
					logger.Warn("liveness checks unavailable, following without a stop condition", "pid", pid)
				} else if err != nil {
					return err
				}
			case container != "":
				var err error
				src, err = watch.Container(cmd.Context(), container)
				if err != nil {
					return err
				}
			}
			if src != nil {
				defer src.Close()
			}

			follower, err := follow.New(args, follow.Options{
				Lines:    lines,
				Interval: interval,
				Retry:    retry,
				Source:   src,
				Out:      cmd.OutOrStdout(),
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			return follower.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", config.DefaultFollowLines, "Number of trailing lines printed per file")
	cmd.Flags().IntVar(&pid, "pid", 0, "Stop once this process dies")
	cmd.Flags().StringVar(&container, "container", "", "Stop once this container exits")
	cmd.Flags().DurationVar(&interval, "interval", config.DefaultWatchInterval, "Poll cadence for file growth and liveness")
	cmd.Flags().BoolVar(&retry, "retry", false, "Keep waiting for files that are missing or rotate away")

	return cmd
}
