package cli

import (
	stdcontext "context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrenware/vigil/internal/config"
	"github.com/wrenware/vigil/internal/tui"
	"github.com/wrenware/vigil/internal/watch"
)

func newTuiCmd(ctx *context) *cobra.Command {
	var (
		pids       []int
		containers []string
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Watch targets in a terminal dashboard",
		Long: "Tui renders the watched targets as a live table with an event log.\n" +
			"Use q to quit, / to filter targets, j to toggle JSON events and Enter\n" +
			"to switch between the table and the log.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = ctx.configuration().Watch.Interval.Duration
			}
			if len(pids) == 0 && len(containers) == 0 {
				return fmt.Errorf("at least one --pid or --container is required")
			}
			if !supportsInteractiveOutput(cmd) {
				return fmt.Errorf("tui requires an interactive terminal")
			}

			sources := make([]watch.Source, 0, len(pids)+len(containers))
			closeSources := func() {
				for _, src := range sources {
					src.Close()
				}
			}
			for _, pid := range pids {
				src, err := watch.Pid(pid)
				if err != nil {
					closeSources()
					return err
				}
				sources = append(sources, src)
			}
			for _, name := range containers {
				src, err := watch.Container(cmd.Context(), name)
				if err != nil {
					closeSources()
					return err
				}
				sources = append(sources, src)
			}
			defer closeSources()

			runCtx, cancel := stdcontext.WithCancel(cmd.Context())
			defer cancel()

			ui := tui.New()

			var wg sync.WaitGroup
			for _, src := range sources {
				wg.Add(1)
				go func(src watch.Source) {
					defer wg.Done()
					for event := range watch.Run(runCtx, src, interval) {
						select {
						case ui.EventSink() <- event:
						case <-runCtx.Done():
							return
						}
					}
				}(src)
			}
			go func() {
				wg.Wait()
				ui.CloseEvents()
			}()

			// Quitting the dashboard has to release the watchers, or the
			// event channel never closes and Run never returns.
			go func() {
				<-ui.Done()
				cancel()
			}()

			err := ui.Run(runCtx)
			cancel()
			return err
		},
	}

	cmd.Flags().IntSliceVar(&pids, "pid", nil, "Process ID to watch (repeatable)")
	cmd.Flags().StringSliceVar(&containers, "container", nil, "Container to watch (repeatable)")
	cmd.Flags().DurationVar(&interval, "interval", config.DefaultWatchInterval, "Liveness poll interval")

	return cmd
}
