package cli

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrenware/vigil/internal/api"
	apihttp "github.com/wrenware/vigil/internal/api/http"
	"github.com/wrenware/vigil/internal/config"
	"github.com/wrenware/vigil/internal/lockfile"
	"github.com/wrenware/vigil/internal/logging"
)

// newAPIServer is swapped in tests to observe the configuration the command
// wires up.
var newAPIServer = apihttp.NewServer

func newServeCmd(ctx *context) *cobra.Command {
	var (
		listen     string
		pids       []int
		containers []string
		lockPath   string
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the watch registry over HTTP",
		Long: "Serve runs the watch registry as a daemon. Watches named on the\n" +
			"command line start immediately; more can be created and deleted over\n" +
			"the HTTP API, which also exposes health and Prometheus metrics\n" +
			"endpoints. With --lock only one instance runs per lock file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configuration()
			if !cmd.Flags().Changed("listen") {
				listen = cfg.Serve.Listen
			}
			if !cmd.Flags().Changed("lock") {
				lockPath = cfg.Serve.Lock
			}
			if !cmd.Flags().Changed("interval") {
				interval = cfg.Watch.Interval.Duration
			}

			logger := logging.ForComponent("serve")

			if lockPath != "" {
				lock, err := lockfile.Acquire(lockPath)
				if err != nil {
					return err
				}
				defer lock.Release()
				if prev := lock.Previous; prev != nil && prev.Stale() {
					logger.Warn("replacing stale lock", "path", lock.Path(), "pid", prev.Pid)
				}
			}

			registry := api.NewRegistry(interval, logging.ForComponent("registry"))
			defer registry.Close()

			for _, pid := range pids {
				report, err := registry.CreateWatch(cmd.Context(), api.WatchRequest{Pid: &pid})
				if err != nil {
					return fmt.Errorf("watch pid %d: %w", pid, err)
				}
				logger.Info("watch created", "id", report.ID, "target", report.Target)
			}
			for _, name := range containers {
				report, err := registry.CreateWatch(cmd.Context(), api.WatchRequest{Container: name})
				if err != nil {
					return fmt.Errorf("watch container %s: %w", name, err)
				}
				logger.Info("watch created", "id", report.ID, "target", report.Target)
			}

			listener, err := net.Listen("tcp", listen)
			if err != nil {
				return err
			}

			server, err := newAPIServer(apihttp.Config{
				Addr:       listen,
				Controller: registry,
				Listener:   listener,
			})
			if err != nil {
				listener.Close()
				return err
			}

			logger.Info("api listening", "addr", server.Addr())
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&listen, "listen", config.DefaultListenAddr, "Address for the HTTP API")
	cmd.Flags().IntSliceVar(&pids, "pid", nil, "Process ID to watch at startup (repeatable)")
	cmd.Flags().StringSliceVar(&containers, "container", nil, "Container to watch at startup (repeatable)")
	cmd.Flags().StringVar(&lockPath, "lock", "", "Lock file enforcing a single instance")
	cmd.Flags().DurationVar(&interval, "interval", config.DefaultWatchInterval, "Liveness poll interval")

	return cmd
}
