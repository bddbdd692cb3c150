package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	watchDead = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vigil",
		Name:      "watch_dead",
		Help:      "Observed state of watched targets (1=dead, 0=alive).",
	}, []string{"target"})

	probes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vigil",
		Name:      "probes_total",
		Help:      "Total number of liveness probes issued per target.",
	}, []string{"target"})

	probeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vigil",
		Name:      "probe_failures_total",
		Help:      "Total number of probes that could not be answered.",
	}, []string{"target"})

	signalsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vigil",
		Name:      "signals_sent_total",
		Help:      "Total number of signals dispatched, by signal name.",
	}, []string{"signal"})

	pollLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vigil",
		Name:      "poll_latency_seconds",
		Help:      "Latency of liveness poll executions in seconds.",
	}, []string{"target"})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vigil",
		Name:      "build_info",
		Help:      "Build metadata for the running vigil binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(watchDead, probes, probeFailures, signalsSent, pollLatency, buildInfo)
}

// Registry returns the Prometheus registry containing all vigil metrics.
func Registry() *prometheus.Registry {
	return registry
}

// SetWatchDead records the observed state of a watched target.
func SetWatchDead(target string, dead bool) {
	if target == "" {
		return
	}
	value := 0.0
	if dead {
		value = 1.0
	}
	watchDead.WithLabelValues(target).Set(value)
}

// IncrementProbe counts one liveness probe against a target.
func IncrementProbe(target string) {
	if target == "" {
		return
	}
	probes.WithLabelValues(target).Inc()
}

// IncrementProbeFailure counts a probe the mechanism could not answer.
func IncrementProbeFailure(target string) {
	if target == "" {
		return
	}
	probeFailures.WithLabelValues(target).Inc()
}

// IncrementSignalSent counts a dispatched signal by name.
func IncrementSignalSent(signal string) {
	if signal == "" {
		signal = "unknown"
	}
	signalsSent.WithLabelValues(signal).Inc()
}

// ObservePollLatency records the duration of one liveness poll.
func ObservePollLatency(target string, d time.Duration) {
	label := target
	if label == "" {
		label = "unknown"
	}
	pollLatency.WithLabelValues(label).Observe(d.Seconds())
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}

// ResetWatch clears the per-target series when a watch is deleted.
func ResetWatch(target string) {
	if target == "" {
		return
	}
	watchDead.DeleteLabelValues(target)
	probes.DeleteLabelValues(target)
	probeFailures.DeleteLabelValues(target)
	pollLatency.DeleteLabelValues(target)
}
