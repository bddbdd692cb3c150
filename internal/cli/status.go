package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	units "github.com/docker/go-units"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"

	"github.com/wrenware/vigil/internal/proc"
)

// statusRow is one line of the liveness report.
type statusRow struct {
	Pid       int        `json:"pid"`
	State     string     `json:"state"`
	Name      string     `json:"name,omitempty"`
	User      string     `json:"user,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Uptime    string     `json:"uptime,omitempty"`
}

func newStatusCmd(ctx *context) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status [PID...]",
		Short: "Report process liveness",
		Long: "Status probes each pid once and reports whether it is alive, with\n" +
			"process details where the platform exposes them. Without arguments it\n" +
			"reports on vigil itself.",
		RunE: func(cmd *cobra.Command, args []string) error {
			pids, err := parsePids(args)
			if err != nil {
				return err
			}
			if len(pids) == 0 {
				pids = []int{proc.Getpid()}
			}

			rows := make([]statusRow, 0, len(pids))
			for _, pid := range pids {
				rows = append(rows, probeStatus(pid))
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			return printStatusTable(cmd, rows)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the report as JSON")

	return cmd
}

func parsePids(args []string) ([]int, error) {
	pids := make([]int, 0, len(args))
	for _, arg := range args {
		pid, err := strconv.Atoi(arg)
		if err != nil || pid < 1 {
			return nil, fmt.Errorf("invalid pid %q", arg)
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// probeStatus asks the oracle first, then enriches live pids with process
// details. Enrichment is best effort: a pid may die between the probe and
// the lookup.
func probeStatus(pid int) statusRow {
	row := statusRow{Pid: pid, State: "alive"}

	w := proc.NewWatcher(pid)
	dead := w.IsDead()
	w.Close()
	if dead {
		row.State = "dead"
		return row
	}

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return row
	}
	if name, err := p.Name(); err == nil {
		row.Name = name
	}
	if user, err := p.Username(); err == nil {
		row.User = user
	}
	if created, err := p.CreateTime(); err == nil && created > 0 {
		started := time.UnixMilli(created)
		row.StartedAt = &started
		row.Uptime = units.HumanDuration(time.Since(started))
	}
	return row
}

func printStatusTable(cmd *cobra.Command, rows []statusRow) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if supportsInteractiveOutput(cmd) {
		fmt.Fprintln(w, "PID\tSTATE\tNAME\tUSER\tUPTIME")
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", row.Pid, row.State, orDash(row.Name), orDash(row.User), orDash(row.Uptime))
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
