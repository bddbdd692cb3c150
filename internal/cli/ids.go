package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wrenware/vigil/internal/proc"
)

// idEntry is one identity in the report. Order matters for display, so the
// report is a slice rather than a map.
type idEntry struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func newIdsCmd(ctx *context) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ids",
		Short: "Print process and user identities",
		Long: "Ids reports the pid, parent pid and real and effective user and group\n" +
			"ids of the vigil process, plus the process group and session on\n" +
			"platforms that have them.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := identityReport()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\n", e.Name, e.Value)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the report as JSON")

	return cmd
}

func identityReport() []idEntry {
	entries := []idEntry{
		{Name: "pid", Value: proc.Getpid()},
		{Name: "ppid", Value: proc.Getppid()},
		{Name: "uid", Value: proc.Getuid()},
		{Name: "euid", Value: proc.Geteuid()},
		{Name: "gid", Value: proc.Getgid()},
		{Name: "egid", Value: proc.Getegid()},
	}
	return appendOSIDs(entries)
}
