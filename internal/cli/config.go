package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wrenware/vigil/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect vigil configuration",
	}
	cmd.AddCommand(newConfigLintCmd())
	return cmd
}

func newConfigLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Validate the configuration file",
		Long: "Lint loads the configuration named by --config (or the default\n" +
			"vigil.yaml), checks it against the schema and reports the result.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if flag := cmd.Flag("config"); flag != nil {
				path = flag.Value.String()
			} else if flag := cmd.InheritedFlags().Lookup("config"); flag != nil {
				path = flag.Value.String()
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			resolved := path
			if resolved == "" {
				resolved = config.DefaultPath
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (version %s)\n", resolved, cfg.Version)
			return nil
		},
	}
}
