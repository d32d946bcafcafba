package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"xsearch/internal/config"
	"xsearch/internal/theme"
)

func (a *app) initCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(path, config.Default()); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			theme.PrintBanner(a.out)
			fmt.Fprintln(a.out, "Config written to:", abs)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "./xsearch.yaml", "path to write config")
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "xsearch %s\n", Version)
		},
	}
}
