package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"imagectl/internal/lockfile"
)

func newPackagesCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "packages <lock-file>",
		Short: "Write the name==version list of a conda lock file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lock := args[0]
			out := output
			if out == "" {
				out = defaultPackageList(lock)
			}
			a.entry("packages").Infof("Writing the package list of %s to %s", lock, out)
			return lockfile.WritePackageList(lock, out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <lock-file minus .yml>-packages.txt)")
	return cmd
}

func defaultPackageList(lock string) string {
	return strings.TrimSuffix(lock, ".yml") + "-packages.txt"
}
