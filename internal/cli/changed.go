package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"imagectl/internal/runtime"
)

func newChangedCmd(a *app) *cobra.Command {
	var (
		root   string
		config string
		flow   string
	)
	cmd := &cobra.Command{
		Use:   "changed <github-context.json>",
		Short: "Print the images changed by a GitHub event as a JSON list",
		Long: `Read the GitHub Actions context (toJSON(github)) and print, as a JSON
list, the catalog images whose directories the event touched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			forced, err := runtime.ParseFlow(flow)
			if err != nil {
				return usagef("%v (want auto, pull_request, push, fresh-push or other)", err)
			}
			log := a.entry("changed")
			e, err := runtime.LoadEvent(args[0])
			if err != nil {
				return err
			}
			e.LogSummary(log)

			catalog, err := a.catalog(config)
			if err != nil {
				return err
			}
			changed, err := runtime.ChangedImagesForFlow(cmd.Context(), a.runner(), root, catalog, e,
				runtime.ResolveFlow(e, forced))
			if err != nil {
				return err
			}

			out, err := json.Marshal(changed)
			if err != nil {
				return err
			}
			log.Debugf("changed: %s", out)
			// clean print so the CI can pick it up
			fmt.Fprintln(a.out, string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "repository checkout")
	cmd.Flags().StringVar(&config, "config", "", "image catalog YAML (default: built-in catalog)")
	cmd.Flags().StringVar(&flow, "flow", string(runtime.FlowAuto), "force a flow: auto, pull_request, push, fresh-push, other")
	return cmd
}

func newNeededCmd(a *app) *cobra.Command {
	var (
		token    string
		config   string
		registry string
	)
	cmd := &cobra.Command{
		Use:   "needed <repository> <dirs-changed-json> <branch>",
		Short: "Print the images a branch has to build, space separated",
		Long: `An image is needed when one of the changed directories belongs to it,
when the registry has no <branch> tag for it yet, or when its tags cannot
be listed.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			repository, dirsJSON, branch := args[0], args[1], args[2]
			var dirs []string
			if err := json.Unmarshal([]byte(dirsJSON), &dirs); err != nil {
				return usagef("invalid changed directory list %q: %v", dirsJSON, err)
			}
			catalog, err := a.catalog(config)
			if err != nil {
				return err
			}
			tags, err := a.newTags(registry, token)
			if err != nil {
				return err
			}
			needed := runtime.NeededImages(cmd.Context(), tags, repository, catalog, dirs, branch, a.entry("needed"))
			fmt.Fprintln(a.out, strings.Join(needed, " "))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "registry token, already base64 encoded (default: env GITHUB_TOKEN)")
	cmd.Flags().StringVar(&registry, "registry-url", "", "registry API base URL (default: env GHCR_BASE_URL, then https://ghcr.io)")
	cmd.Flags().StringVar(&config, "config", "", "image catalog YAML (default: built-in catalog)")
	return cmd
}
