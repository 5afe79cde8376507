// Package cli wires the imagectl commands.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"imagectl/internal/executil"
	"imagectl/internal/images"
	"imagectl/internal/runtime"
	"imagectl/pkg/ghcr"
	"imagectl/pkg/webhook"
)

type app struct {
	out    io.Writer
	log    *logrus.Logger
	debug  bool
	dryRun bool

	newRunner func(log *logrus.Entry, dryRun bool) executil.Runner
	newTags   func(baseURL, token string) (runtime.TagLister, error)
	hooks     *webhook.Client
}

// Option customises the command tree, mostly for tests.
type Option func(*app)

// WithOutput sends command results (not logs) to w.
func WithOutput(w io.Writer) Option { return func(a *app) { a.out = w } }

// WithLogOutput sends log lines to w.
func WithLogOutput(w io.Writer) Option { return func(a *app) { a.log.SetOutput(w) } }

// WithRunner replaces the host command runner.
func WithRunner(r executil.Runner) Option {
	return func(a *app) {
		a.newRunner = func(*logrus.Entry, bool) executil.Runner { return r }
	}
}

// WithRegistry replaces the registry tag lookup.
func WithRegistry(l runtime.TagLister) Option {
	return func(a *app) {
		a.newTags = func(string, string) (runtime.TagLister, error) { return l, nil }
	}
}

// WithWebhookClient replaces the HTTP client used for webhooks.
func WithWebhookClient(c *webhook.Client) Option { return func(a *app) { a.hooks = c } }

func newApp(opts ...Option) *app {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(lineFormatter{})
	a := &app{
		out: os.Stdout,
		log: log,
		newRunner: func(l *logrus.Entry, dry bool) executil.Runner {
			return executil.NewExec(l, dry)
		},
		newTags: func(baseURL, token string) (runtime.TagLister, error) {
			c, err := ghcr.NewClient(ghcr.Options{BaseURL: baseURL, Token: token})
			if err != nil {
				return nil, err
			}
			return c.Tags, nil
		},
		hooks: webhook.NewClient(30 * time.Second),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *app) entry(component string) *logrus.Entry {
	return a.log.WithField("component", component)
}

func (a *app) runner() executil.Runner {
	return a.newRunner(a.entry("exec"), a.dryRun)
}

// catalog returns the embedded catalog, or the one at path.
func (a *app) catalog(path string) (*images.Catalog, error) {
	if path == "" {
		return images.Default(), nil
	}
	return images.Load(path)
}

// NewRootCmd returns the imagectl command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	return newRootCmd(newApp(opts...))
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "imagectl",
		Short:         "Build, release and maintain the Fornax Jupyter images",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.debug {
				a.log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.SetOut(a.out)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	pf := root.PersistentFlags()
	pf.BoolVar(&a.debug, "debug", false, "print debug messages")
	pf.BoolVar(&a.dryRun, "dryrun", envDefault("IMAGECTL_DRY_RUN", "") == "true", "prepare but do not run commands (env IMAGECTL_DRY_RUN)")

	root.AddCommand(
		newBuildCmd(a),
		newImagesCmd(a),
		newChangedCmd(a),
		newNeededCmd(a),
		newPackagesCmd(a),
		newExportEnvsCmd(a),
		newAMICmd(a),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, opts ...Option) int {
	a := newApp(opts...)
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		a.log.Error(err)
	}
	return ExitCode(err)
}

// envDefault is the value of key, or def when unset.
func envDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
