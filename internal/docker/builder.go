// internal/docker/builder.go
//
// Builder drives the docker CLI for one image catalog: build, push, release
// retagging, lock file maintenance and the ECR mirror hook. Every external
// effect goes through the injected Runner (processes) or Notifier (HTTP), so
// tests swap those out instead of overriding methods.

package docker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"imagectl/internal/executil"
	"imagectl/internal/images"
	"imagectl/pkg/webhook"
)

// ErrInvalid marks argument validation failures. They are raised before any
// external command runs.
var ErrInvalid = errors.New("invalid argument")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Notifier calls a mirror webhook for one image:tag.
type Notifier interface {
	Trigger(ctx context.Context, endpoint, image, tag string) (*webhook.Response, error)
}

type Builder struct {
	cfg     Config
	catalog *images.Catalog
	runner  executil.Runner
	hooks   Notifier
	log     *logrus.Entry
	sleep   func(time.Duration)
}

type Option func(*Builder)

// WithLogger sets the log entry used for progress messages.
func WithLogger(log *logrus.Entry) Option {
	return func(b *Builder) { b.log = log }
}

// WithNotifier replaces the default webhook client.
func WithNotifier(n Notifier) Option {
	return func(b *Builder) { b.hooks = n }
}

// New returns a Builder. Registry, Repository and Root fall back to their
// defaults when empty.
func New(cfg Config, catalog *images.Catalog, runner executil.Runner, opts ...Option) (*Builder, error) {
	if catalog == nil {
		return nil, errors.New("docker.New: catalog is nil")
	}
	if runner == nil {
		return nil, errors.New("docker.New: runner is nil")
	}
	cfg.Registry = strings.TrimRight(first(cfg.Registry, DefaultRegistry), "/")
	cfg.Repository = strings.Trim(first(cfg.Repository, DefaultRepository), "/")
	cfg.Root = first(cfg.Root, ".")

	b := &Builder{
		cfg:     cfg,
		catalog: catalog,
		runner:  runner,
		sleep:   time.Sleep,
	}
	for _, o := range opts {
		o(b)
	}
	if b.log == nil {
		b.log = logrus.NewEntry(logrus.StandardLogger())
	}
	b.log = b.log.WithField("component", "builder")
	if b.hooks == nil {
		b.hooks = webhook.NewClient(0)
	}
	return b, nil
}

// Config returns the configuration the builder was created with.
func (b *Builder) Config() Config { return b.cfg }

// Catalog returns the image catalog.
func (b *Builder) Catalog() *images.Catalog { return b.catalog }

func (b *Builder) lookup(name string) (images.Image, error) {
	img, ok := b.catalog.Get(name)
	if !ok {
		return images.Image{}, fmt.Errorf("%w: %w %q", ErrInvalid, images.ErrUnknownImage, name)
	}
	return img, nil
}

func (b *Builder) selectImages(names []string) ([]string, error) {
	selected, err := b.catalog.Select(names)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return selected, nil
}

// contextDir is the build context of image.
func (b *Builder) contextDir(image string) string {
	return filepath.Join(b.cfg.Root, image)
}

func (b *Builder) docker(ctx context.Context, timeout time.Duration, args ...string) (*executil.Result, error) {
	return b.runner.Run(ctx, executil.Command{Name: "docker", Args: args, Timeout: timeout})
}
