package docker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"

	"imagectl/internal/executil/executiltest"
	"imagectl/internal/images"
	"imagectl/pkg/webhook"
)

const (
	testRepo     = "some-repo"
	testRegistry = "my-registry"
	testTag      = "some-tag"
	testImage    = "some-image"
)

const testCatalogYAML = `
images:
  - name: jupyter-base
    root: true
    skip_common_files: true
  - name: base-image
    skip_common_files: true
  - name: some-image
  - name: other-image
common_files: [introduction.md]
`

func testCatalog(t *testing.T) *images.Catalog {
	t.Helper()
	c, err := images.Parse([]byte(testCatalogYAML))
	assert.NilError(t, err)
	return c
}

type fixture struct {
	b     *Builder
	rec   *executiltest.Recorder
	hook  *test.Hook
	hooks *fakeNotifier
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	if cfg.Registry == "" {
		cfg.Registry = testRegistry
	}
	if cfg.Repository == "" {
		cfg.Repository = testRepo
	}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	f := &fixture{rec: &executiltest.Recorder{}, hook: hook, hooks: &fakeNotifier{}}
	b, err := New(cfg, testCatalog(t), f.rec, WithLogger(logrus.NewEntry(logger)), WithNotifier(f.hooks))
	assert.NilError(t, err)
	b.sleep = func(d time.Duration) { f.hooks.slept = append(f.hooks.slept, d) }
	f.b = b
	return f
}

func (f *fixture) messages() []string {
	var out []string
	for _, e := range f.hook.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}

type call struct{ Endpoint, Image, Tag string }

type fakeNotifier struct {
	mu      sync.Mutex
	calls   []call
	slept   []time.Duration
	respond func(c call) (*webhook.Response, error)
}

func (n *fakeNotifier) Trigger(_ context.Context, endpoint, image, tag string) (*webhook.Response, error) {
	c := call{endpoint, image, tag}
	n.mu.Lock()
	n.calls = append(n.calls, c)
	n.mu.Unlock()
	if n.respond != nil {
		return n.respond(c)
	}
	return &webhook.Response{StatusCode: 200, Body: "ok"}, nil
}
