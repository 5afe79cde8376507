package docker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"imagectl/pkg/webhook"
)

func TestPushToECRRequiresEndpoint(t *testing.T) {
	f := newFixture(t, Config{})
	for _, eps := range [][]string{nil, {}, {" "}} {
		err := f.b.PushToECR(context.Background(), eps, testTag, nil, []string{testImage})
		assert.Check(t, errors.Is(err, ErrInvalid))
	}
	assert.Equal(t, len(f.hooks.calls), 0)
}

func TestPushToECRPairs(t *testing.T) {
	f := newFixture(t, Config{TriggerPause: 100 * time.Millisecond})
	err := f.b.PushToECR(context.Background(), []string{"https://dev", "https://prod"}, "main", []string{"v1"}, []string{testImage})
	assert.NilError(t, err)
	assert.DeepEqual(t, f.hooks.calls, []call{
		{"https://dev", testImage, "main"},
		{"https://prod", testImage, "main"},
		{"https://dev", testImage, "v1"},
		{"https://prod", testImage, "v1"},
		{"https://dev", testImage, "stable"},
		{"https://prod", testImage, "stable"},
	})
	assert.Equal(t, len(f.hooks.slept), 6)
	assert.Equal(t, f.hooks.slept[0], 100*time.Millisecond)
}

func TestPushToECRDryRun(t *testing.T) {
	f := newFixture(t, Config{DryRun: true})
	assert.NilError(t, f.b.PushToECR(context.Background(), []string{"https://dev"}, testTag, nil, []string{testImage}))
	assert.Equal(t, len(f.hooks.calls), 0)
	assert.Check(t, is.Contains(f.messages(), "Triggering ecr for some-image, some-tag ..."))
}

func TestPushToECRHTTP(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []string
		status  = http.StatusOK
	)
	setStatus := func(code int) {
		mu.Lock()
		defer mu.Unlock()
		status = code
		queries = nil
	}
	seen := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), queries...)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		queries = append(queries, r.URL.Path+"?"+r.URL.RawQuery)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	f := newFixture(t, Config{})
	f.b.hooks = webhook.NewClientWith(srv.Client())
	ctx := context.Background()

	// two endpoints, one image: one request per endpoint
	err := f.b.PushToECR(ctx, []string{srv.URL + "/dev", srv.URL + "/prod"}, testTag, nil, []string{testImage})
	assert.NilError(t, err)
	assert.DeepEqual(t, seen(), []string{
		"/dev?image=some-image&tag=some-tag",
		"/prod?image=some-image&tag=some-tag",
	})

	setStatus(http.StatusNotFound)
	err = f.b.PushToECR(ctx, []string{srv.URL}, testTag, nil, []string{testImage})
	assert.NilError(t, err)
	assert.Check(t, is.Contains(f.messages(), "Trigger returned status: 404"))

	setStatus(http.StatusForbidden)
	err = f.b.PushToECR(ctx, []string{srv.URL + "/a", srv.URL + "/b"}, testTag, nil, []string{testImage})
	var se *webhook.StatusError
	assert.Assert(t, errors.As(err, &se))
	assert.Equal(t, se.StatusCode, http.StatusForbidden)
	// aborted before the second endpoint
	assert.DeepEqual(t, seen(), []string{"/a?image=some-image&tag=some-tag"})
}
