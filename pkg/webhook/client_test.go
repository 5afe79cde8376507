package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestTriggerURL(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
		wantErr  bool
	}{
		{endpoint: "https://hook.example/ecr", want: "https://hook.example/ecr?image=fornax-main&tag=v1"},
		{endpoint: "https://hook.example/ecr?key=abc", want: "https://hook.example/ecr?image=fornax-main&key=abc&tag=v1"},
		{endpoint: "hook.example/ecr", wantErr: true},
	}
	for _, tt := range tests {
		got, err := TriggerURL(tt.endpoint, "fornax-main", "v1")
		if tt.wantErr {
			assert.Check(t, err != nil, tt.endpoint)
			continue
		}
		assert.NilError(t, err)
		assert.Equal(t, got, tt.want)
	}
}

func TestTrigger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("image") {
		case "missing":
			http.Error(w, "no such repository", http.StatusNotFound)
		case "forbidden":
			http.Error(w, "nope", http.StatusForbidden)
		default:
			_, _ = w.Write([]byte("queued " + r.URL.Query().Get("tag")))
		}
	}))
	defer srv.Close()

	c := NewClientWith(srv.Client())
	ctx := context.Background()

	resp, err := c.Trigger(ctx, srv.URL, "fornax-main", "v1")
	assert.NilError(t, err)
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	assert.Equal(t, resp.Body, "queued v1")

	_, err = c.Trigger(ctx, srv.URL, "missing", "v1")
	assert.Check(t, IsNotFound(err))

	_, err = c.Trigger(ctx, srv.URL, "forbidden", "v1")
	assert.Check(t, !IsNotFound(err))
	var se *StatusError
	assert.Assert(t, errors.As(err, &se))
	assert.Equal(t, se.StatusCode, http.StatusForbidden)
	assert.Check(t, is.Contains(err.Error(), "403"))
}

func TestLaunchAMI(t *testing.T) {
	var got AMIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Check(t, is.Equal(r.Method, http.MethodPost))
		assert.Check(t, is.Equal(r.Header.Get("Content-Type"), "application/json"))
		assert.Check(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClientWith(srv.Client())
	_, err := c.LaunchAMI(context.Background(), srv.URL, AMIRequest{
		Images: []string{"fornax-main", "fornax-hea:develop"},
		Tag:    "2025-01",
		Launch: true,
	})
	assert.NilError(t, err)
	assert.DeepEqual(t, got, AMIRequest{
		Images: []string{"fornax-main:2025-01", "fornax-hea:develop"},
		Tag:    "2025-01",
		Launch: true,
	})

	_, err = c.LaunchAMI(context.Background(), srv.URL, AMIRequest{Images: []string{"a"}})
	assert.Check(t, is.ErrorContains(err, "tag is required"))
}

func TestLaunchAMIRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	_, err := NewClientWith(srv.Client()).LaunchAMI(context.Background(), srv.URL, AMIRequest{Tag: "x"})
	var se *StatusError
	assert.Assert(t, errors.As(err, &se))
	assert.Equal(t, se.StatusCode, http.StatusAccepted)
}
