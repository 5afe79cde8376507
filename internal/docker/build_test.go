package docker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/fs"

	"imagectl/internal/executil"
)

func fullTag(image, tag string) string {
	return fmt.Sprintf("%s/%s/%s:%s", testRegistry, testRepo, image, tag)
}

func TestFullTag(t *testing.T) {
	f := newFixture(t, Config{DryRun: true})

	got, err := f.b.FullTag(testImage, testTag)
	assert.NilError(t, err)
	assert.Equal(t, got, "my-registry/some-repo/some-image:some-tag")

	for _, bad := range []string{"repo:tag", "", "  "} {
		_, err := f.b.FullTag(testImage, bad)
		assert.Check(t, errors.Is(err, ErrInvalid), "tag %q", bad)
	}
}

func TestCheckTags(t *testing.T) {
	assert.NilError(t, CheckTags("tag", []string{"a", "b"}))
	assert.NilError(t, CheckTags("tag", nil))
	assert.Check(t, errors.Is(CheckTags("tag:in", []string{"x"}), ErrInvalid))
	assert.Check(t, errors.Is(CheckTags("tag", []string{"tag:out"}), ErrInvalid))
}

func TestBuild(t *testing.T) {
	defaults := "--build-arg REPOSITORY=some-repo --build-arg REGISTRY=my-registry --build-arg BASE_TAG=some-tag"
	tests := []struct {
		name  string
		image string
		tag   string
		opts  BuildOptions
		want  string
	}{
		{
			name:  "basic",
			image: testImage,
			tag:   testTag,
			want:  "docker build " + defaults + " --tag " + fullTag(testImage, testTag) + " some-image",
		},
		{
			name:  "build args first",
			image: testImage,
			tag:   testTag,
			opts:  BuildOptions{BuildArgs: []string{"ENV=val", " ENV2=val "}},
			want:  "docker build --build-arg ENV=val --build-arg ENV2=val " + defaults + " --tag " + fullTag(testImage, testTag) + " some-image",
		},
		{
			name:  "caller value wins",
			image: testImage,
			tag:   testTag,
			opts:  BuildOptions{BuildArgs: []string{"REGISTRY=other.io", "BASE_TAG=pinned"}},
			want: "docker build --build-arg REGISTRY=other.io --build-arg BASE_TAG=pinned " +
				"--build-arg REPOSITORY=some-repo --tag " + fullTag(testImage, testTag) + " some-image",
		},
		{
			name:  "extra args",
			image: testImage,
			tag:   testTag,
			opts:  BuildOptions{ExtraArgs: "--some-par --network=host"},
			want:  "docker build " + defaults + " --some-par --network=host --tag " + fullTag(testImage, testTag) + " some-image",
		},
		{
			name:  "extra tags",
			image: testImage,
			tag:   testTag,
			opts:  BuildOptions{ExtraTags: []string{"latest", "2025-01-01"}},
			want: "docker build " + defaults + " --tag " + fullTag(testImage, testTag) +
				" --tag " + fullTag(testImage, "latest") + " --tag " + fullTag(testImage, "2025-01-01") + " some-image",
		},
		{
			name:  "repository prefix stripped",
			image: testImage,
			tag:   "my-registry/some-repo/some-image:" + testTag,
			want:  "docker build " + defaults + " --tag " + fullTag(testImage, testTag) + " some-image",
		},
		{
			name:  "root image gets no defaults",
			image: "jupyter-base",
			tag:   testTag,
			want:  "docker build --tag " + fullTag("jupyter-base", testTag) + " jupyter-base",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{DryRun: true})
			assert.NilError(t, f.b.Build(context.Background(), tt.image, tt.tag, tt.opts))
			assert.DeepEqual(t, f.rec.Lines(), []string{tt.want})
		})
	}
}

func TestBuildDefaultsAppearOnce(t *testing.T) {
	f := newFixture(t, Config{DryRun: true})
	args := []string{"A=1", "REPOSITORY=fork/images", "B=2"}
	assert.NilError(t, f.b.Build(context.Background(), testImage, testTag, BuildOptions{BuildArgs: args}))

	line := f.rec.Lines()[0]
	for _, key := range []string{"REPOSITORY=", "REGISTRY=", "BASE_TAG="} {
		assert.Check(t, is.Equal(strings.Count(line, "--build-arg "+key), 1), key)
	}
	assert.Check(t, is.Contains(line, "--build-arg REPOSITORY=fork/images"))
	// caller slice untouched
	assert.DeepEqual(t, args, []string{"A=1", "REPOSITORY=fork/images", "B=2"})
}

func TestBuildPlatform(t *testing.T) {
	f := newFixture(t, Config{DryRun: true, Platform: "linux/amd64"})
	assert.NilError(t, f.b.Build(context.Background(), "jupyter-base", testTag, BuildOptions{}))
	assert.DeepEqual(t, f.rec.Lines(), []string{
		"docker build --platform=linux/amd64 --tag " + fullTag("jupyter-base", testTag) + " jupyter-base",
	})
}

func TestBuildInvalid(t *testing.T) {
	tests := []struct {
		name  string
		image string
		tag   string
		opts  BuildOptions
	}{
		{name: "two equals", image: testImage, tag: testTag, opts: BuildOptions{BuildArgs: []string{"A=b=c"}}},
		{name: "no equals", image: testImage, tag: testTag, opts: BuildOptions{BuildArgs: []string{"ENV"}}},
		{name: "no name", image: testImage, tag: testTag, opts: BuildOptions{BuildArgs: []string{"=x"}}},
		{name: "bad extra tag", image: testImage, tag: testTag, opts: BuildOptions{ExtraTags: []string{"a:b"}}},
		{name: "unbalanced quote", image: testImage, tag: testTag, opts: BuildOptions{ExtraArgs: `--label "x`}},
		{name: "unknown image", image: "nope", tag: testTag},
		{name: "empty tag", image: testImage, tag: "registry/x:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{DryRun: true})
			err := f.b.Build(context.Background(), tt.image, tt.tag, tt.opts)
			assert.Check(t, errors.Is(err, ErrInvalid), "got %v", err)
			assert.Equal(t, len(f.rec.Commands()), 0)
		})
	}
}

func TestBuildCopiesCommonFiles(t *testing.T) {
	dir := fs.NewDir(t, "build",
		fs.WithFile("introduction.md", "# hello\n"),
		fs.WithDir("some-image", fs.WithFile("Dockerfile", "FROM scratch\n")),
		fs.WithDir("base-image", fs.WithFile("Dockerfile", "FROM scratch\n")),
	)
	defer dir.Remove()
	f := newFixture(t, Config{Root: dir.Path()})
	ctx := context.Background()

	assert.NilError(t, f.b.Build(ctx, testImage, testTag, BuildOptions{}))
	data, err := os.ReadFile(dir.Join("some-image", "introduction.md"))
	assert.NilError(t, err)
	assert.Equal(t, string(data), "# hello\n")
	assert.Check(t, is.Contains(f.rec.Lines()[0], " "+dir.Join("some-image")))

	assert.NilError(t, f.b.Build(ctx, "base-image", testTag, BuildOptions{}))
	_, err = os.Stat(dir.Join("base-image", "introduction.md"))
	assert.Check(t, os.IsNotExist(err))

	err = f.b.Build(ctx, "other-image", testTag, BuildOptions{})
	assert.Check(t, errors.Is(err, ErrInvalid))
	assert.Equal(t, len(f.rec.Commands()), 2)
}

func TestBuildDryRunCopiesNothing(t *testing.T) {
	dir := fs.NewDir(t, "build",
		fs.WithFile("introduction.md", "# hello\n"),
		fs.WithDir("some-image"),
	)
	defer dir.Remove()
	f := newFixture(t, Config{Root: dir.Path(), DryRun: true})

	assert.NilError(t, f.b.Build(context.Background(), testImage, testTag, BuildOptions{}))
	_, err := os.Stat(filepath.Join(dir.Path(), "some-image", "introduction.md"))
	assert.Check(t, os.IsNotExist(err))
	assert.Check(t, is.Contains(f.messages(), "copying: introduction.md -> some-image"))
}

func TestBuildPropagatesRunnerError(t *testing.T) {
	f := newFixture(t, Config{DryRun: true})
	boom := errors.New("exit 1")
	f.rec.Respond = func(executil.Command) (*executil.Result, error) { return nil, boom }
	err := f.b.Build(context.Background(), testImage, testTag, BuildOptions{})
	assert.Check(t, errors.Is(err, boom))
}

func TestPush(t *testing.T) {
	f := newFixture(t, Config{DryRun: true})
	assert.NilError(t, f.b.Push(context.Background(), testImage, testTag))
	assert.DeepEqual(t, f.rec.Lines(), []string{"docker push " + fullTag(testImage, testTag)})

	err := f.b.Push(context.Background(), testImage, testImage+":"+testTag)
	assert.Check(t, errors.Is(err, ErrInvalid))
	assert.Equal(t, len(f.rec.Commands()), 1)
}
