package images

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/fs"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.DeepEqual(t, c.Names(), []string{"jupyter-base", "fornax-base", "fornax-main", "fornax-hea", "fornax-slim"})
	assert.DeepEqual(t, c.CommonFiles, []string{"introduction.md"})

	root, ok := c.Get("jupyter-base")
	assert.Assert(t, ok)
	assert.Check(t, root.Root)
	assert.Check(t, root.SkipCommonFiles)

	base, _ := c.Get("fornax-base")
	assert.Check(t, !base.Root)
	assert.Check(t, base.SkipCommonFiles)

	main, _ := c.Get("fornax-main")
	assert.Check(t, !main.Root && !main.SkipCommonFiles)
}

func TestSelect(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		in      []string
		want    []string
		wantErr bool
	}{
		{name: "nil means all", in: nil, want: c.Names()},
		{name: "empty selects nothing", in: []string{}, want: []string{}},
		{name: "reordered", in: []string{"fornax-hea", "jupyter-base"}, want: []string{"jupyter-base", "fornax-hea"}},
		{name: "duplicates", in: []string{"fornax-main", "fornax-main"}, want: []string{"fornax-main"}},
		{name: "unknown", in: []string{"fornax-main", "some_image"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Select(tt.in)
			if tt.wantErr {
				assert.Check(t, errors.Is(err, ErrUnknownImage))
				return
			}
			assert.NilError(t, err)
			assert.DeepEqual(t, got, tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := fs.NewDir(t, "catalog",
		fs.WithFile("ok.yaml", "images:\n  - name: base\n    root: true\n  - name: child\ncommon_files: [README.md]\n"),
		fs.WithFile("empty.yaml", "images: []\n"),
		fs.WithFile("dup.yaml", "images:\n  - name: a\n  - name: a\n"),
		fs.WithFile("bad-name.yaml", "images:\n  - name: a:b\n"),
	)
	defer dir.Remove()

	c, err := Load(dir.Join("ok.yaml"))
	assert.NilError(t, err)
	assert.DeepEqual(t, c.Names(), []string{"base", "child"})
	assert.DeepEqual(t, c.CommonFiles, []string{"README.md"})

	_, err = Load(dir.Join("empty.yaml"))
	assert.Check(t, is.ErrorContains(err, "no images"))

	_, err = Load(dir.Join("dup.yaml"))
	assert.Check(t, is.ErrorContains(err, "listed twice"))

	_, err = Load(dir.Join("bad-name.yaml"))
	assert.Check(t, is.ErrorContains(err, "plain directory name"))

	_, err = Load(dir.Join("missing.yaml"))
	assert.Check(t, is.ErrorContains(err, "read image catalog"))
}
