// internal/docker/build.go
package docker

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"imagectl/internal/images"
)

// Build runs docker build for image, tagged registry/repository/image:tag
// plus one --tag per opts.ExtraTags entry. tag may carry a repository
// prefix; only the part after the last ':' is used.
func (b *Builder) Build(ctx context.Context, image, tag string, opts BuildOptions) error {
	img, err := b.lookup(image)
	if err != nil {
		return err
	}
	tag = plainTag(tag)
	fullTag, err := b.FullTag(image, tag)
	if err != nil {
		return err
	}
	buildArgs, err := b.buildArgs(img, tag, opts.BuildArgs)
	if err != nil {
		return err
	}
	extra, err := splitArgs(opts.ExtraArgs)
	if err != nil {
		return err
	}
	extraTags := make([]string, 0, len(opts.ExtraTags))
	for _, t := range opts.ExtraTags {
		ft, err := b.FullTag(image, t)
		if err != nil {
			return err
		}
		extraTags = append(extraTags, ft)
	}

	// symlinks do not survive the build context, so shared files are copied in
	if err := b.copyCommonFiles(img); err != nil {
		return err
	}

	args := []string{"build"}
	if b.cfg.Platform != "" {
		args = append(args, "--platform="+b.cfg.Platform)
	}
	for _, kv := range buildArgs {
		args = append(args, "--build-arg", kv)
	}
	args = append(args, extra...)
	args = append(args, "--tag", fullTag)
	for _, t := range extraTags {
		args = append(args, "--tag", t)
	}
	args = append(args, b.contextDir(image))

	b.log.Infof("Building %s ...", image)
	_, err = b.docker(ctx, buildTimeout, args...)
	return err
}

// buildArgs validates the caller's NAME=value pairs and appends the
// REPOSITORY, REGISTRY and BASE_TAG defaults the Dockerfiles expect, unless
// the caller already set them. Root images take their parent tags from the
// Dockerfile itself, so they get no defaults.
func (b *Builder) buildArgs(img images.Image, tag string, in []string) ([]string, error) {
	out := make([]string, 0, len(in)+3)
	for _, a := range in {
		out = append(out, strings.TrimSpace(a))
	}

	if !img.Root {
		defaults := [][2]string{
			{"REPOSITORY", b.cfg.Repository},
			{"REGISTRY", b.cfg.Registry},
			{"BASE_TAG", tag},
		}
		for _, kv := range defaults {
			if !hasBuildArg(out, kv[0]) {
				out = append(out, kv[0]+"="+kv[1])
			}
		}
	}

	if err := checkBuildArgs(out); err != nil {
		return nil, err
	}
	return out, nil
}

func checkBuildArgs(args []string) error {
	for _, a := range args {
		a = strings.TrimSpace(a)
		name, _, _ := strings.Cut(a, "=")
		if strings.Count(a, "=") != 1 || strings.TrimSpace(name) == "" {
			return invalidf("build_args should be of the form 'name=value'. Got '%s'.", a)
		}
	}
	return nil
}

func hasBuildArg(args []string, name string) bool {
	for _, a := range args {
		if strings.HasPrefix(a, name+"=") {
			return true
		}
	}
	return false
}

// copyCommonFiles copies the catalog's shared files from the root into the
// image context. Best effort: files already copied stay on failure.
func (b *Builder) copyCommonFiles(img images.Image) error {
	dir := b.contextDir(img.Name)
	if !b.cfg.DryRun {
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			return invalidf("image %s does not exist (no directory %s)", img.Name, dir)
		}
	}
	if img.SkipCommonFiles {
		return nil
	}
	for _, f := range b.catalog.CommonFiles {
		dst := filepath.Join(dir, filepath.Base(f))
		b.log.Infof("copying: %s -> %s", f, img.Name)
		if b.cfg.DryRun {
			continue
		}
		if err := copyFile(filepath.Join(b.cfg.Root, f), dst); err != nil {
			return err
		}
	}
	return nil
}
