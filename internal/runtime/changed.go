package runtime

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"imagectl/internal/executil"
	"imagectl/internal/images"
)

const gitTimeout = 500 * time.Second

// ChangedImages returns, sorted, the catalog images whose directories were
// touched by the event. A directory counts only if it holds a Dockerfile.
// In dry-run (the runner returns no result) the list is empty.
func ChangedImages(ctx context.Context, runner executil.Runner, root string, catalog *images.Catalog, e Event) ([]string, error) {
	return ChangedImagesForFlow(ctx, runner, root, catalog, e, ResolveFlow(e, FlowAuto))
}

// ChangedImagesForFlow is ChangedImages with the flow chosen by the caller.
func ChangedImagesForFlow(ctx context.Context, runner executil.Runner, root string, catalog *images.Catalog, e Event, flow Flow) ([]string, error) {
	if root == "" {
		root = "."
	}
	git := func(args ...string) (*executil.Result, error) {
		return runner.Run(ctx, executil.Command{
			Name:    "git",
			Args:    args,
			Dir:     root,
			Timeout: gitTimeout,
			Capture: true,
		})
	}

	var (
		res *executil.Result
		err error
		// directories are reduced to their top level, except for fresh
		// pushes where the Dockerfile locations are used as found
		dirOf = topDir
	)
	switch flow {
	case FlowPullRequest:
		base := e.TargetBranch()
		if base == "" {
			return nil, fmt.Errorf("pull_request event without base_ref")
		}
		if _, err = git("fetch", "origin", base); err != nil {
			return nil, err
		}
		res, err = git("--no-pager", "diff", "--name-only", "HEAD", "origin/"+base)

	case FlowPush:
		if _, err = git("fetch", "origin", e.Before()); err != nil {
			return nil, err
		}
		res, err = git("--no-pager", "diff-tree", "--name-only", "-r", e.Before()+".."+e.After())

	case FlowFreshPush:
		res, err = runner.Run(ctx, executil.Command{
			Name:    "find",
			Args:    []string{".", "-type", "f", "-name", "Dockerfile"},
			Dir:     root,
			Timeout: gitTimeout,
			Capture: true,
		})
		dirOf = func(p string) string { return path.Dir(strings.TrimPrefix(p, "./")) }

	default:
		res, err = git("ls-files")
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return []string{}, nil
	}

	dirs := lo.Uniq(lo.Map(lines(res.Stdout), func(p string, _ int) string { return dirOf(p) }))
	changed := lo.Filter(dirs, func(d string, _ int) bool {
		return catalog.Has(d) && hasDockerfile(filepath.Join(root, d))
	})
	sort.Strings(changed)
	return changed, nil
}

func hasDockerfile(dir string) bool {
	st, err := os.Stat(filepath.Join(dir, "Dockerfile"))
	return err == nil && !st.IsDir()
}

// TagLister lists the published tags of one image.
type TagLister interface {
	List(ctx context.Context, repository, image string) ([]string, error)
}

// NeededImages returns, in catalog order, the images a branch build has to
// produce: those under a changed directory, those the registry has no
// branch tag for yet and those whose tags cannot be read.
func NeededImages(ctx context.Context, lister TagLister, repository string, catalog *images.Catalog, changedDirs []string, branch string, log *logrus.Entry) []string {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	var needed []string
	for _, image := range catalog.Names() {
		changed := lo.SomeBy(changedDirs, func(d string) bool { return strings.HasPrefix(d, image) })
		if changed {
			needed = append(needed, image)
			continue
		}
		tags, err := lister.List(ctx, repository, image)
		if err != nil {
			log.Warnf("could not list tags of %s: %v", image, err)
			needed = append(needed, image)
			continue
		}
		if !lo.Contains(tags, branch) {
			needed = append(needed, image)
		}
	}
	return needed
}

// CurrentBranch is the checked out git branch, "no-tag" in dry-run.
func CurrentBranch(ctx context.Context, runner executil.Runner, root string) (string, error) {
	res, err := runner.Run(ctx, executil.Command{
		Name:    "git",
		Args:    []string{"branch", "--show-current"},
		Dir:     root,
		Timeout: gitTimeout,
		Capture: true,
	})
	if err != nil {
		return "", err
	}
	if res == nil {
		return "no-tag", nil
	}
	branch := strings.TrimSpace(res.Stdout)
	if branch == "" {
		return "", fmt.Errorf("not on a branch (detached HEAD?)")
	}
	return branch, nil
}
