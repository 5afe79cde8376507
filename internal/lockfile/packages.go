// Package lockfile turns conda-lock files into human readable package lists.
package lockfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Package is a resolved name/version pin.
type Package struct {
	Name    string
	Version string
}

func (p Package) String() string { return p.Name + "==" + p.Version }

// ParsePackageURL extracts the package name and version from one lock file
// line carrying a download URL. Both conda channel URLs and PyPI
// (pythonhosted.org) wheels and sdists are understood.
func ParsePackageURL(line string) (Package, error) {
	if strings.Contains(line, "pythonhosted.org") {
		return parsePyPI(line)
	}
	return parseConda(line)
}

// https://files.pythonhosted.org/packages/.../astro_query-0.4.7-py3-none-any.whl#sha256=...
func parsePyPI(line string) (Package, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Package{}, fmt.Errorf("empty lock file line")
	}
	u, _, _ := strings.Cut(fields[len(fields)-1], "#")
	filename := u[strings.LastIndex(u, "/")+1:]

	var name, version string
	switch {
	case strings.HasSuffix(filename, ".whl"):
		// <name>-<version>-<tags>.whl
		parts := strings.SplitN(filename, "-", 3)
		if len(parts) < 3 {
			return Package{}, fmt.Errorf("malformed wheel name %q", filename)
		}
		name, version = parts[0], parts[1]
	case strings.HasSuffix(filename, ".tar.gz"):
		// <name>-<version>.tar.gz
		base := strings.TrimSuffix(filename, ".tar.gz")
		var ok bool
		name, version, ok = strings.Cut(base, "-")
		if !ok {
			return Package{}, fmt.Errorf("malformed sdist name %q", filename)
		}
	default:
		return Package{}, fmt.Errorf("found unknown file %s in conda-lock file", filename)
	}
	// PyPI files use '_' where the project name has '-'
	return Package{Name: strings.ReplaceAll(name, "_", "-"), Version: version}, nil
}

// https://conda.anaconda.org/conda-forge/noarch/nomkl-1.0-h5ca1d4c_0.tar.bz2#9a66...
// -> nomkl 1.0; the name may itself contain '-', so split from the right.
func parseConda(line string) (Package, error) {
	u, _, _ := strings.Cut(line, "#")
	u = strings.TrimSpace(u)
	full := u[strings.LastIndex(u, "/")+1:]

	build := strings.LastIndex(full, "-")
	if build <= 0 {
		return Package{}, fmt.Errorf("malformed conda package %q", full)
	}
	ver := strings.LastIndex(full[:build], "-")
	if ver <= 0 {
		return Package{}, fmt.Errorf("malformed conda package %q", full)
	}
	return Package{Name: full[:ver], Version: full[ver+1 : build]}, nil
}

// PackageList collects the pins of every URL line in a conda-lock file,
// sorted by name then version.
func PackageList(r io.Reader) ([]Package, error) {
	var pkgs []Package
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "url: https:") {
			continue
		}
		p, err := ParsePackageURL(line)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lock file: %w", err)
	}
	sort.Slice(pkgs, func(i, j int) bool {
		if pkgs[i].Name != pkgs[j].Name {
			return pkgs[i].Name < pkgs[j].Name
		}
		return pkgs[i].Version < pkgs[j].Version
	})
	return pkgs, nil
}

// WritePackageList writes the reference list for lockFile to outFile.
func WritePackageList(lockFile, outFile string) error {
	f, err := os.Open(lockFile)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close()

	pkgs, err := PackageList(f)
	if err != nil {
		return fmt.Errorf("%s: %w", lockFile, err)
	}

	var b strings.Builder
	b.WriteString("# List of packages and versions installed in the environment\n")
	fmt.Fprintf(&b, "# Generated by parsing %s, please use that as source of truth\n", lockFile)
	for _, p := range pkgs {
		b.WriteString(p.String())
		b.WriteByte('\n')
	}
	if err := os.WriteFile(outFile, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write package list: %w", err)
	}
	return nil
}
