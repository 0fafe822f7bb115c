package install

import (
	"fmt"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Resolution decides what happens when several files match one package.
type Resolution string

const (
	// ResolveFirst picks the lexically first match.
	ResolveFirst Resolution = "first"
	// ResolveStrict fails with AmbiguousPackageError.
	ResolveStrict Resolution = "strict"
)

// ResolvedPackage is a package category bound to a local file.
type ResolvedPackage struct {
	Package
	Path string
}

// ResolvePackages finds one file per required package in dir by matching
// name*.<extension>. It fails on the first package without a match.
func ResolvePackages(fs billy.Filesystem, dir string, platform Platform, required []Package, mode Resolution) ([]ResolvedPackage, error) {
	if dir == "" {
		return nil, fmt.Errorf("no package directory given")
	}

	resolved := make([]ResolvedPackage, 0, len(required))
	for _, pkg := range required {
		pattern := path.Join(dir, pkg.Name+"*."+platform.Extension)
		matches, err := util.Glob(fs, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to list packages like %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, &PackageNotFoundError{Name: pkg.Name, Pattern: pattern}
		}
		sort.Strings(matches)
		if len(matches) > 1 && mode == ResolveStrict {
			return nil, &AmbiguousPackageError{Name: pkg.Name, Matches: matches}
		}
		resolved = append(resolved, ResolvedPackage{Package: pkg, Path: matches[0]})
	}
	return resolved, nil
}
