// Package testutil holds import guards shared by architecture tests.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
)

// ImportPredicate reports whether an import path is off limits.
type ImportPredicate func(importPath string) bool

// AssertNoDirectImports parses every non-test .go file in dir and fails the
// test if an import matches any of the predicates. Build tags are ignored.
func AssertNoDirectImports(t testing.TB, dir, reason string, forbidden ...ImportPredicate) {
	t.Helper()
	viols, err := DirectImportViolations(dir, forbidden...)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden imports in %s (%s):\n%s", dir, reason, strings.Join(viols, "\n"))
	}
}

// DirectImportViolations returns "path (in file.go)" for each forbidden import,
// sorted for stable output.
func DirectImportViolations(dir string, forbidden ...ImportPredicate) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				return nil, err
			}
			for _, bad := range forbidden {
				if bad(path) {
					viols = append(viols, path+" (in "+name+")")
					break
				}
			}
		}
	}
	sort.Strings(viols)
	return viols, nil
}

// InternalImport matches any path with an internal element.
func InternalImport(path string) bool {
	return strings.Contains(path, "/internal/") || strings.HasSuffix(path, "/internal")
}

// ThirdPartyImport matches paths whose first element looks like a host name.
func ThirdPartyImport(path string) bool {
	first, _, _ := strings.Cut(path, "/")
	return strings.Contains(first, ".")
}
