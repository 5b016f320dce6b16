package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGo(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		in         string
		internal   bool
		thirdParty bool
	}{
		{"claimledger/internal/core", true, false},
		{"claimledger/pkg/domain", false, false},
		{"github.com/rs/zerolog", false, true},
		{"golang.org/x/tools/internal", true, true},
		{"encoding/json", false, false},
	}
	for _, c := range cases {
		if got := InternalImport(c.in); got != c.internal {
			t.Fatalf("InternalImport(%q)=%v want %v", c.in, got, c.internal)
		}
		if got := ThirdPartyImport(c.in); got != c.thirdParty {
			t.Fatalf("ThirdPartyImport(%q)=%v want %v", c.in, got, c.thirdParty)
		}
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\t\"claimledger/internal/core\"\n)\nvar _ = fmt.Sprint\nvar _ = core.OpCreateClaim\n")
	writeGo(t, dir, "b.go", "package tmp\nimport \"github.com/rs/zerolog\"\nvar _ zerolog.Level\n")
	writeGo(t, dir, "a_test.go", "package tmp\nimport \"claimledger/internal/logging\"\n")
	if err := os.Mkdir(filepath.Join(dir, "sub.go"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	viols, err := DirectImportViolations(dir, InternalImport, ThirdPartyImport)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []string{"claimledger/internal/core (in a.go)", "github.com/rs/zerolog (in b.go)"}
	if strings.Join(viols, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v want %v", viols, want)
	}

	AssertNoDirectImports(t, dir, "stdlib only allowed to pass", func(path string) bool { return path == "os" })
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := DirectImportViolations(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	dir := t.TempDir()
	writeGo(t, dir, "broken.go", "package tmp\nimport (\n")
	if _, err := DirectImportViolations(dir, InternalImport); err == nil {
		t.Fatalf("expected parse error")
	}
}
