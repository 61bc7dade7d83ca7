package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spatialrip/internal/deps"
	"spatialrip/internal/services"
	"spatialrip/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFreeSpace(context.Background(), "free", dir, 0); !r.Passed {
		t.Fatalf("expected pass with no floor, got %s", r.Detail)
	}
	// No test filesystem has an exbibyte free.
	r := CheckFreeSpace(context.Background(), "free", dir, 1<<30)
	if r.Passed || !strings.Contains(r.Detail, "required") {
		t.Fatalf("expected failure for huge floor, got %+v", r)
	}
}

func TestCheckTools(t *testing.T) {
	ok := CheckTools([]deps.Status{{Name: "a", Available: true}})
	if len(ok) != 1 || !ok[0].Passed {
		t.Fatalf("expected pass, got %+v", ok)
	}
	bad := CheckTools([]deps.Status{{Name: "MP4Box", Detail: `binary "MP4Box" not found`}})
	if bad[0].Passed || !strings.Contains(bad[0].Detail, "MP4Box") {
		t.Fatalf("expected MP4Box reported, got %+v", bad)
	}
}

func TestRunAllWithStubbedTools(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	testsupport.WriteFile(t, cfg.Tools.FRIMDecode, 1)

	results := RunAll(context.Background(), cfg)
	if err := Err(results); err != nil {
		t.Fatalf("expected all checks to pass: %v", err)
	}
}

func TestErrReportsFailures(t *testing.T) {
	err := Err([]Result{{Name: "a", Passed: true}, {Name: "Output root", Detail: "missing"}})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Output root: missing") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if Err(nil) != nil {
		t.Fatal("expected nil for no results")
	}
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
