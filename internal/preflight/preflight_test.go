package preflight

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckDirectoryReadable_OK(t *testing.T) {
	result := CheckDirectoryReadable("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryReadable_NotExist(t *testing.T) {
	result := CheckDirectoryReadable("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryReadable_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryReadable("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFileReadable(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "classes.txt")
	if err := os.WriteFile(f, []byte("0 run\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckFileReadable("mapping", f); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckFileReadable("mapping", dir); result.Passed {
		t.Fatal("expected failure for directory")
	}
	if result := CheckFileReadable("mapping", filepath.Join(dir, "missing")); result.Passed {
		t.Fatal("expected failure for missing file")
	}
}

func TestCheckOutputWritable(t *testing.T) {
	dir := t.TempDir()
	if result := CheckOutputWritable("out", filepath.Join(dir, "a", "b", "records.sqlite")); !result.Passed {
		t.Fatalf("expected pass for nested new path, got: %s", result.Detail)
	}

	existing := filepath.Join(dir, "matrix.h5")
	if err := os.WriteFile(existing, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckOutputWritable("out", existing)
	if !result.Passed || !strings.Contains(result.Detail, "replaced") {
		t.Fatalf("expected replace notice, got: %+v", result)
	}

	if result := CheckOutputWritable("out", filepath.Join(existing, "child")); result.Passed {
		t.Fatal("expected failure when a parent is a regular file")
	}
}

func TestCheckListenAddress(t *testing.T) {
	if result := CheckListenAddress(context.Background(), "127.0.0.1:0"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	if result := CheckListenAddress(context.Background(), ln.Addr().String()); result.Passed {
		t.Fatal("expected failure for an address already in use")
	}
}

func TestRunAll(t *testing.T) {
	dir := t.TempDir()
	mapping := filepath.Join(dir, "classes.txt")
	if err := os.WriteFile(mapping, []byte("0 run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), Targets{
		FramesRoot:   dir,
		Annotations:  mapping,
		ClassMapping: mapping,
		Output:       filepath.Join(dir, "out", "records.sqlite"),
	})
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if err := Failed(results); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
}

func TestRunAll_SkipsEmptyTargets(t *testing.T) {
	if results := RunAll(context.Background(), Targets{}); len(results) != 0 {
		t.Fatalf("expected no results, got %v", results)
	}
}

func TestFailedJoinsDetails(t *testing.T) {
	err := Failed([]Result{
		{Name: "A", Passed: true},
		{Name: "B", Detail: "missing"},
		{Name: "C", Detail: "denied"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "B: missing") || !strings.Contains(err.Error(), "C: denied") {
		t.Fatalf("unexpected error %q", err)
	}
}
