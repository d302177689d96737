package preprocessor

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestProcessExpandsSingleInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "helpers.lisq", "(defun double (x) (+ x x))\n")

	src := "#include helpers.lisq\n(put_char (double 33))"
	got, err := New(dir).Process(src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := "(defun double (x) (+ x x))\n(put_char (double 33))"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestProcessExpandsRepeatedIncludeLineEverywhere(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "const.lisq", "1\n")

	src := "#include const.lisq\n#include const.lisq\n"
	got, err := New(dir).Process(src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := "1\n1\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestProcessRereadsIncludedFileOnEachCall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counted.lisq")
	writeFile(t, dir, "counted.lisq", "first\n")

	src := "#include counted.lisq\n#include counted.lisq\n"
	if _, err := New(dir).Process(src); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if err := os.WriteFile(path, []byte("second\n"), 0o644); err != nil {
		t.Fatalf("rewriting file: %v", err)
	}
	got, err := New(dir).Process(src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := "second\nsecond\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestProcessDoesNotExpandNestedIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inner.lisq", "inner-body\n")
	writeFile(t, dir, "outer.lisq", "#include inner.lisq\nouter-body\n")

	src := "#include outer.lisq\n"
	got, err := New(dir).Process(src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := "#include inner.lisq\nouter-body\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestProcessMissingFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir).Process("#include nope.lisq\n")
	if err == nil {
		t.Fatal("expected an error for a missing included file")
	}
}

func TestProcessLeavesContentWithoutIncludesUnchanged(t *testing.T) {
	src := "(put_char 65)"
	got, err := New(".").Process(src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got != src {
		t.Errorf("got %q, want %q", got, src)
	}
}

func TestNewDefaultsEmptyBaseDirToCurrentDirectory(t *testing.T) {
	p := New("")
	if p.baseDir != "." {
		t.Errorf("got baseDir %q, want %q", p.baseDir, ".")
	}
}
