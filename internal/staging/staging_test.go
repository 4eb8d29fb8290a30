package staging

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func stagedNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestPrepareFilesCopiesPDFs(t *testing.T) {
	src := t.TempDir()
	a := writeFile(t, src, "alice.pdf", "%PDF-1.4 alice")
	b := writeFile(t, src, "bob.pdf", "%PDF-1.4 bob")

	result, err := PrepareFiles(context.Background(), []string{a, b})
	if err != nil {
		t.Fatalf("PrepareFiles: %v", err)
	}
	defer os.RemoveAll(result.DirectoryPath)

	if result.Status != "success" {
		t.Errorf("Status = %q, want success", result.Status)
	}
	if result.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", result.FileCount)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", result.Warnings)
	}

	names := stagedNames(t, result.DirectoryPath)
	if len(names) != 2 {
		t.Errorf("staged %v, want 2 files", names)
	}
}

func TestPrepareFilesRejectsUnsupportedFormats(t *testing.T) {
	src := t.TempDir()
	gdoc := writeFile(t, src, "essay.gdoc", "{}")
	docx := writeFile(t, src, "essay.docx", "PK")
	pdf := writeFile(t, src, "essay.pdf", "%PDF-1.4")

	result, err := PrepareFiles(context.Background(), []string{gdoc, docx, pdf})
	if err != nil {
		t.Fatalf("PrepareFiles: %v", err)
	}
	defer os.RemoveAll(result.DirectoryPath)

	if result.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1", result.FileCount)
	}
	if !hasWarning(result.Warnings, "Google Doc shortcut") {
		t.Errorf("missing gdoc warning: %v", result.Warnings)
	}
	if !hasWarning(result.Warnings, "Word document") {
		t.Errorf("missing docx warning: %v", result.Warnings)
	}
	if result.Status != "success" {
		t.Errorf("Status = %q; one staged file should still succeed", result.Status)
	}
}

func TestPrepareFilesMissingFile(t *testing.T) {
	result, err := PrepareFiles(context.Background(), []string{"/nonexistent/essay.pdf"})
	if err != nil {
		t.Fatalf("PrepareFiles: %v", err)
	}
	defer os.RemoveAll(result.DirectoryPath)

	if result.Status != "error" {
		t.Errorf("Status = %q, want error when nothing staged", result.Status)
	}
	if !hasWarning(result.Warnings, "File not found") {
		t.Errorf("missing not-found warning: %v", result.Warnings)
	}
}

func TestPrepareFilesExtractsZip(t *testing.T) {
	src := t.TempDir()
	archive := filepath.Join(src, "essays.zip")

	f, err := os.Create(archive)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for _, entry := range []string{
		"submissions/carol.pdf",
		"submissions/dave.pdf",
		"__MACOSX/._carol.pdf",
		".DS_Store",
	} {
		w, err := zw.Create(entry)
		if err != nil {
			t.Fatalf("zip entry %s: %v", entry, err)
		}
		if _, err := w.Write([]byte("%PDF-1.4")); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	f.Close()

	result, err := PrepareFiles(context.Background(), []string{archive})
	if err != nil {
		t.Fatalf("PrepareFiles: %v", err)
	}
	defer os.RemoveAll(result.DirectoryPath)

	if result.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2 (metadata entries skipped)", result.FileCount)
	}
	names := stagedNames(t, result.DirectoryPath)
	for _, name := range names {
		if strings.HasPrefix(name, ".") || strings.Contains(name, "MACOSX") {
			t.Errorf("metadata entry staged: %s", name)
		}
	}
}

func TestPrepareFilesRenamesCollisions(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	a := writeFile(t, first, "essay.pdf", "one")
	b := writeFile(t, second, "essay.pdf", "two")

	result, err := PrepareFiles(context.Background(), []string{a, b})
	if err != nil {
		t.Fatalf("PrepareFiles: %v", err)
	}
	defer os.RemoveAll(result.DirectoryPath)

	if result.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", result.FileCount)
	}

	names := stagedNames(t, result.DirectoryPath)
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["essay.pdf"] || !found["essay_1.pdf"] {
		t.Errorf("staged names = %v, want essay.pdf and essay_1.pdf", names)
	}
}

func TestResultJSON(t *testing.T) {
	r := &Result{
		DirectoryPath: "/tmp/staging",
		FileCount:     3,
		Warnings:      []string{"Skipped unsupported file type: notes.txt"},
		Status:        "success",
	}

	out := r.JSON()
	for _, want := range []string{`"directory_path"`, `"file_count"`, `"warnings"`, `"status"`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON() missing %s: %s", want, out)
		}
	}
}
