package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadEnrollEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.yaml")
	writeFile(t, path, `
alice@example.com:
  name: Alice
  credential: s3cret
bob:
  credential: hunter2
`)

	entries, err := loadEnrollEntries(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries["alice@example.com"].Credential != "s3cret" {
		t.Errorf("unexpected alice entry: %+v", entries["alice@example.com"])
	}
}

func TestLoadEnrollEntries_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.yaml")
	writeFile(t, path, "- just\n- a list\n")

	if _, err := loadEnrollEntries(path); err == nil {
		t.Error("expected error for a list instead of a mapping")
	}
	if _, err := loadEnrollEntries(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestCollectEnrollJobs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"alice@example.com.jpg", "bob.PNG", "carol.jpg", "notes.txt"} {
		writeFile(t, filepath.Join(dir, name), "x")
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o700); err != nil {
		t.Fatal(err)
	}

	entries := map[string]enrollEntry{
		"alice@example.com": {Name: "Alice", Credential: "s3cret"},
		"bob":               {Credential: "hunter2"},
	}

	jobs, skipped, err := collectEnrollJobs(dir, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d: %+v", len(jobs), jobs)
	}
	if len(skipped) != 1 || skipped[0] != "carol.jpg" {
		t.Errorf("expected carol.jpg to be skipped, got %v", skipped)
	}

	byID := map[string]enrollJob{}
	for _, j := range jobs {
		byID[j.identifier] = j
	}
	if byID["bob"].entry.Name != "bob" {
		t.Errorf("missing name should default to the identifier, got %q", byID["bob"].entry.Name)
	}
	if byID["alice@example.com"].entry.Name != "Alice" {
		t.Errorf("unexpected alice name %q", byID["alice@example.com"].entry.Name)
	}
}
