package fs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Run("Creates And Overwrites", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "page.md")

		for _, content := range []string{"first", "second"} {
			if err := writeFileAtomic(filename, []byte(content), 0644); err != nil {
				t.Fatalf("writeFileAtomic failed: %v", err)
			}
			got, err := os.ReadFile(filename)
			if err != nil {
				t.Fatalf("Failed to read file: %v", err)
			}
			if string(got) != content {
				t.Errorf("Expected content %q, got %q", content, string(got))
			}
		}
	})

	t.Run("Leaves No Temp Files", func(t *testing.T) {
		dir := t.TempDir()
		if err := writeFileAtomic(filepath.Join(dir, "a.md"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), TempFilePrefix) {
				t.Errorf("temp file left behind: %s", e.Name())
			}
		}
	})

	t.Run("Fill Error Keeps Original", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "a.md")
		if err := os.WriteFile(filename, []byte("original"), 0644); err != nil {
			t.Fatal(err)
		}
		err := writeAtomic(filename, 0644, func(w io.Writer) error {
			_, _ = w.Write([]byte("partial"))
			return errors.New("boom")
		})
		if err == nil {
			t.Fatal("expected error from fill")
		}
		got, _ := os.ReadFile(filename)
		if string(got) != "original" {
			t.Errorf("original clobbered: %q", got)
		}
	})

	t.Run("Fails if Directory Missing", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "missing_folder", "test.md")
		if err := writeFileAtomic(filename, []byte("fail"), 0644); err == nil {
			t.Error("Expected error when directory is missing, got nil")
		}
	})
}
