package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_Load(t *testing.T) {
	t.Run("Starts Empty if File Missing", func(t *testing.T) {
		c := newCache(t.TempDir(), ".webclip")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected empty entries, got %d", c.Len())
		}
	})

	t.Run("Loads Valid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".webclip")
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			t.Fatal(err)
		}
		jsonContent := `{
			"version": 2,
			"entries": {
				"Journal/monday.md": {
					"guid": "abc-20251229",
					"name": "Monday, December 29, 2025",
					"path": "Journal/monday.md",
					"collection": "Journal"
				}
			}
		}`
		if err := os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte(jsonContent), 0644); err != nil {
			t.Fatal(err)
		}

		c := newCache(tmpDir, ".webclip")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		entry, ok := c.index.Entries["Journal/monday.md"]
		if !ok {
			t.Fatal("Expected entry Journal/monday.md not found")
		}
		if entry.GUID != "abc-20251229" || entry.Collection != "Journal" {
			t.Errorf("unexpected entry %+v", entry)
		}
	})

	t.Run("Resets on Corrupted Or Old Index", func(t *testing.T) {
		for _, content := range []string{"{ invalid json", `{"version": 1, "entries": {"a.md": {"id": "a"}}}`} {
			tmpDir := t.TempDir()
			cacheDir := filepath.Join(tmpDir, ".webclip")
			_ = os.MkdirAll(cacheDir, 0755)
			_ = os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte(content), 0644)

			c := newCache(tmpDir, ".webclip")
			if err := c.Load(); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if c.Len() != 0 {
				t.Errorf("Expected empty entries for %q, got %d", content, c.Len())
			}
		}
	})
}

func TestCache_Save(t *testing.T) {
	t.Run("Does Not Save if Not Dirty", func(t *testing.T) {
		c := newCache(t.TempDir(), ".webclip")
		if err := c.Save(); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if _, err := os.Stat(c.Path); !os.IsNotExist(err) {
			t.Error("Expected index.json NOT to exist")
		}
	})

	t.Run("Round Trips", func(t *testing.T) {
		tmpDir := t.TempDir()
		c := newCache(tmpDir, ".webclip")
		mtime := time.Now().Truncate(time.Second)
		c.Set("a.md", &indexEntry{GUID: "a", Name: "A", Path: "a.md", LastModified: mtime})

		if err := c.Save(); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if c.index.dirty {
			t.Error("Expected dirty to be false after save")
		}

		reloaded := newCache(tmpDir, ".webclip")
		if err := reloaded.Load(); err != nil {
			t.Fatal(err)
		}
		if _, hit := reloaded.Get("a.md", mtime); !hit {
			t.Error("Expected hit after reload")
		}
	})
}

func TestCache_Get_Set(t *testing.T) {
	c := newCache(t.TempDir(), ".webclip")

	now := time.Now().Truncate(time.Second)
	c.Set("test.md", &indexEntry{GUID: "test", LastModified: now})

	t.Run("Hit with Same Mtime", func(t *testing.T) {
		got, hit := c.Get("test.md", now)
		if !hit {
			t.Fatal("Expected cache hit")
		}
		if got.GUID != "test" {
			t.Errorf("Expected guid 'test', got '%s'", got.GUID)
		}
	})

	t.Run("Miss with Different Mtime", func(t *testing.T) {
		if _, hit := c.Get("test.md", now.Add(time.Hour)); hit {
			t.Error("Expected cache miss due to mtime mismatch")
		}
	})

	t.Run("Miss with Missing Key", func(t *testing.T) {
		if _, hit := c.Get("ghost.md", now); hit {
			t.Error("Expected cache miss for missing key")
		}
	})
}

func TestCache_Prune(t *testing.T) {
	c := newCache(t.TempDir(), ".webclip")
	c.Set("keep.md", &indexEntry{GUID: "keep"})
	c.Set("drop.md", &indexEntry{GUID: "drop"})
	c.index.dirty = false

	c.Prune(map[string]bool{"keep.md": true})

	if _, ok := c.index.Entries["keep.md"]; !ok {
		t.Error("Expected keep.md to remain")
	}
	if _, ok := c.index.Entries["drop.md"]; ok {
		t.Error("Expected drop.md to be removed")
	}
	if !c.index.dirty {
		t.Error("Expected dirty to be true after pruning")
	}
}
