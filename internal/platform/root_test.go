package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindRoot(t *testing.T) {
	// base/
	//   vault/ (.webclip)
	//     Journal/
	//       nested/
	//   repo/ (.git)
	//     Pages/
	//   empty/
	baseDir := t.TempDir()
	vaultDir := filepath.Join(baseDir, "vault")
	nestedDir := filepath.Join(vaultDir, "Journal", "nested")
	repoDir := filepath.Join(baseDir, "repo")
	pagesDir := filepath.Join(repoDir, "Pages")
	emptyDir := filepath.Join(baseDir, "empty")

	for _, dir := range []string{
		nestedDir, pagesDir, emptyDir,
		filepath.Join(vaultDir, ".webclip"),
		filepath.Join(repoDir, ".git"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name      string
		startPath string
		wantRoot  string
		wantErr   bool
	}{
		{name: "Start at Root", startPath: vaultDir, wantRoot: vaultDir},
		{name: "Start Nested Deeply", startPath: nestedDir, wantRoot: vaultDir},
		{name: "Git Marker", startPath: pagesDir, wantRoot: repoDir},
		{name: "No Root Found", startPath: emptyDir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRoot(tt.startPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("FindRoot() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != "" && filepath.Clean(got) != filepath.Clean(tt.wantRoot) {
				t.Errorf("FindRoot() = %v, want %v", got, tt.wantRoot)
			}
		})
	}
}

func TestDetectGitless(t *testing.T) {
	dir := t.TempDir()
	if !detectGitless(dir, ".webclip", false) {
		t.Error("plain folder without auto-init should be gitless")
	}
	if err := os.Mkdir(filepath.Join(dir, ".webclip"), 0755); err != nil {
		t.Fatal(err)
	}
	if !detectGitless(dir, ".webclip", true) {
		t.Error("existing gitless vault should stay gitless")
	}
}
